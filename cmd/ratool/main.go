// ratool is a CLI utility for exporting, inspecting and playing back RAT
// vertex animation files.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/Faultbox/ratkit/internal/config"
	"github.com/Faultbox/ratkit/internal/logger"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the state shared by every command once the root Before hook
// has run.
type app struct {
	cfg *config.Config
}

func newApp() *cli.Command {
	a := &app{}
	return &cli.Command{
		Name:  "ratool",
		Usage: "RAT vertex animation utility",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config file"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
			&cli.StringFlag{Name: "log-file", Usage: "also log to this file, with rotation"},
			&cli.IntFlag{Name: "max-kb", Usage: "maximum size of one output file in KB (0 = no splitting)"},
			&cli.IntFlag{Name: "max-bits", Usage: "cap delta widths at this many bits per axis (0 = lossless)"},
			&cli.StringFlag{Name: "texture", Usage: "texture filename to store (selects RAT2)"},
			&cli.StringFlag{Name: "output-dir", Usage: "directory for relative output paths"},
			&cli.FloatFlag{Name: "fps", Usage: "playback frame rate"},
		},
		Before: a.setup,
		After: func(ctx context.Context, cmd *cli.Command) error {
			logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			a.exportCommand(),
			a.infoCommand(),
			a.decodeCommand(),
			a.verifyCommand(),
			a.joinCommand(),
			configCommand(),
		},
	}
}

// setup loads the configuration and initializes logging.
func (a *app) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	ov := config.Overrides{
		ConfigPath:      cmd.String("config"),
		Debug:           cmd.Bool("debug"),
		LogFile:         cmd.String("log-file"),
		TextureFilename: cmd.String("texture"),
		OutputDir:       cmd.String("output-dir"),
		FrameRate:       cmd.Float("fps"),
	}
	if cmd.IsSet("max-kb") {
		v := cmd.Int("max-kb")
		ov.MaxFileSizeKB = &v
	}
	if cmd.IsSet("max-bits") {
		v := cmd.Int("max-bits")
		ov.MaxBitsPerAxis = &v
	}

	cfg, err := config.Load(ov)
	if err != nil {
		return ctx, err
	}

	opts := logger.Options{Level: cfg.Logging.Level, Console: cmd.ErrWriter}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.FileConfig{
			Path:       cfg.Logging.LogFile,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}
	}
	if err := logger.Init(opts); err != nil {
		return ctx, fmt.Errorf("initializing logger: %w", err)
	}

	a.cfg = cfg
	return ctx, nil
}
