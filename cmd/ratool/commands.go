package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/Faultbox/ratkit/internal/config"
	"github.com/Faultbox/ratkit/internal/logger"
	"github.com/Faultbox/ratkit/pkg/gltfimport"
	"github.com/Faultbox/ratkit/pkg/rat"
)

var errUsage = errors.New("wrong number of arguments")

func (a *app) exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Compress a glTF morph-target mesh into RAT files",
		ArgsUsage: "<in.glb|in.gltf> <out.rat>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "mesh", Usage: "mesh index in the glTF document"},
			&cli.IntFlag{Name: "steps", Usage: "frames between consecutive morph targets"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("%w: usage: ratool export %s", errUsage, cmd.ArgsUsage)
			}
			in, out := cmd.Args().Get(0), cmd.Args().Get(1)

			opts := gltfimport.Options{
				Mesh:           a.cfg.Import.Mesh,
				StepsPerTarget: a.cfg.Import.StepsPerTarget,
				Logger:         logger.Named("gltf"),
			}
			if cmd.IsSet("mesh") {
				opts.Mesh = cmd.Int("mesh")
			}
			if cmd.IsSet("steps") {
				opts.StepsPerTarget = cmd.Int("steps")
			}
			res, err := gltfimport.Load(in, opts)
			if err != nil {
				return err
			}

			texture := a.cfg.Export.TextureFilename
			if texture == "" {
				texture = res.TextureFilename
			}
			anim, err := rat.Compress(res.Frames, res.Topology, rat.CompressOptions{
				Bounds:          a.cfg.Export.QuantizationBounds(),
				MaxBitsPerAxis:  uint8(a.cfg.Export.MaxBitsPerAxis),
				TextureFilename: texture,
				Logger:          logger.Named("rat"),
			})
			if err != nil {
				return err
			}

			if a.cfg.Export.OutputDir != "" && !filepath.IsAbs(out) {
				out = filepath.Join(a.cfg.Export.OutputDir, out)
			}
			paths, err := rat.Write(anim, out, rat.WriteOptions{
				MaxFileSizeKB: a.cfg.Export.MaxFileSizeKB,
				Logger:        logger.Named("rat"),
			})
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			fmt.Fprintf(w, "Exported %s: %d vertices, %d frames, %s\n",
				in, anim.VertexCount, anim.FrameCount, anim.Version())
			return printFiles(w, paths)
		},
	}
}

func (a *app) infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show RAT file information",
		ArgsUsage: "<file.rat>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("%w: usage: ratool info %s", errUsage, cmd.ArgsUsage)
			}
			path := cmd.Args().First()
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			info, err := rat.Inspect(data)
			if err != nil {
				return fmt.Errorf("inspecting %s: %w", path, err)
			}
			anim, err := rat.Parse(data)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}

			h := info.Header
			w := cmd.Root().Writer
			fps := a.cfg.Playback.FrameRate
			fmt.Fprintf(w, "File:       %s (%s)\n", path, info.Version)
			fmt.Fprintf(w, "Size:       %s (static %s, deltas %s)\n",
				humanize.Bytes(uint64(info.FileSize)),
				humanize.Bytes(uint64(info.StaticSize)),
				humanize.Bytes(uint64(info.DeltaBytes)))
			fmt.Fprintf(w, "Vertices:   %s\n", humanize.Comma(int64(h.VertexCount)))
			fmt.Fprintf(w, "Triangles:  %s\n", humanize.Comma(int64(h.IndexCount/3)))
			fmt.Fprintf(w, "Frames:     %d (%.2fs at %g fps)\n", h.FrameCount, float64(h.FrameCount)/fps, fps)
			fmt.Fprintf(w, "Bits/frame: %d\n", anim.BitsPerFrame())
			fmt.Fprintf(w, "Bounds:     (%g, %g, %g) - (%g, %g, %g)\n",
				h.Min.X, h.Min.Y, h.Min.Z, h.Max.X, h.Max.Y, h.Max.Z)
			if anim.TextureFilename != "" {
				fmt.Fprintf(w, "Texture:    %s\n", anim.TextureFilename)
			}

			parts, err := rat.DiscoverParts(path)
			if err == nil && len(parts) > 1 {
				fmt.Fprintf(w, "Parts:      %d\n", len(parts))
				for _, p := range parts {
					fmt.Fprintf(w, "  %s\n", p)
				}
			}
			return nil
		},
	}
}

func (a *app) decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Print the vertex positions of one frame",
		ArgsUsage: "<file.rat>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "frame", Aliases: []string{"f"}, Usage: "frame index"},
			&cli.FloatFlag{Name: "time", Aliases: []string{"t"}, Usage: "playback time in seconds, at the configured frame rate"},
			&cli.BoolFlag{Name: "raw", Usage: "print quantized values instead of positions"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("%w: usage: ratool decode %s", errUsage, cmd.ArgsUsage)
			}
			anim, err := loadAnimation(cmd.Args().First())
			if err != nil {
				return err
			}

			var frame uint32
			switch {
			case cmd.IsSet("time"):
				frame = uint32(cmd.Float("time") * a.cfg.Playback.FrameRate)
			case cmd.IsSet("frame"):
				if cmd.Int("frame") < 0 {
					return fmt.Errorf("negative frame %d", cmd.Int("frame"))
				}
				frame = uint32(cmd.Int("frame"))
			}

			d := rat.NewDecoder(anim)
			if err := d.DecompressTo(frame); err != nil {
				return err
			}

			w := cmd.Root().Writer
			fmt.Fprintf(w, "# frame %d of %d\n", d.Frame(), anim.FrameCount)
			if cmd.Bool("raw") {
				for v, q := range d.Quantized() {
					fmt.Fprintf(w, "%d %d %d %d\n", v, q.X, q.Y, q.Z)
				}
				return nil
			}
			for v, p := range d.Positions() {
				fmt.Fprintf(w, "%d %g %g %g\n", v, p.X, p.Y, p.Z)
			}
			return nil
		},
	}
}

func (a *app) verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Decode every frame of RAT files",
		ArgsUsage: "<file.rat>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("%w: usage: ratool verify %s", errUsage, cmd.ArgsUsage)
			}
			w := cmd.Root().Writer
			failed := 0
			for _, path := range cmd.Args().Slice() {
				if err := verifyFile(path); err != nil {
					failed++
					logger.Error("verification failed", zap.String("path", path), zap.Error(err))
					fmt.Fprintf(w, "FAIL %s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(w, "ok   %s\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed verification", failed, cmd.Args().Len())
			}
			return nil
		},
	}
}

func verifyFile(path string) error {
	anim, err := loadAnimation(path)
	if err != nil {
		return err
	}
	d := rat.NewDecoder(anim)
	for f := uint32(0); f < anim.FrameCount; f++ {
		if err := d.DecompressTo(f); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) joinCommand() *cli.Command {
	return &cli.Command{
		Name:      "join",
		Usage:     "Join chunk files back into one RAT file",
		ArgsUsage: "<out.rat> <part.rat>...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "frames", Usage: "frame count of the joined animation (0 = derive from the stream)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 2 {
				return fmt.Errorf("%w: usage: ratool join %s", errUsage, cmd.ArgsUsage)
			}
			args := cmd.Args().Slice()
			if cmd.Int("frames") < 0 {
				return fmt.Errorf("negative frame count %d", cmd.Int("frames"))
			}
			anim, err := rat.ReadParts(args[1:], uint32(cmd.Int("frames")))
			if err != nil {
				return err
			}
			paths, err := rat.Write(anim, args[0], rat.WriteOptions{Logger: logger.Named("rat")})
			if err != nil {
				return err
			}
			return printFiles(cmd.Root().Writer, paths)
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the configuration file",
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Write the default configuration",
				ArgsUsage: "[path]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Default()
					path := cmd.Args().First()
					if path == "" {
						saved, err := cfg.Save()
						if err != nil {
							return err
						}
						path = saved
					} else if err := cfg.SaveTo(path); err != nil {
						return err
					}
					fmt.Fprintf(cmd.Root().Writer, "Wrote %s\n", path)
					return nil
				},
			},
		},
	}
}

// loadAnimation reads path, joining it with its sibling chunk files when
// it is one part of a split animation.
func loadAnimation(path string) (*rat.Animation, error) {
	parts, err := rat.DiscoverParts(path)
	if err != nil {
		return nil, err
	}
	if len(parts) == 1 {
		return rat.ReadFile(parts[0])
	}
	return rat.ReadParts(parts, 0)
}

func printFiles(w io.Writer, paths []string) error {
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s  %s\n", p, humanize.Bytes(uint64(st.Size())))
	}
	return nil
}
