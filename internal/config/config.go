// Package config handles ratool configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/ratkit/pkg/math"
	"github.com/Faultbox/ratkit/pkg/rat"
)

// FileName is the config file looked up in the working directory and the
// user config directory.
const FileName = "ratool.yaml"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all ratool settings.
type Config struct {
	Export   ExportConfig   `yaml:"export"`
	Playback PlaybackConfig `yaml:"playback"`
	Import   ImportConfig   `yaml:"import"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ExportConfig holds RAT export settings.
type ExportConfig struct {
	MaxFileSizeKB   int           `yaml:"max_file_size_kb"`  // 0 disables splitting
	MaxBitsPerAxis  int           `yaml:"max_bits_per_axis"` // 0 is natural mode
	TextureFilename string        `yaml:"texture_filename"`  // overrides the material texture
	OutputDir       string        `yaml:"output_dir"`
	Bounds          *BoundsConfig `yaml:"bounds,omitempty"`
}

// BoundsConfig is a fixed quantization box.
type BoundsConfig struct {
	Min [3]float32 `yaml:"min"`
	Max [3]float32 `yaml:"max"`
}

// PlaybackConfig holds decoder settings.
type PlaybackConfig struct {
	FrameRate float64 `yaml:"frame_rate"`
}

// ImportConfig holds glTF import settings.
type ImportConfig struct {
	Mesh           int `yaml:"mesh"`
	StepsPerTarget int `yaml:"steps_per_target"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			MaxFileSizeKB:  64,
			MaxBitsPerAxis: 0,
		},
		Playback: PlaybackConfig{
			FrameRate: 30,
		},
		Import: ImportConfig{
			Mesh:           0,
			StepsPerTarget: 10,
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	switch {
	case c.Export.MaxFileSizeKB < 0:
		return fmt.Errorf("%w: export.max_file_size_kb is %d", ErrInvalidConfig, c.Export.MaxFileSizeKB)
	case c.Export.MaxBitsPerAxis < 0 || c.Export.MaxBitsPerAxis > rat.MaxBitWidth:
		return fmt.Errorf("%w: export.max_bits_per_axis must be 0-%d, got %d",
			ErrInvalidConfig, rat.MaxBitWidth, c.Export.MaxBitsPerAxis)
	case c.Playback.FrameRate <= 0:
		return fmt.Errorf("%w: playback.frame_rate must be positive, got %g", ErrInvalidConfig, c.Playback.FrameRate)
	case c.Import.Mesh < 0:
		return fmt.Errorf("%w: import.mesh is %d", ErrInvalidConfig, c.Import.Mesh)
	case c.Import.StepsPerTarget < 1:
		return fmt.Errorf("%w: import.steps_per_target must be at least 1, got %d",
			ErrInvalidConfig, c.Import.StepsPerTarget)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown logging.level %q", ErrInvalidConfig, c.Logging.Level)
	}
	if b := c.Export.Bounds; b != nil {
		for axis := 0; axis < 3; axis++ {
			if b.Max[axis] < b.Min[axis] {
				return fmt.Errorf("%w: export.bounds max < min on axis %d", ErrInvalidConfig, axis)
			}
		}
	}
	return nil
}

// QuantizationBounds returns the configured bounds, or nil to compute them
// from the frames.
func (e ExportConfig) QuantizationBounds() *rat.Bounds {
	if e.Bounds == nil {
		return nil
	}
	return &rat.Bounds{
		Min: math.Vec3{X: e.Bounds.Min[0], Y: e.Bounds.Min[1], Z: e.Bounds.Min[2]},
		Max: math.Vec3{X: e.Bounds.Max[0], Y: e.Bounds.Max[1], Z: e.Bounds.Max[2]},
	}
}
