package config

// Overrides carries command-line settings. Zero values and nil pointers
// leave the loaded configuration untouched.
type Overrides struct {
	ConfigPath      string // explicit config file, skips discovery
	Debug           bool
	LogFile         string
	MaxFileSizeKB   *int
	MaxBitsPerAxis  *int
	TextureFilename string
	OutputDir       string
	FrameRate       float64
}

// apply applies command-line overrides to the config.
func (ov Overrides) apply(cfg *Config) {
	if ov.Debug {
		cfg.Logging.Level = "debug"
	}
	if ov.LogFile != "" {
		cfg.Logging.LogFile = ov.LogFile
	}
	if ov.MaxFileSizeKB != nil {
		cfg.Export.MaxFileSizeKB = *ov.MaxFileSizeKB
	}
	if ov.MaxBitsPerAxis != nil {
		cfg.Export.MaxBitsPerAxis = *ov.MaxBitsPerAxis
	}
	if ov.TextureFilename != "" {
		cfg.Export.TextureFilename = ov.TextureFilename
	}
	if ov.OutputDir != "" {
		cfg.Export.OutputDir = ov.OutputDir
	}
	if ov.FrameRate > 0 {
		cfg.Playback.FrameRate = ov.FrameRate
	}
}
