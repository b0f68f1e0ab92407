package config

import (
	"secureshield-assistant/internal/logger"

	"github.com/spf13/cobra"
)

// Flags are the persistent flags every binary accepts.
type Flags struct {
	ConfigPath string
	LogLevel   string
	LogJSON    bool
}

// Register adds the flags to cmd as persistent flags.
func (f *Flags) Register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.ConfigPath, "config", "", "path to a YAML config file")
	pf.StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn, error (overrides log.level)")
	pf.BoolVar(&f.LogJSON, "log-json", false, "emit JSON logs (overrides log.json)")
}

// Load reads the configuration, applies the logging flags and sets up the
// default logger.
func (f *Flags) Load() (*Config, logger.Logger, error) {
	cfg, err := Load(f.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogJSON {
		cfg.Log.JSON = true
	}
	return cfg, logger.Setup(cfg.Log.Level, cfg.Log.JSON), nil
}
