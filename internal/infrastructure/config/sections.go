package config

import (
	"strings"
	"time"
)

// ParserConfig controls the log tailer and parser fabric.
type ParserConfig struct {
	// Absolute path to the game log file to follow
	LogPath string `mapstructure:"log_path" validate:"required"`

	// When true, every published parser event is appended to a rotating
	// event log next to the daemon log
	Log bool `mapstructure:"log"`

	// Poll delay once the tailer has caught up with the file
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// How long the tailer waits for a missing log file before failing
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`

	// Reference data files (item names/prices, map table, level exp table)
	PriceTablePath string `mapstructure:"price_table_path"`
	MapTablePath   string `mapstructure:"map_table_path"`
	ExpTablePath   string `mapstructure:"exp_table_path"`
}

// ServerConfig holds the HTTP bind address.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

// DatabaseConfig holds the SQLite store location.
type DatabaseConfig struct {
	// File path, or ":memory:" for an ephemeral store
	Path string `mapstructure:"path" validate:"required"`
}

// PriceDBConfig controls price book refresh.
type PriceDBConfig struct {
	// Optional remote URL; when empty the local file is authoritative
	URL string `mapstructure:"url" validate:"omitempty,url"`

	// Local price JSON fallback
	LocalPath string `mapstructure:"local_path"`
}

// InventoryConfig controls inventory persistence.
type InventoryConfig struct {
	// Minimum seconds between flushes of dirty slots to storage
	UpdateInterval int `mapstructure:"update_interval" validate:"min=1"`
}

// LoggerConfig holds log level and output configuration. Any key other than
// the named fields is a per-component level override, e.g.
//
//	[logger]
//	level = "info"
//	MapService = "debug"
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error"`

	// Optional rotating log file; empty means stderr only
	File string `mapstructure:"file"`

	Components map[string]string `mapstructure:",remain"`
}

// LevelFor returns the level override for a component, or the global level.
// Viper lowercases config keys, so the lookup is case-insensitive.
func (c LoggerConfig) LevelFor(component string) string {
	for name, level := range c.Components {
		if strings.EqualFold(name, component) {
			return level
		}
	}
	return c.Level
}

// DaemonConfig holds process management settings.
type DaemonConfig struct {
	PIDFile         string        `mapstructure:"pid_file"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}
