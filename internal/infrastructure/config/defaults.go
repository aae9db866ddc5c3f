package config

import "time"

// SetDefaults sets default values for all configuration fields
func SetDefaults(cfg *Config) {
	// Parser defaults
	if cfg.Parser.PollInterval == 0 {
		cfg.Parser.PollInterval = 200 * time.Millisecond
	}
	if cfg.Parser.WaitTimeout == 0 {
		cfg.Parser.WaitTimeout = 300 * time.Second
	}
	if cfg.Parser.PriceTablePath == "" {
		cfg.Parser.PriceTablePath = "price_table.json"
	}
	if cfg.Parser.MapTablePath == "" {
		cfg.Parser.MapTablePath = "en_id_map_table.json"
	}
	if cfg.Parser.ExpTablePath == "" {
		cfg.Parser.ExpTablePath = "experience.json"
	}

	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}

	// Database defaults
	if cfg.Database.Path == "" {
		cfg.Database.Path = "oracle.db"
	}

	// Price book defaults
	if cfg.PriceDB.LocalPath == "" {
		cfg.PriceDB.LocalPath = "price_table.json"
	}

	// Inventory defaults
	if cfg.Inventory.UpdateInterval == 0 {
		cfg.Inventory.UpdateInterval = 5
	}

	// Logger defaults
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}

	// Daemon defaults
	if cfg.Daemon.PIDFile == "" {
		cfg.Daemon.PIDFile = "/tmp/oracle-daemon.pid"
	}
	if cfg.Daemon.ShutdownTimeout == 0 {
		cfg.Daemon.ShutdownTimeout = 10 * time.Second
	}
}
