// Package logging provides component-scoped logrus entries. Every subsystem
// logs through Component("Name"); the level can be tuned per component from
// the [logger] config section without touching the others.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/GeorgeTG/oracle/internal/infrastructure/config"
)

type registry struct {
	mu      sync.Mutex
	cfg     config.LoggerConfig
	output  io.Writer
	loggers map[string]*logrus.Logger
}

var global = &registry{
	output:  os.Stderr,
	loggers: make(map[string]*logrus.Logger),
	cfg:     config.LoggerConfig{Level: "info"},
}

// Setup applies the logger configuration. Loggers created before Setup keep
// working but pick up levels only when created after it, so call this first
// thing in main.
func Setup(cfg config.LoggerConfig) {
	global.mu.Lock()
	defer global.mu.Unlock()

	global.cfg = cfg
	global.output = os.Stderr
	if cfg.File != "" {
		global.output = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}

	for name, logger := range global.loggers {
		logger.SetOutput(global.output)
		logger.SetLevel(parseLevel(cfg.LevelFor(name)))
	}
}

// Component returns a logger entry scoped to one subsystem.
func Component(name string) *logrus.Entry {
	global.mu.Lock()
	defer global.mu.Unlock()

	logger, ok := global.loggers[name]
	if !ok {
		logger = logrus.New()
		logger.SetOutput(global.output)
		logger.SetLevel(parseLevel(global.cfg.LevelFor(name)))
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
		global.loggers[name] = logger
	}

	return logger.WithField("component", name)
}

func parseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}
