package config

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogWriter is the writer used for application and database logs.
var LogWriter io.Writer = os.Stdout

// Logger is the application logger. It logs to stdout until InitLogging runs.
var Logger = logrus.New()

// LogFilePath returns the path to the backend log file.
func LogFilePath(c LogConfig) string {
	return filepath.Join(c.Path, c.File)
}

// InitLogging configures Logger with a rotating file next to stdout.
func InitLogging(cfg *Config) *logrus.Logger {
	lc := cfg.Log

	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	Logger.SetLevel(level)

	format := lc.Format
	if format == "" {
		format = "json"
		if cfg.IsDevelopment() {
			format = "text"
		}
	}
	if format == "json" {
		Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.000"})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000"})
	}

	if err := os.MkdirAll(lc.Path, os.ModePerm); err != nil {
		Logger.WithError(err).Warn("failed to create logs directory, logging to stdout only")
		LogWriter = os.Stdout
	} else {
		LogWriter = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   LogFilePath(lc),
			MaxSize:    lc.MaxSize,
			MaxBackups: lc.MaxBackups,
			MaxAge:     lc.MaxAge,
			Compress:   lc.Compress,
		})
	}

	Logger.SetOutput(LogWriter)
	log.SetOutput(LogWriter)
	return Logger
}
