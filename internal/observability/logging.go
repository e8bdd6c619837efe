// Package observability wires process-wide logging.
//
// CLI commands log human-readable lines to stderr so stdout stays clean for
// command output (tables, JSON). The server uses structured JSON logging.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process logger for CLI commands. It defaults to a no-op
// logger until Init is called, so packages can log unconditionally.
var CLILogger = zap.NewNop()

// Init builds the process logger for the given profile ("console" or
// "structured") and level, and installs it as CLILogger.
func Init(profile, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch profile {
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
	case "structured":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown logging profile %q", profile)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	CLILogger = logger
	return logger, nil
}

// Sync flushes buffered log entries. Safe to call at process exit.
func Sync() {
	_ = CLILogger.Sync()
}
