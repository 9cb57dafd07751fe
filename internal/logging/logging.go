// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging holds the process-wide structured logger.
//
// The logger is a no-op until Set is called. The TUI logs to a file so the
// terminal is not corrupted; the CLI and server log to stderr.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu            sync.RWMutex
	defaultLogger = zap.NewNop()
)

// Get returns the current logger. Never nil.
func Get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Set builds a console logger at the given level writing to outputPath
// ("stderr", "stdout" or a file path) and installs it as the process logger.
func Set(level, outputPath string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}
	if outputPath == "" {
		outputPath = "stderr"
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Development:      lvl == zapcore.DebugLevel,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{outputPath},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	Replace(logger)
	return nil
}

// Replace installs logger as the process logger. A nil logger installs a no-op.
func Replace(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mu.Lock()
	defaultLogger = logger
	mu.Unlock()
}

// Flush flushes buffered log entries.
func Flush() {
	_ = Get().Sync()
}
