// Package applog configures the process logger: console plus a
// rolling file the user can attach to bug reports.
package applog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "dmc3_rando_latest.log"

// Setup builds the root logger and installs it as the slog default.
// The returned closer flushes the rolling file.
func Setup(dir string, debug bool) (*slog.Logger, io.Closer) {
	roller := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    10, // megabytes
		MaxBackups: 10,
		Compress:   true,
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, roller), &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, roller
}
