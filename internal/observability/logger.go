// Package observability owns the process-wide zap logger. Console
// output goes to stderr only: stdout belongs to the MCP protocol and to
// piped screenshots.
package observability

import (
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger atomic.Pointer[zap.Logger]
	once         sync.Once
)

// Config controls logger construction.
type Config struct {
	// Verbose lowers the console level from info to debug.
	Verbose bool
	// LogFile enables a rotating JSON file core when non-empty.
	LogFile string
}

// Initialize builds the global logger. Safe to call more than once;
// only the first call wins.
func Initialize(cfg Config) {
	once.Do(func() {
		level := zap.InfoLevel
		if cfg.Verbose {
			level = zap.DebugLevel
		}

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

		consoleCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			level,
		)
		cores := []zapcore.Core{consoleCore}

		if cfg.LogFile != "" {
			fileWriter := zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     7, // days
			})
			fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), fileWriter, level)
			cores = append(cores, fileCore)
		}

		logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel)).Named("opdroid")
		globalLogger.Store(logger)
		zap.ReplaceGlobals(logger)
	})
}

// Logger returns the global logger, falling back to a nop logger when
// Initialize has not run (tests, library use).
func Logger() *zap.Logger {
	if l := globalLogger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// Sync flushes buffered entries; call before process exit. Stderr sync
// errors on some platforms are expected and ignored.
func Sync() {
	if l := globalLogger.Load(); l != nil {
		_ = l.Sync()
	}
}
