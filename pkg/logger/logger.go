package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options describes how a binary wants its log output.
type Options struct {
	Service    string
	Production bool
	Level      string
}

// The package logs to a development logger until a binary calls Configure.
// LOG_ENV and LOG_LEVEL apply to that default as well.
func init() {
	if _, err := build(Options{
		Production: os.Getenv("LOG_ENV") == "production",
		Level:      os.Getenv("LOG_LEVEL"),
	}); err != nil {
		panic(err)
	}
}

// Configure replaces the package logger. Every entry then carries the
// service name, which is how the api, processor and realtime binaries are
// told apart in a shared sink.
func Configure(opts Options) error {
	_, err := build(opts)
	return err
}

func build(opts Options) (*ZapLogger, error) {
	var config zap.Config
	if opts.Production {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}
	if lvl := strings.TrimSpace(opts.Level); lvl != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(lvl)); err == nil {
			config.Level = zap.NewAtomicLevelAt(l)
		}
	}
	if opts.Service != "" {
		config.InitialFields = map[string]any{"service": opts.Service}
	}
	return NewLogger(config)
}

func Info(msg string, values ...any) {
	GetLogger().Info(msg, values...)
}

func Warn(msg string, values ...any) {
	GetLogger().Warn(msg, values...)
}

func Error(msg string, values ...any) {
	GetLogger().Error(msg, values...)
}

func Debug(msg string, values ...any) {
	GetLogger().Debug(msg, values...)
}

func Panic(msg string, values ...any) {
	GetLogger().Panic(msg, values...)
}

func Fatal(error error, values ...any) {
	GetLogger().Fatal(error, values...)
}

// With returns a child logger that always carries the given key/value pairs.
func With(values ...any) *ZapLogger {
	return GetLogger().With(values...)
}
