package logger

import "go.uber.org/zap"

type ZapLogger struct {
	log *zap.SugaredLogger
}

var zapLogger *ZapLogger

// NewLogger builds a logger from config and installs it as the package
// logger. The previous one is flushed first.
func NewLogger(config zap.Config) (*ZapLogger, error) {
	built, err := config.Build()
	if err != nil {
		return nil, err
	}
	built = built.WithOptions(zap.AddCallerSkip(2))
	if zapLogger != nil {
		_ = zapLogger.log.Sync()
	}
	zapLogger = &ZapLogger{log: built.Sugar()}
	return zapLogger, nil
}

func GetLogger() *ZapLogger {
	if zapLogger == nil {
		panic("logger not initialized")
	}
	return zapLogger
}

func (l *ZapLogger) Panic(message string, values ...any) {
	l.log.Panicw(message, values...)
}

func (l *ZapLogger) Fatal(error error, values ...any) {
	l.log.Fatalw(error.Error(), values...)
}

func (l *ZapLogger) Info(message string, values ...any) {
	l.log.Infow(message, values...)
}

func (l *ZapLogger) Warn(message string, values ...any) {
	l.log.Warnw(message, values...)
}

func (l *ZapLogger) Error(message string, values ...any) {
	l.log.Errorw(message, values...)
}

func (l *ZapLogger) Debug(message string, values ...any) {
	l.log.Debugw(message, values...)
}

// With keeps the caller skip of the parent, so child loggers are used
// through their methods directly rather than the package functions.
func (l *ZapLogger) With(values ...any) *ZapLogger {
	return &ZapLogger{log: l.log.WithOptions(zap.AddCallerSkip(-1)).With(values...)}
}

// Sync flushes buffered entries; binaries call it before exit.
func Sync() {
	if zapLogger != nil {
		_ = zapLogger.log.Sync()
	}
}

// Printf lets the logger serve as fasthttp's server logger.
func (l *ZapLogger) Printf(format string, args ...any) {
	l.log.Infof(format, args...)
}
