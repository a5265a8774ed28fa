// Package logger provides structured logging for the step filter service
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"notify-step-filter/config"
)

// Logger wraps a zap sugared logger with key-value style methods
type Logger struct {
	log *zap.SugaredLogger
}

// NewLogger creates a logger from the logging configuration
func NewLogger(cfg *config.LogConfig) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch cfg.Encoding {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	var sink zapcore.WriteSyncer
	if cfg.OutputPath == "" || cfg.OutputPath == "stdout" {
		stdout, _, err := zap.Open("stdout")
		if err != nil {
			return nil, err
		}
		sink = stdout
	} else {
		// File output goes through lumberjack for rotation
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.OutputPath,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		})
	}

	core := zapcore.NewCore(encoder, sink, level)
	return &Logger{log: zap.New(core).Sugar()}, nil
}

// NewNop returns a logger that discards everything; intended for tests
func NewNop() *Logger {
	return &Logger{log: zap.NewNop().Sugar()}
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// Debug logs a message at Debug level with key-value pairs
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log.Debugw(msg, args...)
}

// Info logs a message at Info level with key-value pairs
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log.Infow(msg, args...)
}

// Warn logs a message at Warn level with key-value pairs
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log.Warnw(msg, args...)
}

// Error logs a message at Error level with key-value pairs
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log.Errorw(msg, args...)
}

// Fatal logs a message at Fatal level and exits the program
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log.Fatalw(msg, args...)
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.log.Sync()
}
