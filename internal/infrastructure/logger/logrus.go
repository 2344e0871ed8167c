package logger

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Options параметры логгера
type Options struct {
	Level  string    // debug, info, warn, error
	Format string    // text или json
	Output io.Writer // по умолчанию stderr
}

// LogrusLogger реализация Logger поверх logrus
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger создает логгер с заданным уровнем и форматом
func NewLogrusLogger(opts Options) (*LogrusLogger, error) {
	base := logrus.New()

	level := opts.Level
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "уровень логирования %q", opts.Level)
	}
	base.SetLevel(parsed)

	switch strings.ToLower(opts.Format) {
	case "", "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Errorf("неизвестный формат логов %q", opts.Format)
	}

	if opts.Output != nil {
		base.SetOutput(opts.Output)
	} else {
		base.SetOutput(os.Stderr)
	}

	return FromLogrus(base), nil
}

// FromLogrus оборачивает готовый логгер logrus
func FromLogrus(l *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// Named возвращает логгер с полем component
func (l *LogrusLogger) Named(component string) *LogrusLogger {
	return &LogrusLogger{entry: l.entry.WithField("component", component)}
}

// Info логирует информационное сообщение
func (l *LogrusLogger) Info(msg string, args ...interface{}) {
	l.entry.Infof(msg, args...)
}

// Warn логирует предупреждение
func (l *LogrusLogger) Warn(msg string, args ...interface{}) {
	l.entry.Warnf(msg, args...)
}

// Error логирует сообщение об ошибке
func (l *LogrusLogger) Error(msg string, args ...interface{}) {
	l.entry.Errorf(msg, args...)
}

// Debug логирует отладочное сообщение
func (l *LogrusLogger) Debug(msg string, args ...interface{}) {
	l.entry.Debugf(msg, args...)
}
