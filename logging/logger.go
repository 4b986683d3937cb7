package logging

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	WithField(key string, value interface{}) Logger
	WithFields(fields logrus.Fields) Logger
	WithError(err error) Logger

	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	SetLevel(level logrus.Level)
}

type logger struct {
	*logrus.Entry
}

func New() Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return &logger{Entry: logrus.NewEntry(l)}
}

// Discard returns a logger that drops everything, used in tests.
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return &logger{Entry: logrus.NewEntry(l)}
}

func (l *logger) WithField(key string, value interface{}) Logger {
	return &logger{Entry: l.Entry.WithField(key, value)}
}

func (l *logger) WithFields(fields logrus.Fields) Logger {
	return &logger{Entry: l.Entry.WithFields(fields)}
}

func (l *logger) WithError(err error) Logger {
	return &logger{Entry: l.Entry.WithError(err)}
}

func (l *logger) SetLevel(level logrus.Level) {
	l.Entry.Logger.SetLevel(level)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

type ctxKey struct{}

func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func LoggerFromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return New()
}
