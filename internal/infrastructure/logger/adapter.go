package logger

import (
	"browser-replay/internal/application/port/output"

	"go.uber.org/zap"
)

var _ output.LoggerPort = (*LoggerAdapter)(nil)

type LoggerAdapter struct {
	sugar *zap.SugaredLogger
	sync  func() error
}

func NewLoggerAdapter(cfg Config) (*LoggerAdapter, error) {
	base, err := build(cfg)
	if err != nil {
		return nil, err
	}
	return &LoggerAdapter{
		sugar: base.Sugar(),
		sync:  base.Sync,
	}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *LoggerAdapter {
	return &LoggerAdapter{
		sugar: zap.NewNop().Sugar(),
		sync:  func() error { return nil },
	}
}

// FromZap wraps an existing zap logger, mostly for tests using zaptest/observer.
func FromZap(l *zap.Logger) *LoggerAdapter {
	return &LoggerAdapter{sugar: l.Sugar(), sync: l.Sync}
}

func (l *LoggerAdapter) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l *LoggerAdapter) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *LoggerAdapter) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *LoggerAdapter) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

func (l *LoggerAdapter) WithField(key string, value any) output.LoggerPort {
	return &LoggerAdapter{sugar: l.sugar.With(key, value), sync: l.sync}
}

func (l *LoggerAdapter) WithFields(fields map[string]any) output.LoggerPort {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &LoggerAdapter{sugar: l.sugar.With(args...), sync: l.sync}
}

func (l *LoggerAdapter) Named(name string) output.LoggerPort {
	return &LoggerAdapter{sugar: l.sugar.Named(name), sync: l.sync}
}

func (l *LoggerAdapter) Close() error {
	if l.sync == nil {
		return nil
	}
	// Sync on a terminal stdout returns EINVAL/ENOTTY; nothing is lost.
	_ = l.sync()
	return nil
}
