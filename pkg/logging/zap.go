package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger implements Logger on top of uber-go/zap.
type zapLogger struct {
	logger *zap.Logger
	atom   zap.AtomicLevel
}

// ZapOption configures the zap backend
type ZapOption func(*zapSettings)

type zapSettings struct {
	development bool
	level       Level
	outputPaths []string
}

// WithDevelopmentMode switches to zap's console encoder with verbose output
func WithDevelopmentMode() ZapOption {
	return func(s *zapSettings) { s.development = true }
}

// WithLogLevel sets the initial level
func WithLogLevel(level Level) ZapOption {
	return func(s *zapSettings) { s.level = level }
}

// WithOutputPaths overrides where entries are written
func WithOutputPaths(paths ...string) ZapOption {
	return func(s *zapSettings) { s.outputPaths = paths }
}

// NewZapLogger creates a zap-backed Logger. Falls back to the default JSON
// backend if the zap core cannot be built.
func NewZapLogger(options ...ZapOption) Logger {
	settings := &zapSettings{level: INFO, outputPaths: []string{"stdout"}}
	for _, opt := range options {
		opt(settings)
	}

	config := zap.NewProductionConfig()
	if settings.development {
		config = zap.NewDevelopmentConfig()
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = settings.outputPaths

	atom := zap.NewAtomicLevelAt(zapLevel(settings.level))
	config.Level = atom

	logger, err := config.Build(zap.AddCaller(), zap.AddCallerSkip(1))
	if err != nil {
		return NewLogger()
	}

	return &zapLogger{logger: logger, atom: atom}
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}

func (l *zapLogger) Debug(msg string, fields ...Field) {
	l.logger.Debug(msg, zapFields(fields)...)
}

func (l *zapLogger) Info(msg string, fields ...Field) {
	l.logger.Info(msg, zapFields(fields)...)
}

func (l *zapLogger) Warn(msg string, fields ...Field) {
	l.logger.Warn(msg, zapFields(fields)...)
}

func (l *zapLogger) Error(msg string, fields ...Field) {
	l.logger.Error(msg, zapFields(fields)...)
}

func (l *zapLogger) WithFields(fields ...Field) Logger {
	return &zapLogger{
		logger: l.logger.With(zapFields(fields)...),
		atom:   l.atom,
	}
}

func (l *zapLogger) SetLevel(level Level) {
	l.atom.SetLevel(zapLevel(level))
}

// Close flushes buffered entries
func (l *zapLogger) Close() error {
	return l.logger.Sync()
}
