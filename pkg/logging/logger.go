// Package logging defines the structured logger used across the library.
// The default backend writes JSON lines; a zap-backed implementation is
// available for applications that already run zap.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is the severity of a log entry
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel maps a level name to a Level. Unknown names map to INFO.
func ParseLevel(name string) Level {
	switch name {
	case "debug":
		return DEBUG
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Field is one key-value attribute of a log entry.
type Field struct {
	Key   string
	Value interface{}
}

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Error(err error) Field {
	return Field{Key: "error", Value: err.Error()}
}

// Logger is the logging interface consumed by every component. WithFields
// derives a logger whose entries all carry the given attributes.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	WithFields(fields ...Field) Logger
	SetLevel(level Level)
}

// jsonLogger is the default backend. One JSON object per entry, one line
// per object.
type jsonLogger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
	base  []Field
}

// NewLogger creates a logger writing to stdout at INFO.
func NewLogger() Logger {
	return &jsonLogger{out: os.Stdout, level: INFO}
}

func (l *jsonLogger) Debug(msg string, fields ...Field) { l.emit(DEBUG, msg, fields) }
func (l *jsonLogger) Info(msg string, fields ...Field)  { l.emit(INFO, msg, fields) }
func (l *jsonLogger) Warn(msg string, fields ...Field)  { l.emit(WARN, msg, fields) }
func (l *jsonLogger) Error(msg string, fields ...Field) { l.emit(ERROR, msg, fields) }

func (l *jsonLogger) WithFields(fields ...Field) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	child := &jsonLogger{out: l.out, level: l.level}
	child.base = append(append(child.base, l.base...), fields...)
	return child
}

func (l *jsonLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *jsonLogger) emit(level Level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	entry := make(map[string]interface{}, 3+len(l.base)+len(fields))
	entry["ts"] = time.Now().Format(time.RFC3339)
	entry["level"] = level.String()
	entry["msg"] = msg
	for _, f := range l.base {
		entry[f.Key] = f.Value
	}
	for _, f := range fields {
		entry[f.Key] = f.Value
	}

	line, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: cannot marshal entry: %v\n", err)
		return
	}
	fmt.Fprintf(l.out, "%s\n", line)
}
