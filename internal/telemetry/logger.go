// Package telemetry provides leveled, component-tagged logging for the
// ddtengine packages (registry, transfer controller, engine, bench driver).
package telemetry

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Level represents the available log levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "LEVEL(?)"
	}
}

// Field is a single structured key/value attached to a log record.
type Field struct {
	Key   string
	Value any
}

// Config holds logging configuration.
type Config struct {
	Level  Level
	Output io.Writer
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Logger is a leveled logger that carries a component tag and a set of
// fields inherited by every record it emits. Child loggers produced by With
// share the parent's output stream and mutex, so records from different
// components of one engine interleave without tearing.
type Logger struct {
	out       io.Writer
	mu        *sync.Mutex
	level     Level
	component string
	fields    []Field
}

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

// New creates a root logger with no component tag.
func New(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	return &Logger{
		out:   output,
		mu:    &sync.Mutex{},
		level: config.Level,
	}
}

// Default returns the package default logger, creating it if necessary.
func Default() *Logger {
	defaultMu.RLock()
	if defaultLogger != nil {
		defer defaultMu.RUnlock()
		return defaultLogger
	}
	defaultMu.RUnlock()

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(nil)
	}
	return defaultLogger
}

// SetDefault sets the package default logger.
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// With returns a derived logger tagged with component, carrying any
// baseFields that every record emitted through it should include (e.g. a
// transfer's handle). The derived logger shares the parent's output and
// lock, so it never needs its own SetDefault wiring.
func (l *Logger) With(component string, baseFields ...any) *Logger {
	child := &Logger{
		out:       l.out,
		mu:        l.mu,
		level:     l.level,
		component: component,
		fields:    append(append([]Field{}, l.fields...), pairsToFields(baseFields)...),
	}
	return child
}

func pairsToFields(args []any) []Field {
	if len(args) == 0 {
		return nil
	}
	fields := make([]Field, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", args[i])
		}
		fields = append(fields, Field{Key: key, Value: args[i+1]})
	}
	return fields
}

func formatValue(v any) string {
	s := fmt.Sprintf("%v", v)
	if s == "" || strings.ContainsAny(s, " \t\"") {
		return strconv.Quote(s)
	}
	return s
}

func (l *Logger) render(level Level, msg string, fields []Field) string {
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')
	b.WriteString(level.String())
	if l.component != "" {
		b.WriteByte(' ')
		b.WriteByte('[')
		b.WriteString(l.component)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(formatValue(f.Value))
	}
	return b.String()
}

func (l *Logger) log(level Level, msg string, args ...any) {
	if level < l.level {
		return
	}
	all := append(append([]Field{}, l.fields...), pairsToFields(args)...)
	line := l.render(level, msg, all)
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, line)
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }
