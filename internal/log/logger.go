// Package log wraps zap with per-module levels.
package log

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	timestampKey  = "time"
	levelKey      = "level"
	moduleKey     = "logger"
	callerKey     = "caller"
	messageKey    = "msg"
	stacktraceKey = "stacktrace"
)

type Level int

const (
	DEBUG   = Level(zapcore.DebugLevel)
	INFO    = Level(zapcore.InfoLevel)
	WARNING = Level(zapcore.WarnLevel)
	ERROR   = Level(zapcore.ErrorLevel)
	PANIC   = Level(zapcore.PanicLevel)
	FATAL   = Level(zapcore.FatalLevel)

	defaultLevel = INFO
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARN"
	case ERROR:
		return "ERROR"
	case PANIC:
		return "PANIC"
	case FATAL:
		return "FATAL"
	default:
		return fmt.Sprintf("Level(%d)", l)
	}
}

func ParseLevel(level string) (Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARNING, nil
	case "ERROR":
		return ERROR, nil
	case "PANIC":
		return PANIC, nil
	case "FATAL":
		return FATAL, nil
	default:
		return ERROR, errors.New("logger: invalid log level")
	}
}

type Encoding = string

const (
	Console Encoding = "console"
	JSON    Encoding = "json"
)

var DefaultEncoding = Console

var levels = &moduleLevels{levels: make(map[string]Level)}

type options struct {
	encoding Encoding
	stdOut   zapcore.WriteSyncer
	stdErr   zapcore.WriteSyncer
	fields   []zap.Field
}

type Option func(o *options)

func WithStdOut(stdOut zapcore.WriteSyncer) Option {
	return func(o *options) {
		o.stdOut = stdOut
	}
}

func WithStdErr(stdErr zapcore.WriteSyncer) Option {
	return func(o *options) {
		o.stdErr = stdErr
	}
}

func WithFields(fields ...zap.Field) Option {
	return func(o *options) {
		o.fields = fields
	}
}

func WithEncoding(encoding Encoding) Option {
	return func(o *options) {
		o.encoding = encoding
	}
}

// Log is a module logger. Its level can be changed at runtime with SetLevel.
type Log struct {
	*zap.Logger
	module string
}

func New(module string, opts ...Option) *Log {
	o := &options{
		encoding: DefaultEncoding,
		stdOut:   os.Stdout,
		stdErr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Log{
		Logger: newZap(module, o.encoding, o.stdOut, o.stdErr).With(o.fields...),
		module: module,
	}
}

func (l *Log) IsEnabled(level Level) bool {
	return levels.isEnabled(l.module, level)
}

func SetLevel(module string, level Level) {
	levels.set(module, level)
}

func SetDefaultLevel(level Level) {
	levels.set("", level)
}

func GetLevel(module string) Level {
	return levels.get(module)
}

type moduleLevels struct {
	mu     sync.RWMutex
	levels map[string]Level
}

func (l *moduleLevels) get(module string) Level {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if level, ok := l.levels[module]; ok {
		return level
	}
	if level, ok := l.levels[""]; ok {
		return level
	}
	return defaultLevel
}

func (l *moduleLevels) set(module string, level Level) {
	l.mu.Lock()
	l.levels[module] = level
	l.mu.Unlock()
}

func (l *moduleLevels) isEnabled(module string, level Level) bool {
	return level >= l.get(module)
}

func newZap(module string, encoding Encoding, stdOut, stdErr zapcore.WriteSyncer) *zap.Logger {
	encoder := newZapEncoder(encoding)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(stdErr),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel && levels.isEnabled(module, Level(lvl))
			}),
		),
		zapcore.NewCore(encoder, zapcore.Lock(stdOut),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl < zapcore.ErrorLevel && levels.isEnabled(module, Level(lvl))
			}),
		),
	)

	return zap.New(core, zap.AddCaller()).Named(module)
}

func newZapEncoder(encoding Encoding) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        timestampKey,
		LevelKey:       levelKey,
		NameKey:        moduleKey,
		CallerKey:      callerKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     messageKey,
		StacktraceKey:  stacktraceKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if strings.ToLower(encoding) == JSON {
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	}

	cfg.EncodeName = func(moduleName string, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(fmt.Sprintf("[%s]", moduleName))
	}
	return zapcore.NewConsoleEncoder(cfg)
}
