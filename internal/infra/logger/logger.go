package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// EnvProduction selects JSON output and production sampling.
const EnvProduction = "production"

// Config drives how the zap logger is built.
type Config struct {
	// Env is the deployment environment (APP_ENV). Anything but "production"
	// gets the colored console encoder.
	Env      string
	Level    string
	Encoding string
	// Service is attached to every entry, together with Env.
	Service string
}

// FromEnv reads APP_ENV and LOG_LEVEL for the named service.
func FromEnv(service string) Config {
	return Config{
		Env:     os.Getenv("APP_ENV"),
		Level:   os.Getenv("LOG_LEVEL"),
		Service: service,
	}
}

// Development reports whether cfg describes a non-production environment.
func (c Config) Development() bool {
	return c.Env != EnvProduction
}

var (
	mu     sync.Mutex
	global *zap.Logger
)

// MustInit builds the process logger, installs it as zap's global and panics on bad config.
func MustInit(cfg Config) *zap.Logger {
	l, err := New(cfg)
	if err != nil {
		panic(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		_ = global.Sync()
	}
	global = l
	zap.ReplaceGlobals(l)
	return l
}

// Sync flushes the logger installed by MustInit. Errors from syncing a
// terminal are ignored.
func Sync() error {
	mu.Lock()
	l := global
	mu.Unlock()
	if l == nil {
		return nil
	}

	err := l.Sync()
	if errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) || errors.Is(err, os.ErrInvalid) {
		return nil
	}
	return err
}

// New returns a zap.Logger configured according to cfg.
func New(cfg Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development() {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if cfg.Encoding != "" {
		zapCfg.Encoding = cfg.Encoding
	}
	zapCfg.EncoderConfig = encoderConfig(zapCfg.Encoding == "console", useColor(os.Stdout))

	if cfg.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("logger: invalid level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	fields := make([]zap.Field, 0, 2)
	if cfg.Service != "" {
		fields = append(fields, zap.String("service", cfg.Service))
	}
	if cfg.Env != "" {
		fields = append(fields, zap.String("env", cfg.Env))
	}

	return zapCfg.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(fields...),
	)
}

func encoderConfig(console, color bool) zapcore.EncoderConfig {
	enc := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
	}
	if !console {
		return enc
	}

	enc.ConsoleSeparator = " | "
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	enc.EncodeLevel = func(level zapcore.Level, pae zapcore.PrimitiveArrayEncoder) {
		label := fmt.Sprintf("%-5s", level.CapitalString())
		if color {
			label = levelColor(level) + label + colorReset
		}
		pae.AppendString(label)
	}
	return enc
}

func useColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

const colorReset = "\x1b[0m"

func levelColor(level zapcore.Level) string {
	switch {
	case level >= zapcore.DPanicLevel && level < zapcore.FatalLevel:
		return "\x1b[35m"
	case level >= zapcore.ErrorLevel:
		return "\x1b[31m"
	case level == zapcore.WarnLevel:
		return "\x1b[33m"
	case level == zapcore.DebugLevel:
		return "\x1b[36m"
	default:
		return "\x1b[32m"
	}
}

