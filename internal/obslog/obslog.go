package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 전역 로거. 초기화 전에는 Nop.
var globalLogger = zap.NewNop()

// L returns the process-wide logger.
func L() *zap.Logger { return globalLogger }

// Replace swaps the global logger and returns a func restoring the old one.
func Replace(l *zap.Logger) func() {
	prev := globalLogger
	if l == nil {
		l = zap.NewNop()
	}
	globalLogger = l
	return func() { globalLogger = prev }
}

// Options controls where and how log lines are written.
type Options struct {
	Level   zapcore.Level
	Format  string // legacy | json | console
	Console bool
	File    string // empty disables the file core
	Caller  bool
}

// OptionsFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_TO_CONSOLE, LOG_TO_FILE,
// LOG_FILE and LOG_CALLER.
func OptionsFromEnv() Options {
	opts := Options{
		Level:   parseLevel(getenvDefault("LOG_LEVEL", "info")),
		Format:  normalizeFormat(getenvDefault("LOG_FORMAT", "legacy")),
		Console: strings.EqualFold(getenvDefault("LOG_TO_CONSOLE", "true"), "true"),
		Caller:  strings.EqualFold(getenvDefault("LOG_CALLER", "false"), "true"),
	}
	if strings.EqualFold(getenvDefault("LOG_TO_FILE", "false"), "true") {
		opts.File = strings.TrimSpace(getenvDefault("LOG_FILE", filepath.Join("logs", "report.log")))
	}
	return opts
}

// InitFromEnv builds a logger from the environment and installs it globally.
func InitFromEnv() error {
	logger, err := New(OptionsFromEnv())
	if err != nil {
		return err
	}
	globalLogger = logger
	return nil
}

// New builds a zap logger with a stdout core and an optional append-only
// file core sharing one encoder format.
func New(opts Options) (*zap.Logger, error) {
	format := normalizeFormat(opts.Format)
	var cores []zapcore.Core

	if opts.Console {
		cores = append(cores, zapcore.NewCore(encoderFor(format), zapcore.AddSync(os.Stdout), opts.Level))
	}

	if opts.File != "" {
		if err := ensureDir(filepath.Dir(opts.File)); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoderFor(format), zapcore.AddSync(f), opts.Level))
	}

	if len(cores) == 0 {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), opts.Level))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	// legacy 포맷은 항상 caller 표시
	if opts.Caller || format == "legacy" {
		logger = logger.WithOptions(zap.AddCaller())
	}
	return logger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func encoderFor(format string) zapcore.Encoder {
	switch format {
	case "json":
		return zapcore.NewJSONEncoder(jsonEncoderConfig())
	case "console":
		return zapcore.NewConsoleEncoder(consoleEncoderConfig())
	default:
		return zapcore.NewConsoleEncoder(legacyEncoderConfig())
	}
}

func normalizeFormat(s string) string {
	f := strings.ToLower(strings.TrimSpace(s))
	switch f {
	case "legacy", "json", "console":
		return f
	default:
		return "legacy"
	}
}

func ensureDir(dir string) error {
	if strings.TrimSpace(dir) == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		if strings.EqualFold(strings.TrimSpace(s), "warning") {
			return zapcore.WarnLevel
		}
		return zapcore.InfoLevel
	}
	return lvl
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func legacyEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " | "
	return cfg
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}
