package logger

import (
	"io"
	"os"

	"github.com/samvad-hq/analytics-console/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logging surface used across packages.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) InfoObj(string, string, interface{})  {}
func (NopLogger) DebugObj(string, string, interface{}) {}
func (NopLogger) WarnObj(string, string, interface{})  {}
func (NopLogger) ErrorObj(string, string, interface{}) {}

// ZapLogger implements Logger on top of zap.
type ZapLogger struct {
	l *zap.Logger
}

func (z *ZapLogger) InfoObj(msg, key string, obj interface{})  { z.l.Info(msg, zap.Any(key, obj)) }
func (z *ZapLogger) DebugObj(msg, key string, obj interface{}) { z.l.Debug(msg, zap.Any(key, obj)) }
func (z *ZapLogger) WarnObj(msg, key string, obj interface{})  { z.l.Warn(msg, zap.Any(key, obj)) }
func (z *ZapLogger) ErrorObj(msg, key string, obj interface{}) { z.l.Error(msg, zap.Any(key, obj)) }

// Package-level logger to be used across packages after Init.
var S *zap.SugaredLogger

// fileLog is the rotating log file opened by Init, if any.
var fileLog *lumberjack.Logger

const (
	defaultLogMaxSizeMB  = 10
	defaultLogMaxBackups = 3
)

// Init initializes the package logger using settings from config. Logs go to
// stderr, and also to a rotating file when cfg.LogFile is set; stdout is
// reserved for command output.
func Init(cfg *config.Config) (*ZapLogger, error) {
	level := "info"
	var w io.Writer = os.Stderr
	if cfg != nil {
		level = cfg.LogLevel
		if cfg.LogFile != "" {
			fileLog = newFileLog(cfg)
			w = io.MultiWriter(os.Stderr, fileLog)
		}
	}
	zl := New(level, w)
	S = zl.l.Sugar()
	return zl, nil
}

func newFileLog(cfg *config.Config) *lumberjack.Logger {
	maxSize := cfg.LogMaxSizeMB
	if maxSize <= 0 {
		maxSize = defaultLogMaxSizeMB
	}
	maxBackups := cfg.LogMaxBackups
	if maxBackups < 0 {
		maxBackups = defaultLogMaxBackups
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    maxSize, // megabytes
		MaxBackups: maxBackups,
	}
}

// New builds a JSON zap logger writing to w at the given level.
func New(level string, w io.Writer) *ZapLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		parseLevel(level),
	)

	return &ZapLogger{l: zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Close flushes any buffered loggers and closes the log file.
func Close() error {
	var err error
	if S != nil {
		err = S.Sync()
	}
	if fileLog != nil {
		if cerr := fileLog.Close(); cerr != nil && err == nil {
			err = cerr
		}
		fileLog = nil
	}
	return err
}

// Minimal object logging helpers -------------------------------------------------
// These are tiny wrappers that log the given object as a structured field named
// `key` and do not attempt to parse arbitrary kv arrays.
func InfoObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Info(msg, zap.Any(key, obj))
}

func DebugObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Debug(msg, zap.Any(key, obj))
}

func WarnObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Warn(msg, zap.Any(key, obj))
}

func ErrorObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Error(msg, zap.Any(key, obj))
}
