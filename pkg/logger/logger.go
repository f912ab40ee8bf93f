package logger

import (
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Record 单条日志记录，交给外部 Sink 消费（例如 MCP 日志桥）
type Record struct {
	Level       Level
	Module      string
	Message     string
	TimestampMs int64
}

// Level 内部日志级别，数值越大越详细
type Level int

const (
	LevelNone Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// Sink 日志记录的旁路消费者，由日志桥注册
type Sink func(Record)

var (
	baseLogger *zap.Logger
	atomicLVL  zap.AtomicLevel
	sink       atomic.Value // Sink
)

func init() {
	atomicLVL = zap.NewAtomicLevelAt(parseZapLevel(getEnv("MCPD_LOG_LEVEL", "info")))
	cfg := zap.Config{
		Level:       atomicLVL,
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stack",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	l, _ := cfg.Build(zap.AddCaller())
	baseLogger = l
}

func L() *zap.Logger { return baseLogger }

// M 返回带模块名的 Logger，模块名同时会出现在旁路 Record 中
func M(module string) *ModuleLogger {
	return &ModuleLogger{
		module: module,
		zl:     baseLogger.With(zap.String("module", module)).Sugar(),
	}
}

func SetLevel(level string) { atomicLVL.SetLevel(parseZapLevel(level)) }

// SetSink 注册旁路消费者；传 nil 取消
func SetSink(s Sink) { sink.Store(s) }

// ModuleLogger 在 zap 之上附加模块名，并把每条记录旁路给 Sink
type ModuleLogger struct {
	module string
	zl     *zap.SugaredLogger
}

func (m *ModuleLogger) Errorf(format string, args ...any) { m.emit(LevelError, format, args...) }
func (m *ModuleLogger) Warnf(format string, args ...any)  { m.emit(LevelWarn, format, args...) }
func (m *ModuleLogger) Infof(format string, args ...any)  { m.emit(LevelInfo, format, args...) }
func (m *ModuleLogger) Debugf(format string, args ...any) { m.emit(LevelDebug, format, args...) }

// Tracef zap 没有 trace 级别，映射到 debug 输出但旁路级别保持 trace
func (m *ModuleLogger) Tracef(format string, args ...any) { m.emit(LevelTrace, format, args...) }

func (m *ModuleLogger) emit(lv Level, format string, args ...any) {
	switch lv {
	case LevelError:
		m.zl.Errorf(format, args...)
	case LevelWarn:
		m.zl.Warnf(format, args...)
	case LevelInfo:
		m.zl.Infof(format, args...)
	default:
		m.zl.Debugf(format, args...)
	}
	if s, ok := sink.Load().(Sink); ok && s != nil {
		s(Record{
			Level:       lv,
			Module:      m.module,
			Message:     sprintf(format, args...),
			TimestampMs: nowMs(),
		})
	}
}

// LevelName 级别的规范名称
func (l Level) Name() string {
	switch l {
	case LevelNone:
		return "NONE"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	}
	return "UNKNOWN"
}

// ParseLevel 解析级别名（大小写不敏感），未知返回 info
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return LevelNone, true
	case "error":
		return LevelError, true
	case "warn", "warning":
		return LevelWarn, true
	case "info":
		return LevelInfo, true
	case "debug":
		return LevelDebug, true
	case "trace":
		return LevelTrace, true
	}
	return LevelInfo, false
}

func parseZapLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
