package utils

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/awantoch/n8n-mcp/constants"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	userLogger     *log.Logger
	userWriter     io.Writer = os.Stdout
	internalLogger *zap.SugaredLogger
	loggerLevel    = constants.LogLevelInfo
	loggerMu       sync.RWMutex
)

type requestIDKeyType struct{}
type sessionIDKeyType struct{}

var (
	requestIDKey = requestIDKeyType{}
	sessionIDKey = sessionIDKeyType{}
)

func init() {
	userLogger = log.New(userWriter, "", 0)
	initLoggers(constants.LogLevelInfo)
}

// initLoggers builds the internal logger. Output always goes to stderr so
// stdout stays free for the stdio JSON-RPC stream.
func initLoggers(level string) {
	internalCfg := zap.NewProductionConfig()
	internalCfg.OutputPaths = []string{"stderr"}
	internalCfg.ErrorOutputPaths = []string{"stderr"}
	internalCfg.Encoding = "console"
	internalCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	internalCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if os.Getenv(constants.EnvDebug) != "" {
		level = constants.LogLevelDebug
	}
	internalCfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	l, err := internalCfg.Build()
	if err != nil {
		log.Printf("Failed to initialize zap logger: %v, falling back to standard logger", err)
		internalLogger = nil
		return
	}
	internalLogger = l.Sugar()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case constants.LogLevelDebug:
		return zapcore.DebugLevel
	case constants.LogLevelWarn:
		return zapcore.WarnLevel
	case constants.LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func User(format string, v ...any) {
	if userLogger != nil {
		userLogger.Printf(format, v...)
	}
}

func Info(format string, v ...any) {
	if internalLogger != nil {
		internalLogger.Infof(format, v...)
	}
}

func Warn(format string, v ...any) {
	if internalLogger != nil {
		internalLogger.Warnf(format, v...)
	}
}

func Error(format string, v ...any) {
	if internalLogger != nil {
		internalLogger.Errorf(format, v...)
	}
}

func Debug(format string, v ...any) {
	if internalLogger != nil {
		internalLogger.Debugf(format, v...)
	}
}

func SetUserOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	userWriter = w
	userLogger = log.New(userWriter, "", 0)
}

func SetInternalOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		zapcore.DebugLevel, // Always allow debug for test capture
	)
	internalLogger = zap.New(core).Sugar()
}

// SetLevel rebuilds the internal logger at the given level.
func SetLevel(level string) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	loggerLevel = strings.ToLower(level)
	initLoggers(loggerLevel)
}

func getLevel() string {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return loggerLevel
}

// Sync flushes buffered log entries.
func Sync() {
	if internalLogger != nil {
		_ = internalLogger.Sync()
	}
}

// Errorf logs the error message and returns it as an error value.
func Errorf(format string, v ...any) error {
	err := fmt.Errorf(format, v...)
	if internalLogger != nil {
		internalLogger.Errorf("%s", err)
	}
	return err
}

// WithRequestID returns a new context with the given request ID.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, requestIDKey, reqID)
}

// RequestIDFromContext extracts the request ID from context, if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return ContextValue[string](ctx, requestIDKey)
}

// WithSessionID returns a new context carrying the MCP session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// sessionIDFromContext extracts the MCP session ID from context, if present.
func sessionIDFromContext(ctx context.Context) (string, bool) {
	return ContextValue[string](ctx, sessionIDKey)
}

func contextFields(ctx context.Context, fields []any) []any {
	if reqID, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, "request_id", reqID)
	}
	if sid, ok := sessionIDFromContext(ctx); ok && sid != "" {
		fields = append(fields, "session_id", sid)
	}
	return fields
}

// InfoCtx logs an info message with context, including request and session IDs if present.
func InfoCtx(ctx context.Context, msg string, fields ...any) {
	if internalLogger != nil {
		internalLogger.Infow(msg, contextFields(ctx, fields)...)
	}
}

// WarnCtx logs a warning message with context, including request and session IDs if present.
func WarnCtx(ctx context.Context, msg string, fields ...any) {
	if internalLogger != nil {
		internalLogger.Warnw(msg, contextFields(ctx, fields)...)
	}
}

// ErrorCtx logs an error message with context, including request and session IDs if present.
func ErrorCtx(ctx context.Context, msg string, fields ...any) {
	if internalLogger != nil {
		internalLogger.Errorw(msg, contextFields(ctx, fields)...)
	}
}

// DebugCtx logs a debug message with context, including request and session IDs if present.
func DebugCtx(ctx context.Context, msg string, fields ...any) {
	if internalLogger != nil {
		internalLogger.Debugw(msg, contextFields(ctx, fields)...)
	}
}
