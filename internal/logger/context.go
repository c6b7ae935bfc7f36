package logger

import (
	"context"

	"github.com/google/uuid"
)

type loggerKeyType struct{}

type requestIDKeyType struct{}

// NewContext returns a context carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKeyType{}, logger)
}

// FromContext returns the logger stored in ctx, or fallback when there is none.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if l, ok := ctx.Value(loggerKeyType{}).(*Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return NewNop()
}

// NewRequestIDContext returns a context carrying requestID. An empty id is
// replaced by a generated one.
func NewRequestIDContext(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = GenerateRequestID()
	}
	return context.WithValue(ctx, requestIDKeyType{}, requestID)
}

// GetRequestID extracts the request id from ctx.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKeyType{}).(string)
	return id, ok
}

// GenerateRequestID returns a new random request id.
func GenerateRequestID() string {
	return uuid.New().String()
}
