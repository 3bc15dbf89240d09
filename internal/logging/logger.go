// Package logging provides structured logging with per-send trace ID
// propagation. It wraps log/slog with a context-carried send ID so every log
// line emitted while handling one Chat.Send call can be correlated.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"
)

type contextKey string

const sendIDKey contextKey = "send_id"

// Logger is the package-level structured logger. Callers should prefer
// FromContext(ctx) to automatically attach the send ID.
var Logger *slog.Logger

func init() {
	Setup(os.Getenv("HYNI_LOG_LEVEL"), os.Getenv("HYNI_LOG_FORMAT"))
}

// Setup (re-)initializes the package logger. level is one of
// debug/info/warn/error (default info). format is "json" (default) or "text".
func Setup(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// NewSendID generates a random 16-byte hex ID identifying one Send call.
func NewSendID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// WithSendID stores a send ID in the context.
func WithSendID(ctx context.Context, sendID string) context.Context {
	return context.WithValue(ctx, sendIDKey, sendID)
}

// SendIDFromContext retrieves the send ID stored in the context, if any.
func SendIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(sendIDKey).(string)
	return v
}

// FromContext returns a *slog.Logger pre-annotated with the send_id from ctx.
func FromContext(ctx context.Context) *slog.Logger {
	if id := SendIDFromContext(ctx); id != "" {
		return Logger.With("send_id", id)
	}
	return Logger
}
