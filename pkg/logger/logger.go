// Package logger provides the structured, levelled logger used across the
// catalog service. It is a thin layer over log/slog.
//
// Handlers and services log through WithCtx so every line carries the
// request_id of the request that produced it:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("product created", "id", p.ID, "article", p.Article)
package logger

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/shashiranjanraj/tagcatalog/config"
)

var L *slog.Logger

var (
	sinkMu sync.Mutex
	sinks  []*MongoHandler
)

func init() {
	L = slog.New(baseHandler())
	slog.SetDefault(L)
}

func baseHandler() slog.Handler {
	switch config.AppEnv() {
	case "production", "prod":
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// AttachMongo fans every log record out to a MongoDB collection as well as
// stdout. It is a no-op when LOG_MONGO_URI is empty.
func AttachMongo() error {
	uri := config.LogMongoURI()
	if uri == "" {
		return nil
	}

	mh, err := NewMongoHandler(uri, config.LogMongoDatabase(), config.LogMongoCollection())
	if err != nil {
		return err
	}

	sinkMu.Lock()
	sinks = append(sinks, mh)
	sinkMu.Unlock()

	L = slog.New(NewMultiHandler(baseHandler(), mh))
	slog.SetDefault(L)
	return nil
}

// Close flushes and disconnects any attached sinks.
func Close() {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	for _, s := range sinks {
		s.Close()
	}
	sinks = nil
}

type ctxKey struct{}

// WithCtx returns the request-scoped logger stored by the Logger middleware,
// or the base logger when ctx carries none.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores log in ctx for later retrieval by WithCtx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
