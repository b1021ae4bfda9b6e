package observability

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/askora/askora/internal/config"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// secretAttrKeys are attribute keys whose values never reach the log output.
var secretAttrKeys = map[string]struct{}{
	"password":      {},
	"api_key":       {},
	"apikey":        {},
	"token":         {},
	"secret":        {},
	"authorization": {},
}

func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	opts := &slog.HandlerOptions{
		Level:       cfg.Observability.LogLevel,
		ReplaceAttr: redactAttr,
	}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}

func redactAttr(_ []string, attr slog.Attr) slog.Attr {
	if _, secret := secretAttrKeys[strings.ToLower(attr.Key)]; secret {
		return slog.String(attr.Key, "***")
	}
	if attr.Value.Kind() == slog.KindString {
		if masked := Mask(attr.Value.String()); masked != attr.Value.String() {
			return slog.String(attr.Key, masked)
		}
	}
	return attr
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}
	return value
}
