package observability

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/askora/askora/internal/config"
)

func TestTraceMiddlewarePreservesIncomingTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := TraceIDFromContext(r.Context()); got != "trace-1" {
			t.Fatalf("TraceIDFromContext() = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set(traceHeader, "trace-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(traceHeader); got != "trace-1" {
		t.Fatalf("trace header = %q", got)
	}
}

func TestTraceMiddlewareGeneratesTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if TraceIDFromContext(r.Context()) == "" {
			t.Fatal("expected generated trace id")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Header().Get(traceHeader) == "" {
		t.Fatal("expected X-Trace-ID header")
	}
}

func TestTraceIDContextHelpers(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "abc123")
	if got := TraceIDFromContext(ctx); got != "abc123" {
		t.Fatalf("TraceIDFromContext() = %q", got)
	}
}

func TestLoggingMiddlewareDoesNotPanic(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
}

func TestMetricsMiddlewareRecordsStatus(t *testing.T) {
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestRouteLabelFoldsUIPaths(t *testing.T) {
	if got := routeLabel("/v1/ask"); got != "/v1/ask" {
		t.Fatalf("routeLabel(/v1/ask) = %q", got)
	}
	if got := routeLabel("/assets/app.js"); got != "/ui" {
		t.Fatalf("routeLabel(/assets/app.js) = %q", got)
	}
}

func TestNewLoggerRedactsSecrets(t *testing.T) {
	cfg, err := config.Load("askora-api", func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	var buf bytes.Buffer
	logger := NewLogger(cfg, &buf)
	logger.Info("connecting",
		slog.String("password", "tiger"),
		slog.String("detail", `user="scott" password="tiger" connectString="db:1521/ORCL"`),
	)

	out := buf.String()
	if strings.Contains(out, "tiger") {
		t.Fatalf("log output leaked password: %s", out)
	}
	if !strings.Contains(out, `"service":"askora-api"`) {
		t.Fatalf("log output missing service attr: %s", out)
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "postgres://scott:tiger@db:5432/app", want: "postgres://scott:***@db:5432/app"},
		{input: "Authorization: Bearer abc.def", want: "Authorization: Bearer ***"},
		{input: "api_key=abc123 other", want: "api_key=*** other"},
		{input: "invalid key sk-abcdefghijklmnop provided", want: "invalid key sk-*** provided"},
		{input: "ORA-01017: invalid username/password; logon denied", want: "ORA-01017: invalid username/password; logon denied"},
	}
	for _, tc := range tests {
		if got := Mask(tc.input); got != tc.want {
			t.Fatalf("Mask(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
