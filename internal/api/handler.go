package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askora/askora/internal/auth"
	"github.com/askora/askora/internal/config"
	"github.com/askora/askora/internal/connection"
	"github.com/askora/askora/internal/nl2sql"
	"github.com/askora/askora/internal/observability"
	"github.com/askora/askora/internal/pipeline"
)

const maxRequestBodyBytes = 1 << 20

type ReadinessCheck func(ctx context.Context) error

type ConnectionService interface {
	Test(ctx context.Context, params connection.Params) error
	ListSchemas(ctx context.Context, params connection.Params) ([]string, error)
}

type QuestionPipeline interface {
	Ask(ctx context.Context, req pipeline.Request) pipeline.Outcome
	Execute(ctx context.Context, req pipeline.Request, sqlText string) pipeline.Outcome
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Connections       ConnectionService
	Translator        nl2sql.Translator
	Pipeline          QuestionPipeline
	UI                http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	h := &handlers{cfg: cfg, deps: deps}
	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/connection/test", h.handleTestConnection)
	protected.HandleFunc("POST /v1/schemas", h.handleListSchemas)
	protected.HandleFunc("POST /v1/translate", h.handleTranslate)
	protected.HandleFunc("POST /v1/execute", h.handleExecute)
	protected.HandleFunc("POST /v1/ask", h.handleAsk)

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/connection/test", protectedHandler)
	mux.Handle("POST /v1/schemas", protectedHandler)
	mux.Handle("POST /v1/translate", protectedHandler)
	mux.Handle("POST /v1/execute", protectedHandler)
	mux.Handle("POST /v1/ask", protectedHandler)
	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

type handlers struct {
	cfg  config.Config
	deps Dependencies
}

// CheckTranslator fails readiness when translation is enabled but no
// translator could be built.
func CheckTranslator(cfg config.Config, translator nl2sql.Translator) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.AI.TranslateEnabled && translator == nil {
			return fmt.Errorf("translation provider %q is not configured", cfg.AI.Provider)
		}
		return nil
	}
}

func CheckAuth(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Auth.Required && cfg.Auth.StaticKeys == "" {
			return errors.New("auth is required but no API keys are configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

// decodeJSON reads a single JSON object and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// requireReader lets anonymous callers through when auth is disabled.
func requireReader(r *http.Request) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(auth.RoleReader) || identity.HasRole(auth.RoleWriter) {
		return nil
	}
	return fmt.Errorf("missing required role %q", auth.RoleReader)
}

func allowWrites(r *http.Request) bool {
	identity, ok := auth.IdentityFromContext(r.Context())
	return !ok || identity.CanWrite()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
