package api

import (
	"net/http"
	"strings"

	"github.com/askora/askora/internal/connection"
	"github.com/askora/askora/internal/nl2sql"
	"github.com/askora/askora/internal/pipeline"
	"github.com/askora/askora/internal/query"
)

type translateRequest struct {
	Question string `json:"question"`
	Dialect  string `json:"dialect"`
}

type executeRequest struct {
	Connection connection.Params `json:"connection"`
	Schema     string            `json:"schema"`
	SQL        string            `json:"sql"`
}

type askRequest struct {
	Connection connection.Params `json:"connection"`
	Schema     string            `json:"schema"`
	Question   string            `json:"question"`
}

type outcomeResponse struct {
	State      pipeline.State `json:"state"`
	SQL        string         `json:"sql,omitempty"`
	Validation string         `json:"validation,omitempty"`
	Provider   string         `json:"provider,omitempty"`
	Model      string         `json:"model,omitempty"`
	Result     query.Result   `json:"result"`
	Stats      map[string]any `json:"stats"`
}

func (h *handlers) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if h.deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATE_NOT_CONFIGURED", "query translation is not configured", false, nil)
		return
	}
	if err := requireReader(r); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	var req translateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid translation request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}
	dialect := req.Dialect
	if dialect == "" {
		dialect = h.cfg.Database.DefaultDialect
	}

	result, err := h.deps.Translator.Translate(r.Context(), nl2sql.Request{Question: req.Question, Dialect: dialect})
	if err != nil {
		writeClassifiedError(r.Context(), w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) handleExecute(w http.ResponseWriter, r *http.Request) {
	if !h.requirePipeline(w, r) {
		return
	}
	var req executeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid execute request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}
	params, ok := h.validateConnection(w, r, req.Connection)
	if !ok {
		return
	}

	outcome := h.deps.Pipeline.Execute(r.Context(), pipeline.Request{
		Connection:  params,
		Schema:      req.Schema,
		AllowWrites: allowWrites(r),
	}, req.SQL)
	writeOutcome(w, r, outcome)
}

func (h *handlers) handleAsk(w http.ResponseWriter, r *http.Request) {
	if !h.requirePipeline(w, r) {
		return
	}
	if h.deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATE_NOT_CONFIGURED", "query translation is not configured", false, nil)
		return
	}
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}
	params, ok := h.validateConnection(w, r, req.Connection)
	if !ok {
		return
	}

	outcome := h.deps.Pipeline.Ask(r.Context(), pipeline.Request{
		Connection:  params,
		Schema:      req.Schema,
		Question:    req.Question,
		AllowWrites: allowWrites(r),
	})
	writeOutcome(w, r, outcome)
}

func (h *handlers) requirePipeline(w http.ResponseWriter, r *http.Request) bool {
	if h.deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "question pipeline is not configured", false, nil)
		return false
	}
	if err := requireReader(r); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return false
	}
	return true
}

// writeOutcome keeps the translated SQL in failure envelopes so callers
// can show what was attempted.
func writeOutcome(w http.ResponseWriter, r *http.Request, outcome pipeline.Outcome) {
	if outcome.Err != nil {
		extra := map[string]any{"state": outcome.State}
		if outcome.SQL != "" {
			extra["sql"] = outcome.SQL
			extra["validation"] = outcome.Validation
		}
		writeClassifiedError(r.Context(), w, outcome.Err, extra)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse{
		State:      outcome.State,
		SQL:        outcome.SQL,
		Validation: outcome.Validation,
		Provider:   outcome.Provider,
		Model:      outcome.Model,
		Result:     outcome.Result,
		Stats: map[string]any{
			"translate_ms": outcome.Translate.Milliseconds(),
			"connect_ms":   outcome.Connect.Milliseconds(),
			"execute_ms":   outcome.Execute.Milliseconds(),
			"duration_ms":  outcome.Result.Duration.Milliseconds(),
		},
	})
}
