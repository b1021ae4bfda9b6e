package api

import (
	"net/http"

	"github.com/askora/askora/internal/connection"
)

type connectionRequest struct {
	Connection connection.Params `json:"connection"`
}

func (h *handlers) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	params, ok := h.decodeConnection(w, r)
	if !ok {
		return
	}
	if err := h.deps.Connections.Test(r.Context(), params); err != nil {
		writeClassifiedError(r.Context(), w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "connected",
		"message": "Connection successful",
		"dialect": params.Dialect,
	})
}

func (h *handlers) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	params, ok := h.decodeConnection(w, r)
	if !ok {
		return
	}
	schemas, err := h.deps.Connections.ListSchemas(r.Context(), params)
	if err != nil {
		writeClassifiedError(r.Context(), w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": schemas})
}

func (h *handlers) decodeConnection(w http.ResponseWriter, r *http.Request) (connection.Params, bool) {
	if h.deps.Connections == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CONNECTIONS_NOT_CONFIGURED", "connection manager is not configured", false, nil)
		return connection.Params{}, false
	}
	if err := requireReader(r); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return connection.Params{}, false
	}
	var req connectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid connection request body", false, map[string]any{"details": err.Error()})
		return connection.Params{}, false
	}
	return h.validateConnection(w, r, req.Connection)
}

// validateConnection applies configured defaults and rejects incomplete
// parameters before any network call.
func (h *handlers) validateConnection(w http.ResponseWriter, r *http.Request, params connection.Params) (connection.Params, bool) {
	params = params.WithDefaults(h.cfg.Database.DefaultDialect, h.cfg.Database.DefaultPort)
	if err := params.Validate(); err != nil {
		writeClassifiedError(r.Context(), w, err, nil)
		return connection.Params{}, false
	}
	return params, true
}
