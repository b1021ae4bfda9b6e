package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/askora/askora/internal/connection"
	"github.com/askora/askora/internal/nl2sql"
	"github.com/askora/askora/internal/pipeline"
	"github.com/askora/askora/internal/query"
)

type apiError struct {
	status    int
	code      string
	message   string
	retryable bool
	context   map[string]any
}

// classifyError maps a stage error onto the response envelope. Credential
// rejection is checked before the wrappers that may carry it.
func classifyError(err error) apiError {
	var (
		paramsErr      *connection.ParamsError
		unavailableErr *connection.SchemaListUnavailableError
		failedErr      *connection.ConnectionFailedError
		schemaErr      *connection.SchemaSelectError
		translationErr *nl2sql.TranslationError
		executionErr   *query.ExecutionError
	)
	switch {
	case errors.As(err, &paramsErr):
		return apiError{status: http.StatusBadRequest, code: "INVALID_CONNECTION", message: paramsErr.Error(), context: map[string]any{"missing": paramsErr.Missing}}
	case errors.Is(err, connection.ErrInvalidCredentials):
		return apiError{status: http.StatusUnauthorized, code: "INVALID_CREDENTIALS", message: "Invalid username or password. Please double-check your credentials."}
	case errors.As(err, &unavailableErr):
		return apiError{status: http.StatusBadGateway, code: "SCHEMA_LIST_UNAVAILABLE", message: unavailableErr.Error(), retryable: true}
	case errors.As(err, &schemaErr):
		return apiError{status: http.StatusBadRequest, code: "SCHEMA_UNAVAILABLE", message: schemaErr.Error(), context: map[string]any{"schema": schemaErr.Schema}}
	case errors.As(err, &failedErr):
		return apiError{status: http.StatusBadGateway, code: "CONNECTION_FAILED", message: "Database connection failed: " + failedErr.Message, retryable: true}
	case errors.Is(err, nl2sql.ErrQuestionRequired):
		return apiError{status: http.StatusBadRequest, code: "QUESTION_REQUIRED", message: err.Error()}
	case errors.Is(err, pipeline.ErrTranslatorUnavailable):
		return apiError{status: http.StatusNotImplemented, code: "TRANSLATE_NOT_CONFIGURED", message: "query translation is not configured"}
	case errors.As(err, &translationErr):
		return apiError{status: http.StatusBadGateway, code: "TRANSLATION_FAILED", message: "Error during translation: " + translationErr.Message, retryable: true, context: map[string]any{"provider": translationErr.Provider}}
	case errors.Is(err, query.ErrStatementNotAllowed):
		return apiError{status: http.StatusForbidden, code: "STATEMENT_NOT_ALLOWED", message: err.Error()}
	case errors.Is(err, query.ErrSQLRequired):
		return apiError{status: http.StatusBadRequest, code: "SQL_REQUIRED", message: err.Error()}
	case errors.As(err, &executionErr):
		return apiError{status: http.StatusBadRequest, code: "EXECUTION_FAILED", message: executionErr.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return apiError{status: http.StatusGatewayTimeout, code: "TIMEOUT", message: "operation timed out", retryable: true}
	default:
		return apiError{status: http.StatusInternalServerError, code: "INTERNAL_ERROR", message: err.Error(), retryable: true}
	}
}

func writeClassifiedError(ctx context.Context, w http.ResponseWriter, err error, extra map[string]any) {
	classified := classifyError(err)
	merged := classified.context
	if len(extra) > 0 {
		if merged == nil {
			merged = map[string]any{}
		}
		for k, v := range extra {
			merged[k] = v
		}
	}
	writeError(ctx, w, classified.status, classified.code, classified.message, classified.retryable, merged)
}
