package askoractl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// apiError is a non-2xx response carrying the service's error envelope.
type apiError struct {
	Status    int
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context"`
	raw       string
}

func (e *apiError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.raw)
	}
	msg := fmt.Sprintf("http %d: %s: %s", e.Status, e.ErrorCode, e.Message)
	if sql, ok := e.Context["sql"].(string); ok && sql != "" {
		msg += "\nSQL: " + sql
	}
	return msg
}

func (c *cli) call(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := strings.TrimSpace(c.apiKey); key != "" {
		req.Header.Set("X-API-Key", key)
	}

	client := c.opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: c.timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode, raw: strings.TrimSpace(string(body))}
		_ = json.Unmarshal(body, apiErr)
		return nil, apiErr
	}
	return body, nil
}
