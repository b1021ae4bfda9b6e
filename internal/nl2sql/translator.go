package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/askora/askora/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	// ValidationUnvalidated marks model output that nothing has checked.
	ValidationUnvalidated = "unvalidated"
)

var ErrQuestionRequired = errors.New("question is required")

type Request struct {
	Question string `json:"question"`
	Dialect  string `json:"dialect,omitempty"`
}

type Result struct {
	SQL        string `json:"sql"`
	Validation string `json:"validation"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// TranslationError covers every provider failure: transport, quota,
// timeout and empty completions alike.
type TranslationError struct {
	Provider string
	Message  string
	Err      error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed (%s): %s", e.Provider, e.Message)
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

// New builds the translator named by cfg.Provider. It returns nil and no
// error when translation is disabled.
func New(ctx context.Context, cfg config.AIConfig) (Translator, error) {
	if !cfg.TranslateEnabled {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOpenAI:
		translator, err := NewOpenAITranslator(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("openai translator: %w", err)
		}
		return translator, nil
	case ProviderGemini:
		translator, err := NewGeminiTranslator(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini translator: %w", err)
		}
		return translator, nil
	default:
		return nil, fmt.Errorf("unsupported translation provider %q", cfg.Provider)
	}
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```SQL")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
