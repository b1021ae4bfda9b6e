package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/askora/askora/internal/observability"
)

const defaultGeminiModel = "gemini-1.5-flash"

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type GeminiTranslator struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	name    string
	timeout time.Duration
}

func NewGeminiTranslator(ctx context.Context, cfg GeminiConfig) (*GeminiTranslator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	name := strings.TrimSpace(cfg.Model)
	if name == "" || strings.HasPrefix(name, "gpt-") {
		name = defaultGeminiModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(strings.TrimSpace(cfg.APIKey)))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(float32(cfg.Temperature))
	model.SetCandidateCount(1)

	return &GeminiTranslator{client: client, model: model, name: name, timeout: timeout}, nil
}

func (t *GeminiTranslator) Translate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Question) == "" {
		return Result{}, ErrQuestionRequired
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.model.GenerateContent(ctx, genai.Text(BuildPrompt(req)))
	if err != nil {
		return Result{}, t.fail(err)
	}
	sql := stripMarkdownSQL(firstCandidateText(resp))
	if sql == "" {
		return Result{}, t.fail(errors.New("model returned empty SQL"))
	}
	observability.ObserveTranslation(ProviderGemini, "ok")
	return Result{
		SQL:        sql,
		Validation: ValidationUnvalidated,
		Provider:   ProviderGemini,
		Model:      t.name,
	}, nil
}

func (t *GeminiTranslator) Close() error {
	return t.client.Close()
}

func (t *GeminiTranslator) fail(err error) error {
	outcome, message := describeFailure(err, t.timeout)
	observability.ObserveTranslation(ProviderGemini, outcome)
	return &TranslationError{Provider: ProviderGemini, Message: message, Err: err}
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}
