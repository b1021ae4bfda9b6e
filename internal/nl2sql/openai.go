package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/askora/askora/internal/observability"
)

const (
	defaultOpenAIModel = openai.GPT3Dot5Turbo
	defaultTimeout     = 30 * time.Second
)

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type OpenAITranslator struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

func NewOpenAITranslator(cfg OpenAIConfig) (*OpenAITranslator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	clientCfg := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	clientCfg.HTTPClient = &http.Client{}

	return &OpenAITranslator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: float32(cfg.Temperature),
		timeout:     timeout,
	}, nil
}

func (t *OpenAITranslator) Translate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Question) == "" {
		return Result{}, ErrQuestionRequired
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		Temperature: t.temperature,
	})
	if err != nil {
		return Result{}, t.fail(err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, t.fail(errors.New("empty chat completion choices"))
	}

	sql := stripMarkdownSQL(resp.Choices[0].Message.Content)
	if sql == "" {
		return Result{}, t.fail(errors.New("model returned empty SQL"))
	}
	observability.ObserveTranslation(ProviderOpenAI, "ok")
	return Result{
		SQL:        sql,
		Validation: ValidationUnvalidated,
		Provider:   ProviderOpenAI,
		Model:      t.model,
	}, nil
}

func (t *OpenAITranslator) fail(err error) error {
	outcome, message := describeFailure(err, t.timeout)
	observability.ObserveTranslation(ProviderOpenAI, outcome)
	return &TranslationError{Provider: ProviderOpenAI, Message: message, Err: err}
}

func describeFailure(err error, timeout time.Duration) (string, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout", fmt.Sprintf("model did not answer within %s", timeout)
	}
	if errors.Is(err, context.Canceled) {
		return "canceled", "translation canceled"
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return "api_error", observability.Mask(fmt.Sprintf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message))
	}
	return "error", observability.Mask(err.Error())
}
