package llm

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const providerOpenAI = "openai"

// OpenAI implements Provider using the official SDK. Pointing BaseURL
// at a compatible service (Ollama, vLLM, Groq) works the same way.
type OpenAI struct {
	client openai.Client
	config *Config
	logger *slog.Logger
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Model = "gpt-4o-mini"
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, WrapError(providerOpenAI, ErrNoAPIKey)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		config: cfg,
		logger: cfg.Logger.With("component", "llm.openai"),
	}, nil
}

// Name identifies the provider.
func (o *OpenAI) Name() string { return providerOpenAI }

// Complete generates a completion. The SDK handles rate-limit retries
// internally.
func (o *OpenAI) Complete(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = o.config.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = o.config.MaxTokens
	}
	temp := req.Temperature
	if temp == 0 {
		temp = o.config.Temperature
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(model),
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(temp),
	})
	if err != nil {
		return nil, WrapError(providerOpenAI, err)
	}

	if len(resp.Choices) == 0 {
		return &Response{
			Text:      RephraseText,
			Model:     model,
			LatencyMs: time.Since(start).Milliseconds(),
		}, nil
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		text = RephraseText
	}

	respModel := resp.Model
	if respModel == "" {
		respModel = model
	}

	return &Response{
		Text:       text,
		Model:      respModel,
		TokensUsed: int(resp.Usage.TotalTokens),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Health checks API connectivity with a minimal completion.
func (o *OpenAI) Health(ctx context.Context) error {
	_, err := o.Complete(ctx, &Request{Prompt: "test", MaxTokens: 1})
	return err
}

// Close releases resources. The SDK's HTTP client is managed per
// request, so there is nothing to tear down.
func (o *OpenAI) Close() error { return nil }

// Verify OpenAI implements Provider at compile time.
var _ Provider = (*OpenAI)(nil)
