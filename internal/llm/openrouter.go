package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/sozercan/gemini-mole/internal/config"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// FreeModels are the OpenRouter models that cost nothing to call.
var FreeModels = []string{
	"google/gemma-7b-it:free",
	"huggingfaceh4/zephyr-7b-beta:free",
	"mistralai/mistral-7b-instruct:free",
	"openrouter/cinematika-7b:free",
	"undi95/toppy-m-7b:free",
	"gryphe/mythomist-7b:free",
	"nousresearch/nous-capybara-7b:free",
	"openchat/openchat-7b:free",
}

func IsFreeModel(model string) bool {
	return slices.Contains(FreeModels, model)
}

// OpenRouter answers prompts through OpenRouter's OpenAI compatible API.
type OpenRouter struct {
	client *openai.Client
	cfg    config.OpenRouterConfig
}

func NewOpenRouter(cfg config.OpenRouterConfig, opts ...option.RequestOption) (*OpenRouter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openrouter api key required, see https://openrouter.ai/keys")
	}
	if cfg.Model == "" {
		return nil, errors.New("openrouter model cannot be empty")
	}
	if !IsFreeModel(cfg.Model) {
		slog.Warn("OpenRouter model is not in the free model list and may incur charges", "model", cfg.Model)
	}

	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(base),
	}
	if cfg.SiteURL != "" {
		reqOpts = append(reqOpts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.AppName != "" {
		reqOpts = append(reqOpts, option.WithHeader("X-Title", cfg.AppName))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenRouter{
		client: openai.NewClient(reqOpts...),
		cfg:    cfg,
	}, nil
}

func (o *OpenRouter) Name() string { return "openrouter" }

func (o *OpenRouter) Complete(ctx context.Context, prompt string, opts ...Option) (*Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt cannot be empty")
	}

	options := &Options{Model: o.cfg.Model}
	for _, opt := range opts {
		opt(options)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if options.System != "" {
		messages = append(messages, openai.SystemMessage(options.System))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.F(options.Model),
		Messages: openai.F(messages),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openrouter completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openrouter returned no choices")
	}

	slog.Debug("OpenRouter completion finished", "model", resp.Model, "tokens", resp.Usage.TotalTokens)
	return &Response{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
