package llm

import (
	"context"
)

type Provider interface {
	// Complete answers a single user prompt
	Complete(ctx context.Context, prompt string, opts ...Option) (*Response, error)

	// Name identifies the provider in responses and logs
	Name() string
}

type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

type Option func(*Options)

type Options struct {
	Model  string
	System string
}

// WithSystem prepends a system message to the prompt.
func WithSystem(msg string) Option {
	return func(o *Options) { o.System = msg }
}

type Response struct {
	Content string
	Model   string
	Usage   Usage
}
