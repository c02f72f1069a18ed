package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sozercan/gemini-mole/apimodels"
	"github.com/sozercan/gemini-mole/internal/gemini"
	"github.com/sozercan/gemini-mole/internal/llm"
	"github.com/sozercan/gemini-mole/internal/parser"
)

const SourceGemini = "gemini"

const codeSystemPrompt = "Put any %s code in your answer inside fenced code blocks tagged with the language."

// Conversation is the part of a gemini.Session a turn needs.
type Conversation interface {
	SendMessage(ctx context.Context, prompt string) (*apimodels.ModelOutput, error)
	Metadata() []string
}

var _ Conversation = (*gemini.Session)(nil)

type Assistant struct {
	fallback    llm.Provider
	maxAttempts int
}

// New returns an Assistant that tries each turn up to maxAttempts times and
// then hands it to fallback, which may be nil.
func New(fallback llm.Provider, maxAttempts int) *Assistant {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Assistant{fallback: fallback, maxAttempts: maxAttempts}
}

// Turn sends prompt in conv. When codeLanguage is set, the chosen answer's
// code blocks in that language are returned as well.
func (a *Assistant) Turn(ctx context.Context, conv Conversation, prompt, codeLanguage string) (*apimodels.GenerateResponse, error) {
	slog.Info("Starting turn", "prompt_bytes", len(prompt), "code_language", codeLanguage)
	startTime := time.Now()

	if codeLanguage != "" {
		if _, err := parser.SourceFilename(codeLanguage); err != nil {
			return nil, err
		}
	}

	resp := &apimodels.GenerateResponse{Source: SourceGemini}
	out, attempts, err := a.sendWithRetry(ctx, conv, prompt)
	resp.Metadata.Attempts = attempts
	if err != nil {
		if a.fallback == nil || ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("Gemini turn failed, using fallback provider", "provider", a.fallback.Name(), "error", err)

		var opts []llm.Option
		if codeLanguage != "" {
			opts = append(opts, llm.WithSystem(fmt.Sprintf(codeSystemPrompt, codeLanguage)))
		}
		fb, ferr := a.fallback.Complete(ctx, prompt, opts...)
		if ferr != nil {
			slog.Error("Fallback provider failed", "provider", a.fallback.Name(), "error", ferr)
			return nil, fmt.Errorf("%w (fallback %s: %v)", err, a.fallback.Name(), ferr)
		}
		out = fallbackOutput(conv.Metadata(), fb)
		resp.Source = a.fallback.Name()
		resp.Metadata.Model = fb.Model
	}
	resp.Output = out

	if codeLanguage != "" {
		code, err := parser.ExtractLanguageCode(out.Text(), codeLanguage)
		if err != nil {
			return nil, err
		}
		resp.Code = &code
	}

	resp.Metadata.Duration = time.Since(startTime).String()
	slog.Info("Turn finished", "source", resp.Source, "attempts", attempts, "candidates", len(out.Candidates))
	return resp, nil
}

func (a *Assistant) sendWithRetry(ctx context.Context, conv Conversation, prompt string) (*apimodels.ModelOutput, int, error) {
	var lastErr error
	for i := 0; i < a.maxAttempts; i++ {
		slog.Info("Sending prompt", "attempt", i+1)
		out, err := conv.SendMessage(ctx, prompt)
		if err == nil {
			return out, i + 1, nil
		}
		lastErr = err
		slog.Warn("Failed to get an answer", "attempt", i+1, "error", err)
		if !retryable(err) {
			return nil, i + 1, err
		}
	}
	return nil, a.maxAttempts, lastErr
}

// retryable reports whether another attempt could succeed. Rejected cookies
// and cancelled contexts will not improve by retrying.
func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, gemini.ErrAuth):
		return false
	case errors.Is(err, parser.ErrUnsupportedLanguage):
		return false
	}
	return true
}

func fallbackOutput(metadata []string, r *llm.Response) *apimodels.ModelOutput {
	return &apimodels.ModelOutput{
		Metadata: metadata,
		Candidates: []apimodels.Candidate{{
			Text: r.Content,
			Code: parser.ExtractCode(r.Content),
		}},
	}
}
