package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sozercan/gemini-mole/apimodels"
)

var ErrNoOutput = errors.New("no previous output in this session")

// Generator produces a model output for a prompt in a conversation thread.
type Generator interface {
	Generate(ctx context.Context, prompt string, metadata []string) (*apimodels.ModelOutput, error)
}

// Session threads [cid, rid, rcid] through successive turns.
type Session struct {
	gen Generator

	mu       sync.Mutex
	metadata [3]string
	output   *apimodels.ModelOutput
}

// NewSession starts a conversation, optionally continuing one from up to
// three metadata ids.
func NewSession(gen Generator, metadata ...string) (*Session, error) {
	s := &Session{gen: gen}
	if err := s.setMetadata(metadata); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) setMetadata(m []string) error {
	if len(m) > len(s.metadata) {
		return fmt.Errorf("metadata cannot exceed %d elements, got %d", len(s.metadata), len(m))
	}
	copy(s.metadata[:], m)
	return nil
}

// SendMessage generates a reply and continues the thread from it.
func (s *Session) SendMessage(ctx context.Context, prompt string) (*apimodels.ModelOutput, error) {
	meta := s.Metadata()

	out, err := s.gen.Generate(ctx, prompt, meta)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setMetadata(out.Metadata); err != nil {
		return nil, err
	}
	s.output = out
	s.metadata[2] = out.RCID()
	return out, nil
}

// ChooseCandidate selects which candidate of the last output the next turn
// continues from. Outputs already handed out are never modified; the session
// switches to a copy with the new choice.
func (s *Session) ChooseCandidate(index int) (*apimodels.ModelOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.output == nil {
		return nil, ErrNoOutput
	}
	out := *s.output
	if err := out.Choose(index); err != nil {
		return nil, err
	}
	s.output = &out
	s.metadata[2] = out.RCID()
	return s.output, nil
}

// Output returns the last model output, or nil before the first turn.
func (s *Session) Output() *apimodels.ModelOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

func (s *Session) Metadata() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []string{s.metadata[0], s.metadata[1], s.metadata[2]}
}

func (s *Session) CID() string  { return s.Metadata()[0] }
func (s *Session) RID() string  { return s.Metadata()[1] }
func (s *Session) RCID() string { return s.Metadata()[2] }
