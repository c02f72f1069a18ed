package apimodels

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCandidateIndex is returned by Choose for an index outside the candidate list.
var ErrCandidateIndex = errors.New("candidate index out of range")

// WebImage is an image sourced from a web search result embedded in an answer.
type WebImage struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Alt   string `json:"alt"`
}

// GeneratedImage is a model-produced image. It carries the session cookies
// required to download it later; they never leave the process as JSON.
type GeneratedImage struct {
	URL     string            `json:"url"`
	Title   string            `json:"title"`
	Alt     string            `json:"alt"`
	Cookies map[string]string `json:"-"`
}

// Candidate is one alternative answer for a single prompt turn.
type Candidate struct {
	// RCID is the upstream reply candidate id
	RCID string `json:"id"`

	Text string `json:"text"`

	Code CodeBlocks `json:"codeBlocks"`

	WebImages []WebImage `json:"webImages"`

	GeneratedImages []GeneratedImage `json:"generatedImages"`
}

// ModelOutput aggregates the candidates of one response together with the
// conversation metadata needed to continue the thread.
type ModelOutput struct {
	// Metadata holds up to three ids: conversation, reply, reply candidate
	Metadata []string `json:"metadata"`

	PromptClass      string   `json:"promptClass,omitempty"`
	PromptCandidates []string `json:"promptCandidates,omitempty"`

	Candidates []Candidate `json:"candidates"`

	// Chosen selects the active candidate
	Chosen int `json:"chosen"`
}

// Choose selects the candidate at index as the active answer.
func (o *ModelOutput) Choose(index int) error {
	if index < 0 || index >= len(o.Candidates) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrCandidateIndex, index, len(o.Candidates))
	}
	o.Chosen = index
	return nil
}

func (o *ModelOutput) chosen() *Candidate {
	if o == nil || o.Chosen < 0 || o.Chosen >= len(o.Candidates) {
		return nil
	}
	return &o.Candidates[o.Chosen]
}

// RCID returns the reply candidate id of the chosen candidate.
func (o *ModelOutput) RCID() string {
	if c := o.chosen(); c != nil {
		return c.RCID
	}
	return ""
}

// Text returns the text of the chosen candidate.
func (o *ModelOutput) Text() string {
	if c := o.chosen(); c != nil {
		return c.Text
	}
	return ""
}

func (o *ModelOutput) WebImages() []WebImage {
	if c := o.chosen(); c != nil {
		return c.WebImages
	}
	return nil
}

func (o *ModelOutput) GeneratedImages() []GeneratedImage {
	if c := o.chosen(); c != nil {
		return c.GeneratedImages
	}
	return nil
}

func (o *ModelOutput) CodeBlocks() CodeBlocks {
	if c := o.chosen(); c != nil {
		return c.Code
	}
	return CodeBlocks{}
}

// MarshalJSON adds the chosen candidate's fields next to the full candidate list.
func (o ModelOutput) MarshalJSON() ([]byte, error) {
	type plain ModelOutput
	return json.Marshal(struct {
		plain
		RCID string `json:"rcid"`
		Text string `json:"text"`
	}{
		plain: plain(o),
		RCID:  o.RCID(),
		Text:  o.Text(),
	})
}
