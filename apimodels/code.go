package apimodels

import (
	"encoding/json"
	"fmt"
)

// CodeKind tags the shape of a CodeBlocks value.
type CodeKind int

const (
	// CodeNone means no fenced block was found; the original text is kept.
	CodeNone CodeKind = iota
	CodeSingle
	CodeMultiple
)

func (k CodeKind) String() string {
	switch k {
	case CodeSingle:
		return "single"
	case CodeMultiple:
		return "multiple"
	default:
		return "none"
	}
}

// CodeBlocks is the result of extracting fenced code from answer text.
//
// Callers historically received a bare string when exactly one block was
// found, a list for several, and the untouched input when there were none.
// That shape is what MarshalJSON produces. Snippets gives the uniform view.
type CodeBlocks struct {
	kind     CodeKind
	text     string
	snippets []string
}

// NoCode wraps text in which no fenced block was found.
func NoCode(text string) CodeBlocks {
	return CodeBlocks{kind: CodeNone, text: text}
}

// NewCodeBlocks builds the variant matching the number of snippets. With zero
// snippets, original is kept as the value.
func NewCodeBlocks(original string, snippets []string) CodeBlocks {
	switch len(snippets) {
	case 0:
		return NoCode(original)
	case 1:
		return CodeBlocks{kind: CodeSingle, snippets: []string{snippets[0]}}
	default:
		return CodeBlocks{kind: CodeMultiple, snippets: append([]string(nil), snippets...)}
	}
}

func (c CodeBlocks) Kind() CodeKind { return c.kind }

// Snippets returns the extracted blocks in order, nil when there are none.
func (c CodeBlocks) Snippets() []string {
	if c.kind == CodeNone {
		return nil
	}
	return append([]string(nil), c.snippets...)
}

func (c CodeBlocks) Len() int {
	if c.kind == CodeNone {
		return 0
	}
	return len(c.snippets)
}

// Value returns the legacy shape: a string for none or one block, a []string
// for several.
func (c CodeBlocks) Value() any {
	switch c.kind {
	case CodeSingle:
		return c.snippets[0]
	case CodeMultiple:
		return c.Snippets()
	default:
		return c.text
	}
}

func (c CodeBlocks) String() string {
	switch c.kind {
	case CodeSingle:
		return c.snippets[0]
	case CodeMultiple:
		return fmt.Sprintf("%q", c.snippets)
	default:
		return c.text
	}
}

func (c CodeBlocks) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value())
}

// UnmarshalJSON accepts the legacy shape. A bare string cannot tell "no
// blocks" from "one block" apart and is read back as a single block.
func (c *CodeBlocks) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = CodeBlocks{kind: CodeSingle, snippets: []string{s}}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("code blocks must be a string or a list of strings: %w", err)
	}
	*c = NewCodeBlocks("", list)
	return nil
}
