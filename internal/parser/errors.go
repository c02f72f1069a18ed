package parser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse matches any *ParseError.
	ErrParse = errors.New("response body could not be parsed")
	// ErrNoCandidates matches any *NoCandidatesError.
	ErrNoCandidates = errors.New("no output data found in response")
	// ErrUnsupportedLanguage matches any *UnsupportedLanguageError.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// ParseError is returned when no body extraction strategy succeeded. A parse
// failure and an expired session look the same from here, so the message
// points at the cookies.
type ParseError struct {
	// Failures holds one entry per strategy tried, in order
	Failures []error
}

func (e *ParseError) Error() string {
	msg := "session cookies have likely expired; refresh them and retry: all body extraction strategies failed"
	if len(e.Failures) == 0 {
		return msg
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return msg + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// NoCandidatesError is returned when the body parsed but carried no usable
// answer.
type NoCandidatesError struct{}

func (e *NoCandidatesError) Error() string {
	return "failed to generate contents: " + ErrNoCandidates.Error()
}

func (e *NoCandidatesError) Is(target error) bool { return target == ErrNoCandidates }

// UnsupportedLanguageError is returned by ExtractLanguageCode for a language
// outside the supported set.
type UnsupportedLanguageError struct {
	Language  string
	Supported []string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language %q, choose from: %s", e.Language, strings.Join(e.Supported, ", "))
}

func (e *UnsupportedLanguageError) Is(target error) bool { return target == ErrUnsupportedLanguage }

// DecodeError reports a value missing or mistyped at a fixed position.
type DecodeError struct {
	// Path is the gjson path relative to the value being decoded
	Path   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Path, e.Reason)
}
