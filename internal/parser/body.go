package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Strategy identifies how a response body was located in the raw text.
type Strategy int

const (
	StrategyFourthLine Strategy = iota + 1
	StrategyThirdLine
	StrategyGuardPrefix
	StrategyLongestLine
)

func (s Strategy) String() string {
	switch s {
	case StrategyFourthLine:
		return "fourth-line"
	case StrategyThirdLine:
		return "third-line"
	case StrategyGuardPrefix:
		return "guard-prefix"
	case StrategyLongestLine:
		return "longest-line"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// guardChars are stripped from the left of the text by StrategyGuardPrefix.
// Upstream prefixes responses with )]}' followed by blank lines.
const guardChars = ")]}'\n"

// Body is the decoded payload array of a response.
type Body struct {
	Raw      string
	Strategy Strategy

	value gjson.Result
}

// Get returns the value at a gjson path inside the body.
func (b *Body) Get(path string) gjson.Result {
	return b.value.Get(path)
}

type strategyFunc func(text string) (string, error)

var strategies = []struct {
	id   Strategy
	line strategyFunc
}{
	{StrategyFourthLine, nthLine(3)},
	{StrategyThirdLine, nthLine(2)},
	{StrategyGuardPrefix, guardedLine},
	{StrategyLongestLine, longestLine},
}

// ExtractBody locates and decodes the response body, trying each strategy in
// order. The first strategy yielding a body with candidates wins. A valid body
// with an empty candidate list is returned only when no later strategy finds
// candidates. When every strategy fails the result is a *ParseError.
func ExtractBody(text string) (*Body, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Failures: []error{errors.New("empty response")}}
	}

	var (
		failures []error
		empty    *Body
	)
	for _, s := range strategies {
		line, err := s.line(text)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", s.id, err))
			continue
		}
		body, err := decodeEnvelope(line)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", s.id, err))
			continue
		}
		body.Strategy = s.id
		if isEmpty(body.Get(pathCandidates)) {
			if empty == nil {
				empty = body
			}
			continue
		}
		return body, nil
	}
	if empty != nil {
		return empty, nil
	}
	return nil, &ParseError{Failures: failures}
}

func nthLine(n int) strategyFunc {
	return func(text string) (string, error) {
		lines := strings.Split(text, "\n")
		if len(lines) <= n {
			return "", fmt.Errorf("only %d lines, need line %d", len(lines), n)
		}
		return lines[n], nil
	}
}

func guardedLine(text string) (string, error) {
	return nthLine(1)(strings.TrimLeft(text, guardChars))
}

func longestLine(text string) (string, error) {
	var longest string
	for _, line := range strings.Split(text, "\n") {
		if len(line) > len(longest) {
			longest = line
		}
	}
	return longest, nil
}

// decodeEnvelope decodes one envelope line and the JSON string nested at
// pathEnvelopeBody. If that body has no candidates, the alternate body at
// pathEnvelopeAltBody is used when it decodes.
func decodeEnvelope(line string) (*Body, error) {
	if !gjson.Valid(line) {
		return nil, errors.New("line is not valid JSON")
	}
	envelope := gjson.Parse(line)
	if !envelope.IsArray() {
		return nil, mistyped("envelope", "array", envelope)
	}

	body, err := decodeNested(envelope, pathEnvelopeBody)
	if err != nil {
		return nil, err
	}
	candidates := body.Get(pathCandidates)
	if !candidates.Exists() {
		return nil, missing(pathCandidates)
	}
	if !isEmpty(candidates) {
		return body, nil
	}
	if alt, err := decodeNested(envelope, pathEnvelopeAltBody); err == nil && alt.Get(pathCandidates).Exists() {
		return alt, nil
	}
	return body, nil
}

func decodeNested(envelope gjson.Result, path string) (*Body, error) {
	raw, err := requireString(envelope, path)
	if err != nil {
		return nil, err
	}
	if !gjson.Valid(raw) {
		return nil, &DecodeError{Path: path, Reason: "nested body is not valid JSON"}
	}
	value := gjson.Parse(raw)
	if !value.IsArray() {
		return nil, mistyped(path, "array", value)
	}
	return &Body{Raw: raw, value: value}, nil
}
