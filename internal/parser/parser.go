// Package parser decodes the chat front-end's StreamGenerate responses.
//
// A response is line framed text. One line is a JSON array whose element at
// 0.2 is itself a JSON encoded string holding the real payload ("body"). The
// body has no schema: every field is reached by fixed position. The package
// is pure and safe for concurrent use.
package parser

import (
	"maps"

	"github.com/tidwall/gjson"

	"github.com/sozercan/gemini-mole/apimodels"
)

// Parser decodes raw response text into a ModelOutput.
type Parser struct {
	cookies map[string]string
	policy  CandidatePolicy
}

// New returns a Parser stamping a copy of cookies into generated images.
func New(cookies map[string]string, policy CandidatePolicy) *Parser {
	return &Parser{cookies: maps.Clone(cookies), policy: policy}
}

// Parse extracts the body and decodes its candidates.
func (p *Parser) Parse(text string) (*apimodels.ModelOutput, error) {
	body, err := ExtractBody(text)
	if err != nil {
		return nil, err
	}
	return p.Decode(body)
}

// Decode builds a ModelOutput from an already extracted body.
func (p *Parser) Decode(body *Body) (*apimodels.ModelOutput, error) {
	// null and [] both mean the turn produced nothing
	list := nonEmptyArray(body.value, pathCandidates)
	candidates, err := DecodeCandidates(list, p.cookies, p.policy)
	if err != nil {
		return nil, err
	}

	out := &apimodels.ModelOutput{
		Metadata:   metadata(body.value),
		Candidates: candidates,
	}
	out.PromptClass, out.PromptCandidates = promptInfo(body.value)
	return out, nil
}

func metadata(body gjson.Result) []string {
	ids := nonEmptyArray(body, pathMetadata)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func promptInfo(body gjson.Result) (string, []string) {
	info := nonEmptyArray(body, pathPromptInfo)
	if len(info) == 0 {
		return "", nil
	}
	var rest []string
	for _, r := range info[1:] {
		rest = append(rest, r.String())
	}
	return info[0].String(), rest
}
