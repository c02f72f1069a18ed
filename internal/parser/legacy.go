package parser

import (
	"strings"
)

// LegacyChoice is one answer recovered by ParseLegacyChoices.
type LegacyChoice struct {
	ID    string   `json:"choiceId"`
	Text  string   `json:"text"`
	Links []string `json:"links"`
}

// LegacyResult is the output of ParseLegacyChoices.
type LegacyResult struct {
	Text    string         `json:"text"`
	Choices []LegacyChoice `json:"choices"`
}

// legacyTokens splits the second guarded line of a response on literal
// backslashes, the way very old responses were read before the payload was
// double encoded JSON.
func legacyTokens(text string) []string {
	lines := strings.Split(strings.TrimLeft(text, guardChars), "\n")
	if len(lines) < 2 {
		return nil
	}
	var tokens []string
	for _, t := range strings.Split(lines[1], `\`) {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// ParseLegacyChoices groups escaped text fragments under the rc_ ids that
// precede them.
//
// Deprecated: low confidence heuristic for obsolete response formats; use
// Parser.Parse.
func ParseLegacyChoices(text string) LegacyResult {
	var res LegacyResult
	var current *LegacyChoice

	for _, t := range legacyTokens(text) {
		keep := t[0] == 'n' || strings.Contains(t, "https://") || strings.Contains(t, "http://") || strings.Contains(t, "rc_")
		if !keep || strings.Contains(t, "encrypted") || strings.Contains(t, "[Image") {
			continue
		}
		item := strings.TrimLeft(strings.TrimLeft(t, "n"), `"`)
		item = strings.ReplaceAll(item, "  ", " ")
		if item == "" {
			continue
		}

		switch {
		case strings.HasPrefix(item, "rc_"):
			res.Choices = append(res.Choices, LegacyChoice{ID: item})
			current = &res.Choices[len(res.Choices)-1]
		case current != nil && strings.Contains(item, "http"):
			current.Links = append(current.Links, item)
		case current != nil:
			current.Text = joinLine(current.Text, item)
		default:
			res.Text = joinLine(res.Text, item)
		}
	}

	if len(res.Choices) > 0 {
		res.Text = res.Choices[0].Text
	}
	return res
}

// ParseLegacySnippets reads "nkey: value" fragments into one map per choice,
// starting a new choice at each nsnippet key. Fragments without ": " are
// ignored.
//
// Deprecated: low confidence heuristic for obsolete response formats; use
// Parser.Parse.
func ParseLegacySnippets(text string) []map[string]string {
	var out []map[string]string
	current := map[string]string{}

	for _, t := range legacyTokens(text) {
		if t[0] != 'n' {
			continue
		}
		key, value, ok := strings.Cut(t, ": ")
		if !ok {
			continue
		}
		if key == "nsnippet" && len(current) > 0 {
			out = append(out, current)
			current = map[string]string{}
		}
		current[strings.TrimPrefix(key, "n")] = value
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

func joinLine(acc, s string) string {
	if acc == "" {
		return s
	}
	return acc + "\n" + s
}
