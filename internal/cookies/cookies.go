// Package cookies loads the browser session cookies the Gemini web front-end
// authenticates with.
package cookies

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Required lists the cookies a logged-in session normally carries.
var Required = []string{
	"SIDCC",
	"__Secure-1PSID",
	"__Secure-1PSIDTS",
	"__Secure-1PSIDCC",
	"NID",
}

var ErrEmpty = errors.New("no cookies found")

// FromEnv parses the cookies held in the named environment variable.
func FromEnv(name string) (map[string]string, error) {
	v, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	return Parse(v)
}

func FromFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	c, err := Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse accepts a JSON object, a JSON array of {"name","value"} entries as
// exported by browser extensions, a single-quoted dict, or a Cookie header
// ("a=b; c=d").
func Parse(text string) (map[string]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmpty
	}

	var out map[string]string
	var err error
	switch text[0] {
	case '{':
		out, err = parseObject(text)
	case '[':
		out, err = parseExport(text)
	default:
		out = parseHeader(text)
	}
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

func parseObject(text string) (map[string]string, error) {
	var out map[string]string
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out, nil
	}
	if err := json.Unmarshal([]byte(strings.ReplaceAll(text, "'", `"`)), &out); err != nil {
		return nil, fmt.Errorf("parse cookie object: %w", err)
	}
	return out, nil
}

func parseExport(text string) (map[string]string, error) {
	var entries []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, fmt.Errorf("parse cookie export: %w", err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Name != "" {
			out[e.Name] = e.Value
		}
	}
	return out, nil
}

func parseHeader(text string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(text, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		out[name] = value
	}
	return out
}

// Missing returns the Required cookies absent from c, in Required order.
func Missing(c map[string]string) []string {
	var missing []string
	for _, name := range Required {
		if c[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
