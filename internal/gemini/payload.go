package gemini

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// requestBody is the inner f.req array: [[prompt], null, metadata].
func requestBody(prompt string, metadata []string) []any {
	return []any{[]any{prompt}, nil, metadataValue(metadata)}
}

// metadataValue encodes unset ids as null and an all-empty list as null.
func metadataValue(metadata []string) any {
	var out []any
	set := false
	for _, m := range metadata {
		if m == "" {
			out = append(out, nil)
			continue
		}
		out = append(out, m)
		set = true
	}
	if !set {
		return nil
	}
	return out
}

// encodeFReq double encodes inner the way the front-end does:
// json([null, json(inner)]).
func encodeFReq(inner any) (string, error) {
	b, err := json.Marshal(inner)
	if err != nil {
		return "", fmt.Errorf("encode request body: %w", err)
	}
	outer, err := json.Marshal([]any{nil, string(b)})
	if err != nil {
		return "", fmt.Errorf("encode f.req: %w", err)
	}
	return string(outer), nil
}

func buildForm(nonce, prompt string, metadata []string) (url.Values, error) {
	freq, err := encodeFReq(requestBody(prompt, metadata))
	if err != nil {
		return nil, err
	}
	return url.Values{
		"at":    {nonce},
		"f.req": {freq},
	}, nil
}

func buildParams(botServer, language string, reqID int, sid string) url.Values {
	q := url.Values{
		"bl":     {botServer},
		"_reqid": {strconv.Itoa(reqID)},
		"rt":     {"c"},
	}
	if language != "" {
		q.Set("hl", language)
	}
	if sid != "" {
		q.Set("f.sid", sid)
	}
	return q
}

// BuildReplitPayload returns the f.req value that exports code to Replit:
// [[["qACoKe", json([instructions, 5, code, [[filename, code]]]), null, "generic"]]].
func BuildReplitPayload(instructions, code, filename string) (string, error) {
	inner, err := json.Marshal([]any{instructions, 5, code, []any{[]any{filename, code}}})
	if err != nil {
		return "", fmt.Errorf("encode replit request: %w", err)
	}
	b, err := json.Marshal([]any{[]any{[]any{"qACoKe", string(inner), nil, "generic"}}})
	if err != nil {
		return "", fmt.Errorf("encode replit payload: %w", err)
	}
	return string(b), nil
}
