package parser

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// candidate builds a raw candidate array with the slots the decoder reads.
func candidate(rcid, text string, webImages, genImages []any) []any {
	c := make([]any, 13)
	c[0] = rcid
	c[1] = []any{text}
	if webImages != nil {
		c[4] = webImages
	} else {
		c[4] = []any{}
	}
	if genImages != nil {
		slot := make([]any, 8)
		slot[7] = []any{genImages}
		c[12] = slot
	}
	return c
}

func webImage(url, title, alt string) []any {
	return []any{[]any{[]any{url}, nil, nil, nil, alt}, nil, title}
}

func genImage(url string, number int, alts ...any) []any {
	info := make([]any, 7)
	info[5] = alts
	info[6] = number
	return []any{[]any{nil, nil, nil, []any{nil, nil, nil, url}}, nil, nil, info}
}

func body(candidates ...any) []any {
	return []any{nil, []any{"c_1", "r_1"}, nil, nil, candidates}
}

// envelope returns one framed line holding b double encoded at 0.2.
func envelope(t *testing.T, b []any) string {
	t.Helper()
	return mustJSON(t, []any{[]any{"wrb.fr", nil, mustJSON(t, b)}})
}

// standardResponse frames line the way upstream normally does, landing it on
// line index 3.
func standardResponse(line string) string {
	return strings.Join([]string{")]}'", "", "1234", line, "25", `[["e",4,null,null,1234]]`}, "\n")
}
