package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/sozercan/gemini-mole/apimodels"
)

var testCookies = map[string]string{"__Secure-1PSID": "sid", "NID": "nid"}

func TestParseEndToEndGuardPrefix(t *testing.T) {
	wrap := `[["wrb.fr","wrap"]]`
	b := []any{nil, []any{"c_1", "r_1"}, nil, nil, []any{candidate("rc_1", "Hello world", nil, nil)}}
	text := ")]}'\n\n\n\n" + wrap + "\n" + envelope(t, b)

	bd, err := ExtractBody(text)
	require.NoError(t, err)
	assert.Equal(t, StrategyGuardPrefix, bd.Strategy)

	out, err := New(testCookies, AbortOnError).Parse(text)
	require.NoError(t, err)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "rc_1", out.Candidates[0].RCID)
	assert.Equal(t, "Hello world", out.Candidates[0].Text)
	assert.Equal(t, "Hello world", out.Text())
	assert.Equal(t, []string{"c_1", "r_1"}, out.Metadata)
	assert.Equal(t, apimodels.CodeNone, out.Candidates[0].Code.Kind())
}

func TestParseIsIdempotent(t *testing.T) {
	text := standardResponse(envelope(t, body(
		candidate("rc_1", "one ```go\nfmt.Println(1)\n```", []any{webImage("https://img/1", "t", "a")}, nil),
		candidate("rc_2", "two", nil, []any{genImage("https://gen/1", 1, "alt")}),
	)))
	p := New(testCookies, AbortOnError)

	first, err := p.Parse(text)
	require.NoError(t, err)
	second, err := p.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseNoCandidates(t *testing.T) {
	for name, cands := range map[string]any{"empty list": []any{}, "null": nil} {
		t.Run(name, func(t *testing.T) {
			text := standardResponse(envelope(t, []any{nil, []any{"c_1"}, nil, nil, cands}))
			out, err := New(nil, AbortOnError).Parse(text)
			assert.Nil(t, out)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoCandidates))
			assert.False(t, errors.Is(err, ErrParse))
		})
	}
}

func TestParsePromptInfo(t *testing.T) {
	b := body(candidate("rc_1", "x", nil, nil))
	b[0] = []any{"class", "alt one", "alt two"}
	out, err := New(nil, AbortOnError).Parse(standardResponse(envelope(t, b)))
	require.NoError(t, err)
	assert.Equal(t, "class", out.PromptClass)
	assert.Equal(t, []string{"alt one", "alt two"}, out.PromptCandidates)
}

func TestDecodeWebImages(t *testing.T) {
	images := []any{
		webImage("https://img/1", "first", "alt 1"),
		webImage("https://img/2", "second", "alt 2"),
		webImage("https://img/3", "third", "alt 3"),
	}
	list := gjson.Parse(mustJSON(t, []any{candidate("rc_1", "x", images, nil)})).Array()

	cands, err := DecodeCandidates(list, nil, AbortOnError)
	require.NoError(t, err)
	got := cands[0].WebImages
	require.Len(t, got, len(images))
	for i, img := range got {
		assert.NotEmpty(t, img.URL)
		assert.Equal(t, images[i].([]any)[2], img.Title)
	}
	assert.Equal(t, apimodels.WebImage{URL: "https://img/2", Title: "second", Alt: "alt 2"}, got[1])
}

func TestDecodeGeneratedImages(t *testing.T) {
	images := []any{
		genImage("https://gen/1", 1, "cat", "dog"),
		genImage("https://gen/2", 2, "cat", "dog"),
		genImage("https://gen/3", 3, "only"),
	}
	list := gjson.Parse(mustJSON(t, []any{candidate("rc_1", "x", nil, images)})).Array()

	cands, err := DecodeCandidates(list, testCookies, AbortOnError)
	require.NoError(t, err)
	got := cands[0].GeneratedImages
	require.Len(t, got, 3)

	assert.Equal(t, "https://gen/1", got[0].URL)
	assert.Equal(t, "[GeneratedImage 1]", got[0].Title)
	assert.Equal(t, "cat", got[0].Alt)
	assert.Equal(t, "dog", got[1].Alt)
	assert.Equal(t, "only", got[2].Alt, "falls back to the first alt")
	assert.Equal(t, testCookies, got[2].Cookies)

	got[0].Cookies["NID"] = "changed"
	assert.Equal(t, "nid", testCookies["NID"], "cookies are a snapshot")
	assert.Equal(t, "nid", got[1].Cookies["NID"])
}

func TestDecodeCandidateWithoutImageSlots(t *testing.T) {
	list := gjson.Parse(`[["rc_1",["short"]]]`).Array()
	cands, err := DecodeCandidates(list, nil, AbortOnError)
	require.NoError(t, err)
	assert.Empty(t, cands[0].WebImages)
	assert.Empty(t, cands[0].GeneratedImages)
}

func TestDecodeCandidatesPolicy(t *testing.T) {
	raw := mustJSON(t, []any{
		candidate("rc_1", "good", nil, nil),
		[]any{"rc_2", nil},
		candidate("rc_3", "also good", []any{[]any{nil, nil, "no url"}}, nil),
		candidate("rc_4", "fine", nil, nil),
	})
	list := gjson.Parse(raw).Array()

	t.Run("abort", func(t *testing.T) {
		_, err := DecodeCandidates(list, nil, AbortOnError)
		require.Error(t, err)
		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, pathCandText, de.Path)
		assert.Contains(t, err.Error(), "candidate 1")
	})

	t.Run("skip", func(t *testing.T) {
		cands, err := DecodeCandidates(list, nil, SkipMalformed)
		require.NoError(t, err)
		require.Len(t, cands, 2)
		assert.Equal(t, "rc_1", cands[0].RCID)
		assert.Equal(t, "rc_4", cands[1].RCID)
	})

	t.Run("skip everything", func(t *testing.T) {
		_, err := DecodeCandidates(list[1:3], nil, SkipMalformed)
		assert.True(t, errors.Is(err, ErrNoCandidates))
	})
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, SkipMalformed, ParsePolicy("skip"))
	assert.Equal(t, AbortOnError, ParsePolicy("abort"))
	assert.Equal(t, AbortOnError, ParsePolicy(""))
	assert.Equal(t, "skip", SkipMalformed.String())
}
