package parser

import (
	"github.com/tidwall/gjson"
)

// gjson paths for the positional fields of a response. The upstream format
// has no schema; each offset below is an assumption that may silently change.
const (
	// Envelope line: [["wrb.fr", null, "<body json>"], ..., [.., .., "<alt body json>"]]
	pathEnvelopeBody    = "0.2"
	pathEnvelopeAltBody = "4.2"

	// Body
	pathPromptInfo = "0" // [promptClass, promptCandidate...] or null
	pathMetadata   = "1" // [cid, rid, rcid?]
	pathCandidates = "4" // [candidate...]

	// Candidate
	pathCandRCID      = "0"
	pathCandText      = "1.0"
	pathCandWebImages = "4"
	pathCandGenImages = "12.7.0"

	// Web image, relative to one entry of pathCandWebImages
	pathWebImgURL   = "0.0.0"
	pathWebImgTitle = "2"
	pathWebImgAlt   = "0.4"

	// Generated image, relative to one entry of pathCandGenImages
	pathGenImgURL    = "0.3.3"
	pathGenImgNumber = "3.6"
	pathGenImgAlts   = "3.5"
)

func missing(path string) error {
	return &DecodeError{Path: path, Reason: "missing"}
}

func mistyped(path, want string, got gjson.Result) error {
	return &DecodeError{Path: path, Reason: "want " + want + ", got " + got.Type.String()}
}

// requireString returns the string at path, failing if it is absent or not a
// JSON string.
func requireString(v gjson.Result, path string) (string, error) {
	r := v.Get(path)
	if !r.Exists() {
		return "", missing(path)
	}
	if r.Type != gjson.String {
		return "", mistyped(path, "string", r)
	}
	return r.Str, nil
}

// optionalString returns strings and numbers at path as text, anything else
// as "".
func optionalString(v gjson.Result, path string) string {
	r := v.Get(path)
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Raw
	default:
		return ""
	}
}

func requireArray(v gjson.Result, path string) ([]gjson.Result, error) {
	r := v.Get(path)
	if !r.Exists() {
		return nil, missing(path)
	}
	if !r.IsArray() {
		return nil, mistyped(path, "array", r)
	}
	return r.Array(), nil
}

// nonEmptyArray returns the elements at path, or nil when the value is absent,
// null, empty or not an array.
func nonEmptyArray(v gjson.Result, path string) []gjson.Result {
	r := v.Get(path)
	if !r.IsArray() {
		return nil
	}
	return r.Array()
}

func isEmpty(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.String:
		return v.Str == ""
	case gjson.JSON:
		return v.IsArray() && len(v.Array()) == 0
	}
	return !v.Exists()
}
