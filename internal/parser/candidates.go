package parser

import (
	"fmt"
	"maps"

	"github.com/tidwall/gjson"

	"github.com/sozercan/gemini-mole/apimodels"
)

// CandidatePolicy decides what happens when one candidate fails to decode.
type CandidatePolicy int

const (
	// AbortOnError fails the whole batch on the first malformed candidate.
	AbortOnError CandidatePolicy = iota
	// SkipMalformed drops malformed candidates and keeps the rest.
	SkipMalformed
)

// ParsePolicy maps a config value to a CandidatePolicy. Unknown values select
// AbortOnError.
func ParsePolicy(s string) CandidatePolicy {
	if s == "skip" {
		return SkipMalformed
	}
	return AbortOnError
}

func (p CandidatePolicy) String() string {
	if p == SkipMalformed {
		return "skip"
	}
	return "abort"
}

// DecodeCandidates turns the raw candidate arrays into Candidate records,
// preserving order. cookies is stamped into every generated image. An empty
// result is a *NoCandidatesError.
func DecodeCandidates(list []gjson.Result, cookies map[string]string, policy CandidatePolicy) ([]apimodels.Candidate, error) {
	candidates := make([]apimodels.Candidate, 0, len(list))
	for i, raw := range list {
		c, err := decodeCandidate(raw, cookies)
		if err != nil {
			if policy == SkipMalformed {
				continue
			}
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil, &NoCandidatesError{}
	}
	return candidates, nil
}

func decodeCandidate(c gjson.Result, cookies map[string]string) (apimodels.Candidate, error) {
	rcid, err := requireString(c, pathCandRCID)
	if err != nil {
		return apimodels.Candidate{}, err
	}
	text, err := requireString(c, pathCandText)
	if err != nil {
		return apimodels.Candidate{}, err
	}
	webImages, err := decodeWebImages(nonEmptyArray(c, pathCandWebImages))
	if err != nil {
		return apimodels.Candidate{}, err
	}
	generated, err := decodeGeneratedImages(nonEmptyArray(c, pathCandGenImages), cookies)
	if err != nil {
		return apimodels.Candidate{}, err
	}

	return apimodels.Candidate{
		RCID:            rcid,
		Text:            text,
		Code:            ExtractCode(text),
		WebImages:       webImages,
		GeneratedImages: generated,
	}, nil
}

func decodeWebImages(entries []gjson.Result) ([]apimodels.WebImage, error) {
	images := make([]apimodels.WebImage, 0, len(entries))
	for i, e := range entries {
		url, err := requireString(e, pathWebImgURL)
		if err != nil {
			return nil, fmt.Errorf("web image %d: %w", i, err)
		}
		images = append(images, apimodels.WebImage{
			URL:   url,
			Title: optionalString(e, pathWebImgTitle),
			Alt:   optionalString(e, pathWebImgAlt),
		})
	}
	return images, nil
}

func decodeGeneratedImages(entries []gjson.Result, cookies map[string]string) ([]apimodels.GeneratedImage, error) {
	images := make([]apimodels.GeneratedImage, 0, len(entries))
	for i, e := range entries {
		url, err := requireString(e, pathGenImgURL)
		if err != nil {
			return nil, fmt.Errorf("generated image %d: %w", i, err)
		}
		alts, err := requireArray(e, pathGenImgAlts)
		if err != nil {
			return nil, fmt.Errorf("generated image %d: %w", i, err)
		}
		if len(alts) == 0 {
			return nil, fmt.Errorf("generated image %d: %w", i, missing(pathGenImgAlts+".0"))
		}
		// each image normally carries its own alt at its index
		alt := alts[0]
		if i < len(alts) {
			alt = alts[i]
		}
		images = append(images, apimodels.GeneratedImage{
			URL:     url,
			Title:   fmt.Sprintf("[GeneratedImage %s]", optionalString(e, pathGenImgNumber)),
			Alt:     alt.String(),
			Cookies: maps.Clone(cookies),
		})
	}
	return images, nil
}
