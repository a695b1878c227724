// Package extract pulls structured payloads (JSON problem definitions,
// SVG markup) out of free-form model responses. Both pipelines are ordered
// lists of best-effort strategies: the first one that succeeds wins, and a
// miss is a recoverable condition for the caller, not an error.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	jsonFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	jsonSpanRegex  = regexp.MustCompile(`(?s)\{.*\}`)
	svgFenceRegex  = regexp.MustCompile("(?s)```svg\\s*(.*?)\\s*```")
	svgSpanRegex   = regexp.MustCompile(`(?s)<svg.*?</svg>`)
)

var jsonStrategies = []func(string) ([]byte, bool){
	jsonWhole,
	jsonFencedBlock,
	jsonBraceSpan,
}

// JSON extracts a JSON object from text. Strategies, in order: parse the
// whole response; parse a fenced ```json block; parse the first
// balanced-looking {...} span matched greedily.
func JSON(text string) ([]byte, bool) {
	for _, strategy := range jsonStrategies {
		if raw, ok := strategy(text); ok {
			return raw, true
		}
	}
	return nil, false
}

func jsonWhole(text string) ([]byte, bool) {
	trimmed := strings.TrimSpace(text)
	if validObject(trimmed) {
		return []byte(trimmed), true
	}
	return nil, false
}

func jsonFencedBlock(text string) ([]byte, bool) {
	m := jsonFenceRegex.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	candidate := strings.TrimSpace(m[1])
	if validObject(candidate) {
		return []byte(candidate), true
	}
	return nil, false
}

func jsonBraceSpan(text string) ([]byte, bool) {
	candidate := jsonSpanRegex.FindString(text)
	if candidate == "" {
		return nil, false
	}
	if validObject(candidate) {
		return []byte(candidate), true
	}
	return nil, false
}

func validObject(s string) bool {
	return strings.HasPrefix(s, "{") && json.Valid([]byte(s))
}

// SVG extracts SVG markup from text. Strategies, in order: a fenced ```svg
// block (trimmed inner content), then the first <svg>...</svg> span
// verbatim.
func SVG(text string) (string, bool) {
	if m := svgFenceRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if span := svgSpanRegex.FindString(text); span != "" {
		return span, true
	}
	return "", false
}
