package services

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Normalized is a model reply coerced into JSON when possible. Value holds
// the decoded object or array when Structured is true, and Raw otherwise.
type Normalized struct {
	Value      any
	Raw        string
	Structured bool
	Strategy   string
}

// ParseStrategy tries to recover a JSON value from reply text.
type ParseStrategy interface {
	Name() string
	Parse(text string) (any, bool)
}

type ResponseNormalizer struct {
	strategies []ParseStrategy
}

// NewResponseNormalizer returns the default chain: whole-text JSON, fenced
// code block, then a brace scan.
func NewResponseNormalizer(strategies ...ParseStrategy) *ResponseNormalizer {
	if len(strategies) == 0 {
		strategies = []ParseStrategy{strictStrategy{}, fencedStrategy{}, braceScanStrategy{}}
	}
	return &ResponseNormalizer{strategies: strategies}
}

// Normalize runs the strategies in order and stops at the first success.
// When every strategy fails the raw text is returned unchanged.
func (n *ResponseNormalizer) Normalize(text string) Normalized {
	for _, s := range n.strategies {
		if v, ok := s.Parse(text); ok {
			return Normalized{Value: v, Raw: text, Structured: true, Strategy: s.Name()}
		}
	}
	return Normalized{Value: text, Raw: text, Structured: false, Strategy: "raw_text"}
}

// decodeStructured accepts only JSON objects and arrays. Bare scalars such as
// a quoted string or a number are treated as unstructured text.
func decodeStructured(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

type strictStrategy struct{}

func (strictStrategy) Name() string { return "strict" }

func (strictStrategy) Parse(text string) (any, bool) {
	return decodeStructured(text)
}

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n?(.*?)```")

type fencedStrategy struct{}

func (fencedStrategy) Name() string { return "fenced" }

func (fencedStrategy) Parse(text string) (any, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		if v, ok := decodeStructured(m[1]); ok {
			return v, true
		}
	}
	return nil, false
}

// maxBraceCandidates bounds how many opening braces the scan tries.
const maxBraceCandidates = 64

type braceScanStrategy struct{}

func (braceScanStrategy) Name() string { return "brace_scan" }

// Parse returns the first balanced {...} span that decodes, trying each
// opening brace in order.
func (braceScanStrategy) Parse(text string) (any, bool) {
	offset := 0
	for range maxBraceCandidates {
		idx := strings.IndexByte(text[offset:], '{')
		if idx < 0 {
			return nil, false
		}
		start := offset + idx
		if end := matchingBrace(text, start); end > start {
			if v, ok := decodeStructured(text[start : end+1]); ok {
				return v, true
			}
		}
		offset = start + 1
	}
	return nil, false
}

// matchingBrace returns the index of the brace closing the one at start,
// skipping braces inside JSON strings, or -1.
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
