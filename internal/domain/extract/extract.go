// Package extract locates structured content inside free-text model output.
//
// Generation models wrap their JSON in markdown fences, preambles, and
// trailing commentary in no particular order, so extraction runs three
// independent tiers: fenced code block, whole-string parse, then a
// balanced-brace scan. Each tier is a pure function and tested on its own.
package extract

import (
	"encoding/json"
	"strings"

	apperrors "github.com/openlearn/adaptive-api/internal/errors"
)

// JSONObject extracts a single JSON object from free-text model output.
// Tiers, in order:
//  1. a fenced code block (language-tagged or bare) whose contents parse as
//     a JSON object
//  2. the entire trimmed text
//  3. the first balanced-brace object substring, tracking string and escape
//     state
//
// Returns an extraction error when no tier yields a valid object.
func JSONObject(text string) (map[string]any, error) {
	if block, ok := FencedBlock(text, "json"); ok {
		if obj, err := parseObject(block); err == nil {
			return obj, nil
		}
	}

	trimmed := strings.TrimSpace(text)
	if obj, err := parseObject(trimmed); err == nil {
		return obj, nil
	}

	if candidate, ok := balancedObject(text); ok {
		if obj, err := parseObject(candidate); err == nil {
			return obj, nil
		}
	}

	return nil, apperrors.Extraction("no JSON object found in model output")
}

// JSONInto extracts a JSON object from text and unmarshals it into dst,
// applying the same three tiers as JSONObject.
func JSONInto(text string, dst any) error {
	obj, err := JSONObject(text)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeExtraction, "re-encode extracted object")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeExtraction, "decode extracted object")
	}
	return nil
}

// FencedBlock returns the contents of the first markdown code fence in text.
// A fence tagged with lang is preferred; a bare or differently tagged fence
// is accepted as fallback. Returns false when the text has no complete fence.
func FencedBlock(text, lang string) (string, bool) {
	if lang != "" {
		if body, ok := fenceBody(text, "```"+lang); ok {
			return body, true
		}
	}
	return fenceBody(text, "```")
}

// fenceBody finds the first fence opening with marker and returns everything
// up to the closing fence. The opening line's remainder (a language tag) is
// discarded.
func fenceBody(text, marker string) (string, bool) {
	start := strings.Index(text, marker)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(marker):]

	// Skip the remainder of the opening line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return "", false
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// balancedObject scans for the first '{' and returns the substring up to its
// balancing '}', tracking string and escape state so braces inside string
// literals don't count.
func balancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString:
			if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// parseObject parses s strictly as a JSON object (not an array or scalar).
func parseObject(s string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, apperrors.Extraction("JSON value is not an object")
	}
	return obj, nil
}
