package analysis

import (
	"errors"
	"strings"
)

var errNoJSON = errors.New("no json object in model output")

// extractJSON pulls the JSON object out of raw model output. Models
// frequently wrap the object in markdown code fences despite being told
// not to; failing that, the first balanced top-level object is taken.
func extractJSON(content string) (string, error) {
	if idx := strings.Index(content, "```json"); idx >= 0 {
		rest := content[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), nil
		}
	}
	if idx := strings.Index(content, "```"); idx >= 0 {
		rest := content[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), nil
		}
	}

	start := strings.Index(content, "{")
	if start < 0 {
		return "", errNoJSON
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return content[start : i+1], nil
				}
			}
		}
	}
	return "", errNoJSON
}
