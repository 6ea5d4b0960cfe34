package strategy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON finds the first balanced JSON object or array in free text and
// returns it as json.RawMessage. LLM responses routinely wrap the requested
// JSON in prose or code fences; this finds the first opening brace (or
// bracket) and its matching close and parses what's between.
func ExtractJSON(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := -1
	var open, close byte
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			open = text[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("no JSON object or array found in response")
	}

	depth := 0
	inString := false
	escaped := false
	end := -1
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("unbalanced JSON in response")
	}

	candidate := text[start : end+1]
	var v interface{}
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil, fmt.Errorf("extracted text is not valid JSON: %w", err)
	}
	return json.RawMessage(candidate), nil
}
