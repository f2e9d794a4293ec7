package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no JSON object can be located in a model reply.
var ErrNoJSON = errors.New("no JSON object found")

// ExtractJSON locates the first complete JSON object in text. Models often
// wrap structured output in markdown fences or surround it with prose; both
// are tolerated.
func ExtractJSON(text string) ([]byte, error) {
	s := strings.TrimSpace(stripFence(text))

	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		var raw json.RawMessage
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		if err := dec.Decode(&raw); err == nil && len(raw) > 0 && raw[0] == '{' {
			return bytes.TrimSpace(raw), nil
		}
	}
	return nil, ErrNoJSON
}

// stripFence returns the body of the first ``` fenced block, or text as-is.
func stripFence(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}
	body := text[start+3:]
	// Drop the info string ("json", "JSON", ...).
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}
