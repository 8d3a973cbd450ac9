package ai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a model reply holds no parseable JSON.
var ErrNoJSON = errors.New("no valid JSON found in response")

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ExtractJSON pulls the first balanced JSON object or array out of a model
// reply, ignoring reasoning blocks, code fences and surrounding prose.
func ExtractJSON(reply string) (string, error) {
	s := thinkBlock.ReplaceAllString(reply, "")
	obj := strings.IndexByte(s, '{')
	arr := strings.IndexByte(s, '[')
	candidates := [][2]byte{{'{', '}'}, {'[', ']'}}
	if arr >= 0 && (obj < 0 || arr < obj) {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}
	for _, c := range candidates {
		if out, ok := balanced(s, c[0], c[1]); ok && json.Valid([]byte(out)) {
			return out, nil
		}
	}
	if trimmed := strings.TrimSpace(s); json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}
	return "", ErrNoJSON
}

// DecodeJSON extracts JSON from reply and unmarshals it into v.
func DecodeJSON(reply string, v any) error {
	raw, err := ExtractJSON(reply)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

func balanced(s string, openCh, closeCh byte) (string, bool) {
	start := strings.IndexByte(s, openCh)
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == openCh:
			depth++
		case ch == closeCh:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
