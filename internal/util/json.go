package util

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ErrNoJSONObject is returned when no JSON object can be extracted from text.
var ErrNoJSONObject = errors.New("no JSON object found")

// ExtractJSON pulls a JSON object out of free-form model output. A fenced
// ```json block is tried first, then the span from the first '{' to the last
// '}'.
func ExtractJSON(text string) (map[string]any, error) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		var out map[string]any
		if err := json.Unmarshal([]byte(m[1]), &out); err == nil && out != nil {
			return out, nil
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, ErrNoJSONObject
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNoJSONObject
	}
	return out, nil
}
