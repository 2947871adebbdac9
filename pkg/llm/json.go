package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// thinkTagPattern matches <think>...</think> blocks emitted by reasoning models.
var thinkTagPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// fencePattern matches a markdown code fence, with or without a language tag.
var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n?(.*?)```")

// StripFormatting removes <think> blocks and unwraps the first markdown fence.
func StripFormatting(response string) string {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")
	if m := fencePattern.FindStringSubmatch(cleaned); len(m) == 2 {
		cleaned = m[1]
	}
	return strings.TrimSpace(cleaned)
}

// ExtractJSON returns the first complete JSON object or array in an oracle
// response, skipping prose, <think> blocks and code fences around it.
func ExtractJSON(response string) (string, error) {
	cleaned := StripFormatting(response)

	for offset := 0; offset < len(cleaned); {
		i := strings.IndexAny(cleaned[offset:], "{[")
		if i < 0 {
			break
		}
		start := offset + i
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(cleaned[start:])).Decode(&raw); err == nil {
			return string(raw), nil
		}
		offset = start + 1
	}
	return "", fmt.Errorf("no valid JSON found in response")
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into the target.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return result, nil
}
