package summarizing

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripFence removes a leading markdown code fence (with or without a "json"
// language tag) and its trailing counterpart, tolerating surrounding
// whitespace. Text without fences passes through unchanged.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimPrefix(strings.TrimLeft(text, " \t"), "json")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

// extractJSON locates the JSON object in a provider response, stripping
// fences and any prose around the outermost braces.
func extractJSON(text string) (string, error) {
	text = stripFence(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return "", fmt.Errorf("invalid JSON object in response")
	}

	return text[startIdx : endIdx+1], nil
}

// parseSummary parses a provider response into a Summary and validates it
// against the canonical schema. The decoded object is returned as-is; no
// fields are dropped or rewritten.
func parseSummary(text string) (Summary, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling json: %v", ErrBadResponse, err)
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrBadResponse)
	}

	if err := summarySchema.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	return Summary(obj), nil
}
