package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// leadingFences is checked in order, so the language-tagged fence wins over the bare one.
var leadingFences = []string{"```json", "```"}

const trailingFence = "```"

// StripFences removes markdown code fences that models wrap around JSON
// despite being told not to. Markers are stripped from both ends until
// none are left, then the text is trimmed. Clean JSON is returned unchanged.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	for {
		before := text

		for _, fence := range leadingFences {
			if len(text) >= len(fence) && strings.EqualFold(text[:len(fence)], fence) {
				text = strings.TrimSpace(text[len(fence):])
				break
			}
		}

		if strings.HasSuffix(text, trailingFence) {
			text = strings.TrimSpace(strings.TrimSuffix(text, trailingFence))
		}

		if text == before {
			return text
		}
	}
}

// DecodeObject strips fences from raw and decodes the remainder as a JSON object.
// Text that is not JSON yields a *ParseError; JSON that is not an object yields
// a *ValidationError.
func DecodeObject(raw string) (map[string]any, error) {
	cleaned := StripFences(raw)

	var decoded any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, &ParseError{Raw: cleaned, Err: err}
	}

	// Well-formed JSON of the wrong shape is a validation failure, not a parse failure.
	data, ok := decoded.(map[string]any)
	if !ok {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("expected a JSON object, got %s", jsonKind(decoded))}}
	}

	return data, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Decode copies a loosely typed object into out, using json tags for field
// names. Model output is not trusted to use exact types, so "80" decodes into
// an int field and "true" into a bool one.
func Decode(data map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return &ValidationError{Problems: []string{err.Error()}}
	}

	return nil
}
