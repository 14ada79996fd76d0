package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// GenerateSchema reflects a JSON Schema from the given Go type, suitable for
// use as a structured-output format constraint. Struct fields may carry
// jsonschema_description tags to document themselves to the model.
func GenerateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return reflector.Reflect(reflect.New(t).Interface())
}

// UnmarshalFlexible parses model output into out, tolerating the usual
// failure shapes: payloads wrapped in a JSON string, doubled leading braces,
// and malformed JSON that jsonrepair can recover (unquoted keys, single
// quotes, trailing commas, truncated closers).
func UnmarshalFlexible(input string, out any) error {
	text := strings.TrimSpace(input)

	if json.Unmarshal([]byte(text), out) == nil {
		return nil
	}

	// Some models return the payload double-encoded as a JSON string.
	var wrapped string
	if json.Unmarshal([]byte(text), &wrapped) == nil {
		wrapped = strings.TrimSpace(wrapped)
		if json.Unmarshal([]byte(wrapped), out) == nil {
			return nil
		}
		text = wrapped
	}

	repaired, err := jsonrepair.JSONRepair(dropDoubledBrace(text))
	if err != nil {
		return fmt.Errorf("json repair failed: %w (input: %s)", err, text)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf(
			"unmarshal failed after repair: input=%s repaired=%s",
			text, repaired,
		)
	}
	return nil
}

func dropDoubledBrace(s string) string {
	s = strings.TrimSpace(s)
	rest, ok := strings.CutPrefix(s, "{")
	if !ok {
		return s
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "{") {
		return rest
	}
	return s
}
