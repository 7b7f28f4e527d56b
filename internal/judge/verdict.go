package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

const systemPrompt = "You analyze the section structure of documents. Answer with a single JSON object and nothing else."

// ErrMalformedVerdict is returned when a model answer is not a JSON object
// carrying one of the expected values.
var ErrMalformedVerdict = errors.New("malformed verdict")

// Verdict is a validated model decision.
type Verdict struct {
	Value     string
	Reasoning string
}

// ParseVerdict extracts the decision stored under key from a model answer.
// The answer may be wrapped in a fenced code block. The value must equal one
// of allowed exactly.
func ParseVerdict(raw, key string, allowed []string) (Verdict, error) {
	text := stripCodeBlock(raw)
	if text == "" {
		return Verdict{}, fmt.Errorf("%w: empty answer", ErrMalformedVerdict)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v (raw: %s)", ErrMalformedVerdict, err, truncate(text, 200))
	}

	v, ok := obj[key].(string)
	if !ok {
		return Verdict{}, fmt.Errorf("%w: key %q missing or not a string", ErrMalformedVerdict, key)
	}
	if !slices.Contains(allowed, v) {
		return Verdict{}, fmt.Errorf("%w: %s=%q, want one of %v", ErrMalformedVerdict, key, v, allowed)
	}

	reasoning, _ := obj["reasoning"].(string)
	return Verdict{Value: v, Reasoning: reasoning}, nil
}
