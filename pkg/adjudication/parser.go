package adjudication

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ```json\n{...}\n``` anywhere in the reply
	codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

	// ErrNoObject is returned when the reply contains no JSON object
	ErrNoObject = errors.New("no JSON object in reply")

	verdictValidator = validator.New()
)

// Verdict is the structured part of an external service reply.
type Verdict struct {
	Confidence *int   `json:"confidence" validate:"required,min=0,max=100"`
	Reasoning  string `json:"reasoning"`
	Rationale  string `json:"rationale"`
}

// Explanation returns whichever rationale field the service filled in.
func (v Verdict) Explanation() string {
	if s := strings.TrimSpace(v.Rationale); s != "" {
		return s
	}
	return strings.TrimSpace(v.Reasoning)
}

// ParseVerdict extracts the outermost JSON object from free text and decodes it
// strictly. The object must carry an integer confidence within 0..100; any
// other shape is an error.
func ParseVerdict(reply string) (Verdict, error) {
	object, err := extractObject(reply)
	if err != nil {
		return Verdict{}, err
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(object), &verdict); err != nil {
		return Verdict{}, fmt.Errorf("invalid verdict JSON: %w", err)
	}

	if err := verdictValidator.Struct(verdict); err != nil {
		return Verdict{}, fmt.Errorf("invalid verdict: %w", err)
	}

	return verdict, nil
}

func extractObject(reply string) (string, error) {
	text := strings.TrimSpace(reply)
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", ErrNoObject
	}
	return text[start : end+1], nil
}

// truncate shortens s to n runes for diagnostics
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
