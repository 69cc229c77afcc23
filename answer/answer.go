// Package answer validates the model's final structured output against
// the required research-report schema. Validation is all-or-nothing: a
// failing payload is discarded and the loop sends a repair instruction
// instead of keeping partial fields.
package answer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/marketlyhq/contentscout/types"
)

const schemaJSON = `{
  "type": "object",
  "required": ["offerParagraph", "internalJustification", "companyBlogSnapshot", "competitorSnapshots"],
  "properties": {
    "offerParagraph": {"type": "string", "minLength": 1},
    "internalJustification": {"type": "string", "minLength": 1},
    "companyBlogSnapshot": {
      "type": "object",
      "required": ["blogUrl", "postsPerMonth"],
      "properties": {
        "blogUrl": {"type": "string"},
        "postsPerMonth": {"type": "number"},
        "recentTopics": {"type": "array", "items": {"type": "string"}},
        "contentTypes": {"type": "array", "items": {"type": "string"}},
        "recentPosts": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["title", "date"],
            "properties": {
              "title": {"type": "string"},
              "date": {"type": "string"},
              "url": {"type": "string"}
            }
          }
        }
      }
    },
    "competitorSnapshots": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["companyName", "blogUrl"],
        "properties": {
          "companyName": {"type": "string"},
          "blogUrl": {"type": "string"},
          "postsPerMonth": {"type": "number"},
          "recentTopics": {"type": "array", "items": {"type": "string"}},
          "notableStrengths": {"type": "string"}
        }
      }
    }
  }
}`

var schema = gojsonschema.NewStringLoader(schemaJSON)

// ValidationError names the first field that failed so the loop can
// quote it back to the model in a repair instruction.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Detail
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Detail)
}

// Parse validates raw model output and decodes it into a FinalAnswer.
// Markdown code fences are tolerated and stripped even though the
// output contract forbids them.
func Parse(raw string) (types.FinalAnswer, error) {
	cleaned := StripFences(raw)
	if strings.TrimSpace(cleaned) == "" {
		return types.FinalAnswer{}, &ValidationError{Detail: "output is empty"}
	}

	var probe any
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		return types.FinalAnswer{}, &ValidationError{Detail: fmt.Sprintf("not valid JSON: %v", err)}
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return types.FinalAnswer{}, &ValidationError{Detail: fmt.Sprintf("schema check failed: %v", err)}
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return types.FinalAnswer{}, &ValidationError{
			Field:  first.Field(),
			Detail: first.Description(),
		}
	}

	var out types.FinalAnswer
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return types.FinalAnswer{}, &ValidationError{Detail: fmt.Sprintf("decode failed: %v", err)}
	}
	return out, nil
}

// StripFences removes a markdown code-fence wrapper, with or without a
// language tag, leaving bare content untouched.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop a language tag like "json" on the opening fence line.
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
