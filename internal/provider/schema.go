package provider

import (
	"fmt"
	"strings"
	"sync"

	"github.com/anime-shed/comicvault-grader/internal/grading"

	jsoniter "github.com/json-iterator/go"
	"github.com/xeipuuv/gojsonschema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OpinionSchema is the JSON Schema every remote opinion must satisfy
const OpinionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "required": ["corners", "spine", "surface", "centering", "color"],
  "properties": {
    "corners":   {"type": "number"},
    "spine":     {"type": "number"},
    "surface":   {"type": "number"},
    "centering": {"type": "number"},
    "color":     {"type": "number"},
    "restoration_suspected": {"type": "boolean"},
    "pressing_benefit": {"type": "string", "enum": ["none", "low", "medium", "high"]},
    "page_color": {"type": "string", "enum": ["white", "off-white", "cream", "tan", "brittle"]},
    "notes": {"type": "string"}
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(OpinionSchema))
})

// ValidatePayload checks raw opinion JSON against OpinionSchema
func ValidatePayload(payload []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile opinion schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", grading.ErrMalformedOpinion, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", grading.ErrMalformedOpinion, strings.Join(msgs, "; "))
	}
	return nil
}

// stripCodeFence removes a surrounding markdown code fence, which chat
// models often add despite instructions
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
