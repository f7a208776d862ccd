// internal/pipeline/batch/write-records/validation.go
package writerecords

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchema is the wire contract for one batch input line. Every record
// is checked against it before anything reaches the file.
const recordSchema = `{
  "type": "object",
  "required": ["recordId", "modelInput"],
  "properties": {
    "recordId": {
      "type": "string",
      "minLength": 1,
      "maxLength": 64,
      "pattern": "^[A-Za-z0-9]+$"
    },
    "modelInput": {
      "type": "object",
      "required": ["anthropic_version", "max_tokens", "messages"],
      "properties": {
        "anthropic_version": {"type": "string", "minLength": 1},
        "max_tokens": {"type": "integer", "minimum": 1},
        "messages": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["role", "content"],
            "properties": {
              "role": {"type": "string", "enum": ["user", "assistant"]},
              "content": {
                "type": "array",
                "minItems": 1,
                "items": {
                  "type": "object",
                  "required": ["type", "text"],
                  "properties": {
                    "type": {"type": "string", "enum": ["text"]},
                    "text": {"type": "string", "minLength": 1}
                  }
                }
              }
            }
          }
        },
        "temperature": {"type": "number", "minimum": 0, "maximum": 1},
        "top_p": {"type": "number", "minimum": 0, "maximum": 1},
        "top_k": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

func compileRecordSchema() (*gojsonschema.Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	return schema, nil
}

// validateRecord checks one record against the compiled schema and returns a
// readable aggregate of the violations.
func validateRecord(schema *gojsonschema.Schema, record interface{}) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(record))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("record validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
