// Package recognize parses and validates the recognition backend's
// response payload before it enters the pipeline.
package recognize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hwelland/qcflow/internal/core/domain"
)

// responseSchema constrains the backend payload shape: a results array of
// fragments, each with non-empty text and a bounded confidence. Anything
// else is a malformed response, which the pipeline degrades from instead
// of aborting.
var responseSchema = mustCompile(map[string]any{
	"type":     "object",
	"required": []any{"results"},
	"properties": map[string]any{
		"results": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"text"},
				"properties": map[string]any{
					"text":       map[string]any{"type": "string"},
					"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
					"bounding_box": map[string]any{
						"type":     "array",
						"items":    map[string]any{"type": "number"},
						"minItems": 8,
						"maxItems": 8,
					},
					"category":   map[string]any{"type": "string"},
					"severity":   map[string]any{"type": "string"},
					"department": map[string]any{"type": "string"},
					"location":   map[string]any{"type": "string"},
					"is_table":   map[string]any{"type": "boolean"},
					"table_cells": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":     "object",
							"required": []any{"row_index", "column_index", "text"},
							"properties": map[string]any{
								"row_index":    map[string]any{"type": "integer", "minimum": 0},
								"column_index": map[string]any{"type": "integer", "minimum": 0},
								"text":         map[string]any{"type": "string"},
								"confidence":   map[string]any{"type": "number"},
							},
						},
					},
				},
			},
		},
	},
})

type response struct {
	Results []domain.Fragment `json:"results"`
}

// ParseResponse validates the payload shape and decodes the fragment list.
// Empty, non-JSON or schema-violating payloads yield
// domain.ErrMalformedResponse.
func ParseResponse(payload []byte) ([]domain.Fragment, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "parse recognition response",
			errors.New("empty payload"))
	}

	var generic any
	if err := json.Unmarshal(payload, &generic); err != nil {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "parse recognition response", err)
	}
	if err := responseSchema.Validate(generic); err != nil {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "validate recognition response", err)
	}

	var resp response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "decode recognition response", err)
	}
	return resp.Results, nil
}

func mustCompile(schemaMap map[string]any) *jsonschema.Schema {
	raw, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal recognition schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("recognition.json", bytes.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("add recognition schema: %v", err))
	}
	schema, err := compiler.Compile("recognition.json")
	if err != nil {
		panic(fmt.Sprintf("compile recognition schema: %v", err))
	}
	return schema
}
