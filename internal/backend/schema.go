package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schemas for the two backend documents the client trusts with side effects:
// the poll envelope and the finished sources payload.
const statusSchema = `{
	"type": "object",
	"required": ["status", "progress", "file_progress"],
	"properties": {
		"status": {"type": "string"},
		"progress": {
			"type": "array",
			"items": {"type": "number"},
			"minItems": 2,
			"maxItems": 2
		},
		"file_progress": {
			"type": "array",
			"items": {"type": "number"},
			"minItems": 2,
			"maxItems": 2
		},
		"errors": {"type": "array", "items": {"type": "string"}}
	}
}`

const sourcesSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["num_pages", "filepath", "statblocks"],
		"properties": {
			"num_pages": {"type": "integer", "minimum": 0},
			"filepath": {"type": "string"},
			"version": {"type": "string"},
			"statblocks": {"type": "array"},
			"images": {"type": "array"},
			"page_images": {"type": "array"}
		}
	}
}`

var (
	compiledStatus  *jsonschema.Schema
	compiledSources *jsonschema.Schema
)

func init() {
	compiledStatus = mustCompile("status.json", statusSchema)
	compiledSources = mustCompile("sources.json", sourcesSchema)
}

func mustCompile(name, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

func validate(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

// ValidateStatus checks a raw poll response envelope.
func ValidateStatus(data []byte) error {
	return validate(compiledStatus, data)
}

// ValidateSources checks a raw finished payload before it is materialized.
func ValidateSources(data []byte) error {
	return validate(compiledSources, data)
}
