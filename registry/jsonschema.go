package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// documentSchema describes the serialized SchemaDefinition document shape:
// an array of tables, each with a name and an ordered column array whose
// type field is restricted to the closed ColumnType set.
const documentSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["Tables"],
	"properties": {
		"Tables": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["Name", "Columns"],
				"properties": {
					"Name": {"type": "string", "minLength": 1},
					"Columns": {
						"type": "array",
						"minItems": 1,
						"items": {
							"type": "object",
							"required": ["Name", "Type"],
							"properties": {
								"Name": {"type": "string", "minLength": 1},
								"Type": {
									"enum": ["uuid", "string", "text", "integer", "bigint", "float",
										"decimal", "boolean", "datetime", "date", "time", "json", "binary"]
								}
							}
						}
					}
				}
			}
		}
	}
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchema))
		if err != nil {
			compileErr = fmt.Errorf("registry: parsing document schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("lpcore://schema-definition.json", doc); err != nil {
			compileErr = fmt.Errorf("registry: adding document schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile("lpcore://schema-definition.json")
	})
	return compiled, compileErr
}

// validateDocument parses raw (a serialized SchemaDefinition) and validates
// its shape against documentSchema, catching malformed documents before
// Store ever persists them.
func validateDocument(raw []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return fmt.Errorf("registry: parsing schema document: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("registry: schema document failed validation: %w", err)
	}
	return nil
}
