package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// generateInputSchema generates a JSON schema from a Go type.
func generateInputSchema(inputType any) (map[string]any, error) {
	// Inline all schemas instead of using $ref/$defs.
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(inputType)

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaBytes, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}

	// MCP clients expect a plain object schema.
	delete(schemaMap, "$schema")
	delete(schemaMap, "$id")

	return schemaMap, nil
}

// parseArguments decodes tool arguments into target.
func parseArguments(args any, target any) error {
	if args == nil {
		return nil
	}
	argBytes, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(argBytes, target); err != nil {
		return fmt.Errorf("failed to parse arguments: %w", err)
	}
	return nil
}
