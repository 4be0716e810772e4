package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Descriptor describes a registered tool for discovery.
type Descriptor struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters"`
	InputSchema json.RawMessage   `json:"input_schema,omitempty"`
}

// Tool is a named operation with typed arguments.
type Tool struct {
	desc Descriptor
	call func(ctx context.Context, params map[string]any) (any, error)
}

// Descriptor returns the tool's discovery metadata.
func (t Tool) Descriptor() Descriptor {
	return t.desc
}

// NewTool builds a Tool whose parameters are decoded into A. The parameter
// map and input schema are reflected from A's json and jsonschema tags;
// validate tags are checked before fn runs.
func NewTool[A any](name, description string, fn func(ctx context.Context, args A) (any, error)) Tool {
	schema := generateSchema[A]()

	params := make(map[string]string)
	if schema.Properties != nil {
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			params[pair.Key] = pair.Value.Description
		}
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		// Reflection of a plain struct never fails to marshal.
		panic(fmt.Sprintf("marshal schema for %s: %v", name, err))
	}

	return Tool{
		desc: Descriptor{
			Name:        name,
			Description: description,
			Parameters:  params,
			InputSchema: raw,
		},
		call: func(ctx context.Context, params map[string]any) (any, error) {
			args, err := decodeArgs[A](params)
			if err != nil {
				return nil, err
			}
			return fn(ctx, args)
		},
	}
}

func generateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	return reflector.Reflect(&v)
}

func decodeArgs[A any](params map[string]any) (A, error) {
	var args A
	data, err := json.Marshal(params)
	if err != nil {
		return args, fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(data, &args); err != nil {
		return args, fmt.Errorf("invalid arguments: %w", err)
	}
	if err := validate.Struct(args); err != nil {
		return args, fmt.Errorf("invalid arguments: %w", err)
	}
	return args, nil
}
