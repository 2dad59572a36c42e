package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/tmc/langchaingo/llms"
)

// ErrUnknownCapability is reported when a tool call names an unregistered capability
var ErrUnknownCapability = errors.New("unknown capability")

// Capability is a named operation an agent can request
type Capability interface {
	Name() string
	Description() string
	// Parameters is the JSON schema of the arguments
	Parameters() map[string]any
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// Definition converts a capability into the tool definition sent to a model
func Definition(c Capability) llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        c.Name(),
			Description: c.Description(),
			Parameters:  c.Parameters(),
		},
	}
}

// Props maps argument names to their schemas
type Props map[string]any

// Object builds an object schema with the given required properties
func Object(props Props, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any(props),
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// String builds a string property schema
func String(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// Integer builds an integer property schema
func Integer(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

type funcCapability[A any] struct {
	name        string
	description string
	params      map[string]any
	fn          func(ctx context.Context, args A) (any, error)
}

// NewFunc creates a capability from a typed function. Arguments are decoded
// into A by their json tags, converting weakly typed values such as "2" for an int.
func NewFunc[A any](name, description string, params map[string]any, fn func(ctx context.Context, args A) (any, error)) Capability {
	if params == nil {
		params = Object(Props{})
	}
	return &funcCapability[A]{name: name, description: description, params: params, fn: fn}
}

func (f *funcCapability[A]) Name() string               { return f.name }
func (f *funcCapability[A]) Description() string        { return f.description }
func (f *funcCapability[A]) Parameters() map[string]any { return f.params }

func (f *funcCapability[A]) Invoke(ctx context.Context, args map[string]any) (any, error) {
	if err := checkRequired(f.params, args); err != nil {
		return nil, err
	}
	var typed A
	if err := DecodeArgs(args, &typed); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", f.name, err)
	}
	return f.fn(ctx, typed)
}

// DecodeArgs decodes a tool call's arguments into dst using json struct tags
func DecodeArgs(args map[string]any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}

func checkRequired(schema map[string]any, args map[string]any) error {
	var required []string
	switch r := schema["required"].(type) {
	case []string:
		required = r
	case []any:
		for _, v := range r {
			if s, ok := v.(string); ok {
				required = append(required, s)
			}
		}
	}
	for _, name := range required {
		if v, ok := args[name]; !ok || v == nil {
			return fmt.Errorf("missing required argument %q", name)
		}
	}
	return nil
}
