package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/tools"
)

type langchainCapability struct {
	t tools.Tool
}

// FromLangchain adapts a langchaingo tool. The tool receives the "input"
// argument, or the JSON encoding of all arguments when there is none.
func FromLangchain(t tools.Tool) Capability {
	return &langchainCapability{t: t}
}

func (l *langchainCapability) Name() string        { return l.t.Name() }
func (l *langchainCapability) Description() string { return l.t.Description() }

func (l *langchainCapability) Parameters() map[string]any {
	return Object(Props{"input": String("The input query for the tool")}, "input")
}

func (l *langchainCapability) Invoke(ctx context.Context, args map[string]any) (any, error) {
	input, ok := args["input"].(string)
	if !ok {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to encode arguments: %w", err)
		}
		input = string(data)
	}
	return l.t.Call(ctx, input)
}
