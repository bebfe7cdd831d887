package mcp

import "context"

// LocalCaller invokes a Handler in process with the same result contract
// as Client.CallTool.
type LocalCaller struct {
	handler Handler
}

func NewLocalCaller(handler Handler) *LocalCaller {
	return &LocalCaller{handler: handler}
}

// CallTool runs the tool and returns its text, or a *ToolError when the
// tool reported failure.
func (c *LocalCaller) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := c.handler(ctx, ToolCall{Name: name, Arguments: args})
	if err != nil {
		return "", err
	}
	if err := result.Err(name); err != nil {
		return "", err
	}
	return result.Text(), nil
}
