package assistant

import (
	"context"
	"sync"
)

type toolCall struct {
	Name string
	Args map[string]any
}

// fakeTools answers tool calls from a per-tool function and records them.
type fakeTools struct {
	mu       sync.Mutex
	calls    []toolCall
	handlers map[string]func(ctx context.Context, args map[string]any) (string, error)
}

func newFakeTools() *fakeTools {
	return &fakeTools{handlers: map[string]func(context.Context, map[string]any) (string, error){}}
}

func (f *fakeTools) on(name string, fn func(ctx context.Context, args map[string]any) (string, error)) *fakeTools {
	f.handlers[name] = fn
	return f
}

func (f *fakeTools) reply(name, text string) *fakeTools {
	return f.on(name, func(context.Context, map[string]any) (string, error) { return text, nil })
}

func (f *fakeTools) fail(name string, err error) *fakeTools {
	return f.on(name, func(context.Context, map[string]any) (string, error) { return "", err })
}

func (f *fakeTools) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, toolCall{Name: name, Args: args})
	fn := f.handlers[name]
	f.mu.Unlock()

	if fn == nil {
		return "", context.Canceled
	}
	return fn(ctx, args)
}

func (f *fakeTools) Calls() []toolCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]toolCall(nil), f.calls...)
}
