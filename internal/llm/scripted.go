package llm

import (
	"context"
	"sync"

	"github.com/jonathan/data-autopilot/internal/types"
)

// ScriptedClient replays a fixed sequence of responses. It is used in tests
// and offline runs where no real provider is configured. Each call consumes
// the next scripted step; running past the script is a provider fault.
type ScriptedClient struct {
	mu      sync.Mutex
	steps   []scriptStep
	prompts []string
}

type scriptStep struct {
	text string
	err  error
}

// NewScriptedClient creates a client that replays the given responses in order.
func NewScriptedClient(responses ...string) *ScriptedClient {
	c := &ScriptedClient{}
	for _, r := range responses {
		c.Script(r)
	}
	return c
}

// Script appends a successful response to the sequence.
func (c *ScriptedClient) Script(text string) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, scriptStep{text: text})
	return c
}

// ScriptError appends a failing step to the sequence.
func (c *ScriptedClient) ScriptError(err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, scriptStep{err: err})
	return c
}

// Prompts returns every prompt received so far, in call order.
func (c *ScriptedClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

func (c *ScriptedClient) next(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", types.WrapFault(types.FaultProvider, err, "request canceled")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if len(c.steps) == 0 {
		return "", types.NewFault(types.FaultProvider, "scripted client has no response for call %d", len(c.prompts))
	}
	step := c.steps[0]
	c.steps = c.steps[1:]
	if step.err != nil {
		return "", types.WrapFault(types.FaultProvider, step.err, "scripted failure")
	}
	return step.text, nil
}

// GenerateContent returns the next scripted response.
func (c *ScriptedClient) GenerateContent(ctx context.Context, prompt string, _ ModelTier) (string, error) {
	return c.next(ctx, prompt)
}

// GenerateJSON returns the next scripted response with code fences stripped.
func (c *ScriptedClient) GenerateJSON(ctx context.Context, prompt string, _ ModelTier) (string, error) {
	text, err := c.next(ctx, prompt)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// GetModel reports a fixed placeholder model name.
func (c *ScriptedClient) GetModel(ModelTier) string { return "scripted" }

// Close is a no-op.
func (c *ScriptedClient) Close() error { return nil }
