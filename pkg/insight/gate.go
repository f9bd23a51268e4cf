// Package insight turns a question's result table into a short
// natural-language takeaway using Claude. The gate is optional: when
// disabled or unreachable the dashboard simply serves the numbers without a
// summary.
package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

const (
	DefaultModel   = "claude-sonnet-4-6"
	DefaultTimeout = 10 * time.Second
)

// Gate wraps the Anthropic client behind enable/timeout policy.
type Gate struct {
	client  *anthropic.Client
	model   string
	enabled bool
	timeout time.Duration
}

// Config holds insight gate configuration.
type Config struct {
	Enabled bool
	Model   string
	Timeout time.Duration
}

// NewGate creates the insight gate. A disabled gate is valid and returns
// empty summaries.
func NewGate(cfg Config) *Gate {
	if !cfg.Enabled {
		return &Gate{enabled: false}
	}

	client := anthropic.NewClient()

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Gate{
		client:  &client,
		model:   model,
		enabled: true,
		timeout: timeout,
	}
}

// Enabled reports whether summaries will actually be generated.
// Safe to call on a nil receiver.
func (g *Gate) Enabled() bool {
	return g != nil && g.enabled
}

// Summarize produces a one-paragraph insight for a question result. The
// result is passed as its JSON encoding. When the gate is nil or disabled it
// returns an empty summary and no error; an API failure is returned to the
// caller, who degrades to serving the numbers alone.
func (g *Gate) Summarize(ctx context.Context, title string, resultJSON []byte) (string, error) {
	if !g.Enabled() {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(512),
		System: []anthropic.TextBlockParam{
			{Text: insightSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildInsightPrompt(title, resultJSON))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("insight request: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("empty insight response")
	}
	return strings.TrimSpace(resp.Content[0].Text), nil
}
