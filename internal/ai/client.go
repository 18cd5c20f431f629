// Package ai handles communication with the local model runtime: it sends
// conversations to Ollama and streams the replies back as text chunks.
package ai

import (
	"context"
	"log/slog"
)

// Client sends conversations to a Provider, streaming when it can.
type Client struct {
	provider     Provider
	systemPrompt string
}

// NewClient wraps provider. A non-empty systemPrompt is sent ahead of every
// conversation but never becomes part of it.
func NewClient(provider Provider, systemPrompt string) *Client {
	return &Client{provider: provider, systemPrompt: systemPrompt}
}

// Provider returns the wrapped provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// ChatStream streams model's reply to messages.
func (c *Client) ChatStream(ctx context.Context, model string, messages []Message) <-chan StreamDelta {
	return c.streamOrFallback(ctx, model, c.withSystemPrompt(messages))
}

// ListModels lists installed models when the provider supports it.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	lister, ok := c.provider.(ModelLister)
	if !ok {
		return nil, nil
	}
	return lister.ListModels(ctx)
}

func (c *Client) withSystemPrompt(messages []Message) []Message {
	if c.systemPrompt == "" {
		return messages
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: "system", Content: c.systemPrompt})
	return append(out, messages...)
}

// streamOrFallback uses the provider's stream when available, otherwise runs
// Complete and delivers the answer as a single chunk.
func (c *Client) streamOrFallback(ctx context.Context, model string, messages []Message) <-chan StreamDelta {
	if sp, ok := c.provider.(StreamingProvider); ok {
		return sp.ChatStream(ctx, model, messages)
	}

	slog.Debug("provider cannot stream, falling back to complete", "model", model)
	ch := make(chan StreamDelta, 2)
	go func() {
		defer close(ch)
		text, err := c.provider.Complete(ctx, model, messages)
		if err != nil {
			ch <- StreamDelta{Err: err}
			return
		}
		ch <- StreamDelta{Token: text}
		ch <- StreamDelta{Done: true}
	}()
	return ch
}
