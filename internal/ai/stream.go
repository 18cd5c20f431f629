// Package ai — stream.go provides the streaming interface and helpers.
// Streaming lets tokens appear in real-time as the model generates them,
// so the display can redraw on every chunk instead of waiting for the end.
package ai

import "context"

// StreamDelta represents a single chunk from a streaming model response.
type StreamDelta struct {
	// Token is the text fragment. Empty string is valid (heartbeat).
	Token string
	// Done is true when the stream is complete.
	Done bool
	// Err is non-nil if the stream encountered an error.
	Err error
}

// StreamingProvider extends Provider with token-by-token streaming.
// Providers that don't support streaming can omit this interface —
// the Client will fall back to Complete() automatically.
type StreamingProvider interface {
	Provider
	// ChatStream sends messages to model and returns a channel that emits
	// tokens as they arrive. The channel is closed when the response is
	// complete, after a final Done or Err delta.
	ChatStream(ctx context.Context, model string, messages []Message) <-chan StreamDelta
}
