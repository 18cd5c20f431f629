package ai

import (
	"context"
	"time"
)

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// Provider is the interface that any model backend must implement.
// This abstraction keeps the streaming core independent of the Ollama
// wire format.
type Provider interface {
	// Complete sends a list of messages to model and returns the whole
	// assistant response text.
	Complete(ctx context.Context, model string, messages []Message) (string, error)
}

// ModelInfo describes a model installed in the local runtime.
type ModelInfo struct {
	Name          string
	Family        string
	ParameterSize string
	Quantization  string
	Size          int64
	ModifiedAt    time.Time
}

// ModelLister is implemented by providers that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
