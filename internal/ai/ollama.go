package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	// DefaultOllamaHost is where a local Ollama instance listens.
	DefaultOllamaHost = "http://localhost:11434"
	defaultTimeout    = 5 * time.Minute
)

var (
	// ErrUnavailable means the Ollama server could not be reached.
	ErrUnavailable = errors.New("ollama is not reachable")
	// ErrModelNotFound means the requested model is not installed.
	ErrModelNotFound = errors.New("model not found")
)

// OllamaProvider implements StreamingProvider for the Ollama local API.
type OllamaProvider struct {
	host   string
	client *api.Client
}

// NewOllamaProvider creates a provider that talks to the Ollama instance at
// host. timeout bounds how long the server may take to start answering a
// request (loading a large model counts); it does not cut off long streams.
func NewOllamaProvider(host string, timeout time.Duration) (*OllamaProvider, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ollama host %q: want scheme://host:port", host)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	return &OllamaProvider{
		host:   host,
		client: api.NewClient(u, &http.Client{Transport: transport}),
	}, nil
}

// Host returns the server URL this provider talks to.
func (o *OllamaProvider) Host() string {
	return o.host
}

// ChatStream sends the conversation to Ollama and streams the reply.
func (o *OllamaProvider) ChatStream(ctx context.Context, model string, messages []Message) <-chan StreamDelta {
	ch := make(chan StreamDelta)

	go func() {
		defer close(ch)

		stream := true
		req := &api.ChatRequest{
			Model:    model,
			Messages: toOllamaMessages(messages),
			Stream:   &stream,
		}

		err := o.client.Chat(ctx, req, func(res api.ChatResponse) error {
			if res.Message.Content == "" {
				return nil
			}
			select {
			case ch <- StreamDelta{Token: res.Message.Content}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})

		final := StreamDelta{Done: true}
		if err != nil {
			final = StreamDelta{Err: o.wrapErr(model, err)}
		}
		select {
		case ch <- final:
		case <-ctx.Done():
		}
	}()

	return ch
}

// Complete sends messages to Ollama and returns the response text.
func (o *OllamaProvider) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: toOllamaMessages(messages),
		Stream:   &stream,
	}

	var out strings.Builder
	err := o.client.Chat(ctx, req, func(res api.ChatResponse) error {
		out.WriteString(res.Message.Content)
		return nil
	})
	if err != nil {
		return "", o.wrapErr(model, err)
	}
	return strings.TrimSpace(out.String()), nil
}

// ListModels returns the models installed in the local runtime.
func (o *OllamaProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := o.client.List(ctx)
	if err != nil {
		return nil, o.wrapErr("", err)
	}

	models := make([]ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, ModelInfo{
			Name:          m.Name,
			Family:        m.Details.Family,
			ParameterSize: m.Details.ParameterSize,
			Quantization:  m.Details.QuantizationLevel,
			Size:          m.Size,
			ModifiedAt:    m.ModifiedAt,
		})
	}
	return models, nil
}

// Heartbeat checks that the server is up.
func (o *OllamaProvider) Heartbeat(ctx context.Context) error {
	if err := o.client.Heartbeat(ctx); err != nil {
		return o.wrapErr("", err)
	}
	return nil
}

// Version returns the server version string.
func (o *OllamaProvider) Version(ctx context.Context) (string, error) {
	v, err := o.client.Version(ctx)
	if err != nil {
		return "", o.wrapErr("", err)
	}
	return v, nil
}

// wrapErr turns client errors into the friendly errors the UI shows.
func (o *OllamaProvider) wrapErr(model string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var status api.StatusError
	if errors.As(err, &status) {
		if status.StatusCode == http.StatusNotFound || isModelNotFound(status.ErrorMessage) {
			return fmt.Errorf("%w: %q — run: ollama pull %s", ErrModelNotFound, model, model)
		}
		return fmt.Errorf("Ollama API error (status %d): %s", status.StatusCode, status.ErrorMessage)
	}
	// The client reports error bodies it reads mid-stream as plain errors.
	if isModelNotFound(err.Error()) {
		return fmt.Errorf("%w: %q — run: ollama pull %s", ErrModelNotFound, model, model)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w at %s — is it running? (start with: ollama serve): %v", ErrUnavailable, o.host, urlErr.Err)
	}

	return fmt.Errorf("ollama stream failed: %w", err)
}

func isModelNotFound(msg string) bool {
	return strings.Contains(msg, "model") && strings.Contains(msg, "not found")
}

func toOllamaMessages(messages []Message) []api.Message {
	out := make([]api.Message, len(messages))
	for i, m := range messages {
		out[i] = api.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
