package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/arin/ollama-chat/internal/ai"
)

// ThinkingLabel is shown above the thinking text of every message.
const ThinkingLabel = "Model is thinking...\n\n"

// Backend is the model runtime a coordinator streams from.
type Backend interface {
	ChatStream(ctx context.Context, model string, messages []ai.Message) <-chan ai.StreamDelta
}

// State is the lifecycle of a coordinator's current request.
type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// BackendError reports a stream that failed before it finished. Partial is
// what had been classified when the failure happened.
type BackendError struct {
	Model   string
	Partial StreamState
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Request describes one model response to stream.
type Request struct {
	Model string
	// History is the full ordered conversation, already including the
	// user message being answered.
	History []Message
	// WantThinking forwards the thinking phase to the sink.
	WantThinking bool
}

// Result describes a finished stream.
type Result struct {
	Answer      string
	SawThinking bool
	Chunks      int
	Skipped     int
	FirstChunk  time.Duration
	Elapsed     time.Duration
}

// Coordinator drives one streamed response at a time from a Backend into a
// Sink. Run is meant to be called from a worker goroutine; the sink it is
// given must be safe to call from there.
type Coordinator struct {
	backend Backend
	state   atomic.Int32
}

// NewCoordinator returns an idle coordinator for backend.
func NewCoordinator(backend Backend) *Coordinator {
	return &Coordinator{backend: backend}
}

// State returns where the coordinator is in its request lifecycle.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Run streams the answer to req into sink and returns the final answer
// text. Thinking text is rendered but never returned. On failure it returns
// a *BackendError and the caller's history must not be extended.
func (c *Coordinator) Run(ctx context.Context, req Request, sink Sink) (*Result, error) {
	for {
		cur := c.state.Load()
		if State(cur) == StateStreaming {
			return nil, ErrBusy
		}
		if c.state.CompareAndSwap(cur, int32(StateStreaming)) {
			break
		}
	}

	res, err := c.stream(ctx, req, sink)
	if err != nil {
		c.state.Store(int32(StateFailed))
		return nil, err
	}
	c.state.Store(int32(StateCompleted))
	return res, nil
}

func (c *Coordinator) stream(ctx context.Context, req Request, sink Sink) (*Result, error) {
	start := time.Now()
	slog.Debug("stream started", "model", req.Model, "messages", len(req.History))

	r := renderer{sink: sink, model: req.Model, wantThinking: req.WantThinking}
	var (
		state StreamState
		res   Result
	)

	ch := c.backend.ChatStream(ctx, req.Model, toWire(req.History))

loop:
	for {
		select {
		case <-ctx.Done():
			return nil, &BackendError{Model: req.Model, Partial: state, Err: ctx.Err()}

		case d, ok := <-ch:
			if !ok && ctx.Err() != nil {
				return nil, &BackendError{Model: req.Model, Partial: state, Err: ctx.Err()}
			}
			if !ok || d.Done {
				break loop
			}
			if d.Err != nil {
				slog.Warn("stream failed", "model", req.Model, "chunks", res.Chunks, "error", d.Err)
				return nil, &BackendError{Model: req.Model, Partial: state, Err: d.Err}
			}
			if d.Token == "" {
				continue
			}
			if !utf8.ValidString(d.Token) {
				res.Skipped++
				slog.Warn("skipping malformed chunk", "model", req.Model, "bytes", len(d.Token))
				continue
			}
			if res.Chunks == 0 {
				res.FirstChunk = time.Since(start)
			}
			res.Chunks++

			var segs []Segment
			state, segs = Classify(state, d.Token)
			r.render(segs)
		}
	}

	state, tail := Finish(state)
	r.render(tail)

	res.Answer = state.Answer
	res.SawThinking = r.sawThinking
	res.Elapsed = time.Since(start)
	slog.Debug("stream finished", "model", req.Model, "chunks", res.Chunks, "elapsed", res.Elapsed)
	return &res, nil
}

// renderer forwards classified segments to a sink, opening the assistant
// message lazily so a stream that fails before any output leaves no empty
// message behind.
type renderer struct {
	sink         Sink
	model        string
	wantThinking bool

	handle      Handle
	opened      bool
	sawThinking bool
}

func (r *renderer) open() Handle {
	if !r.opened {
		r.handle = r.sink.BeginAssistantMessage(r.model)
		r.opened = true
	}
	return r.handle
}

func (r *renderer) render(segs []Segment) {
	drawn := false
	for _, s := range segs {
		switch s.Kind {
		case ThinkingText:
			r.sawThinking = true
			if !r.wantThinking {
				continue
			}
			r.sink.ReplaceThinkingRegion(r.open(), ThinkingLabel+s.Text)
			drawn = true
		case AnswerText:
			r.sink.ReplaceAnswerRegion(r.open(), SplitCode(s.Text))
			drawn = true
		}
	}
	if drawn {
		r.sink.ScrollToEnd()
	}
}

func toWire(history []Message) []ai.Message {
	out := make([]ai.Message, len(history))
	for i, m := range history {
		out[i] = ai.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}
