package chat

import "strings"

// Markers some reasoning models wrap their thinking phase in.
const (
	ThinkOpen  = "<think>"
	ThinkClose = "</think>"
)

// Phase is the position of a stream inside the thinking protocol.
// A stream only ever moves forward: Idle -> Thinking -> Answering. A model
// that never thinks goes straight from Idle to Answering when it finishes.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseThinking
	PhaseAnswering
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseThinking:
		return "thinking"
	case PhaseAnswering:
		return "answering"
	}
	return "unknown"
}

// StreamState is the running classification state of one response.
// Thinking and Answer only grow. The zero value is a fresh stream.
type StreamState struct {
	Phase    Phase
	Thinking string
	Answer   string

	// carry holds text that cannot be classified yet: a tail that may be
	// the start of a marker split across chunks, or leading whitespace
	// seen before any answer text.
	carry string
}

// Classify consumes one chunk and returns the new state together with the
// segments the chunk produced. Segments always carry the full accumulated
// text of their region, never only the delta. Classify has no side effects.
func Classify(state StreamState, chunk string) (StreamState, []Segment) {
	text := state.carry + chunk
	state.carry = ""

	var thinkDirty, answerDirty bool

	for text != "" {
		switch state.Phase {
		case PhaseIdle:
			// Idle means no marker has been seen yet. Prose streamed here is
			// answer text, and a later <think> still opens the thinking phase.
			if i := strings.Index(text, ThinkOpen); i >= 0 {
				if pre := text[:i]; state.Answer != "" || !isBlank(pre) {
					state.Answer += pre
					answerDirty = true
				}
				state.Phase = PhaseThinking
				thinkDirty = true
				text = text[i+len(ThinkOpen):]
				continue
			}
			held := partialMarkerLen(text, ThinkOpen)
			body := text[:len(text)-held]
			if state.Answer == "" && isBlank(body) {
				state.carry = text
				text = ""
				continue
			}
			state.Answer += body
			answerDirty = true
			state.carry = text[len(text)-held:]
			text = ""

		case PhaseThinking:
			if i := strings.Index(text, ThinkClose); i >= 0 {
				state.Thinking += text[:i]
				thinkDirty = true
				state.Phase = PhaseAnswering
				text = text[i+len(ThinkClose):]
				continue
			}
			held := partialMarkerLen(text, ThinkClose)
			if body := text[:len(text)-held]; body != "" {
				state.Thinking += body
				thinkDirty = true
			}
			state.carry = text[len(text)-held:]
			text = ""

		case PhaseAnswering:
			state.Answer += text
			answerDirty = true
			text = ""
		}
	}

	return state, emit(state, thinkDirty, answerDirty)
}

// Finish releases anything still held in the carry-over buffer once the
// stream has ended. Held text is ordinary text of the current phase since
// no further chunk can complete a marker.
func Finish(state StreamState) (StreamState, []Segment) {
	if state.carry == "" {
		if state.Phase == PhaseIdle && state.Answer != "" {
			state.Phase = PhaseAnswering
		}
		return state, nil
	}
	held := state.carry
	state.carry = ""

	switch state.Phase {
	case PhaseThinking:
		state.Thinking += held
		return state, emit(state, true, false)
	default:
		state.Phase = PhaseAnswering
		state.Answer += held
		return state, emit(state, false, true)
	}
}

func emit(state StreamState, thinking, answer bool) []Segment {
	var out []Segment
	if thinking {
		out = append(out, Segment{Kind: ThinkingText, Text: state.Thinking})
	}
	if answer {
		out = append(out, Segment{Kind: AnswerText, Text: state.Answer})
	}
	return out
}

// partialMarkerLen returns the length of the longest suffix of text that is
// a proper prefix of marker.
func partialMarkerLen(text, marker string) int {
	n := len(marker) - 1
	if n > len(text) {
		n = len(text)
	}
	for ; n > 0; n-- {
		if strings.HasSuffix(text, marker[:n]) {
			return n
		}
	}
	return 0
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
