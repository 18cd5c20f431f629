// Package chat holds the streaming core of ochat: the think-tag classifier,
// the code fence segmenter, the conversation session and the coordinator
// that drives one model response into a display sink.
package chat

import "errors"

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is one entry of a conversation. Order matters: the whole slice is
// replayed to the backend as context.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SegmentKind tells the display layer how to render a Segment.
type SegmentKind int

const (
	SystemNote SegmentKind = iota
	UserText
	ThinkingText
	AnswerText
	CodeBlock
)

func (k SegmentKind) String() string {
	switch k {
	case SystemNote:
		return "system"
	case UserText:
		return "user"
	case ThinkingText:
		return "thinking"
	case AnswerText:
		return "answer"
	case CodeBlock:
		return "code"
	}
	return "unknown"
}

// Segment is a renderable unit handed to the display sink.
// Language is only meaningful for CodeBlock and may be empty.
type Segment struct {
	Kind     SegmentKind
	Text     string
	Language string
}

var (
	// ErrInvalidRole is returned when a message carries an unknown role.
	ErrInvalidRole = errors.New("invalid message role")
	// ErrBusy is returned when a coordinator is asked to start a second stream.
	ErrBusy = errors.New("a response is already streaming")
)
