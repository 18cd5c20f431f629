package chat

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Session is the ordered message history of one conversation. It is owned
// by a single goroutine (the UI); streams only ever see a Snapshot.
type Session struct {
	id       string
	messages []Message
}

// NewSession starts an empty conversation with a fresh id.
func NewSession() *Session {
	return &Session{id: uuid.NewString()}
}

// ID returns the conversation id used by the archive.
func (s *Session) ID() string {
	return s.id
}

// Len returns the number of messages.
func (s *Session) Len() int {
	return len(s.messages)
}

// Append adds a message to the end of the history.
func (s *Session) Append(role Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	s.messages = append(s.messages, Message{Role: role, Content: content})
	return nil
}

// Clear drops the history and starts a new conversation id, so the archive
// keeps the old conversation under its own id.
func (s *Session) Clear() {
	s.messages = nil
	s.id = uuid.NewString()
}

// Snapshot returns a copy of the history safe to hand to another goroutine.
func (s *Session) Snapshot() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Last returns the most recent message with the given role.
func (s *Session) Last(role Role) (Message, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == role {
			return s.messages[i], true
		}
	}
	return Message{}, false
}

// Restore replaces the history with a loaded one. The id is kept when
// non-empty so resumed conversations keep archiving under their old id.
func (s *Session) Restore(id string, history []Message) error {
	for i, m := range history {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d: %w: %q", i, ErrInvalidRole, m.Role)
		}
	}
	s.messages = make([]Message, len(history))
	copy(s.messages, history)
	if id != "" {
		s.id = id
	}
	return nil
}

// Serialize encodes the history as an indented JSON array of
// {role, content} records. Non-ASCII text is written as is.
func (s *Session) Serialize() ([]byte, error) {
	return MarshalMessages(s.messages)
}

// SystemNotePrefix labels a replayed system message.
const SystemNotePrefix = "System: "

// Rebuild replays the history into sink through the same segmenter the live
// stream uses, so a replayed conversation looks like it did live. System
// messages are shown as notes.
func (s *Session) Rebuild(sink Sink, modelLabel string) {
	for _, m := range s.messages {
		switch m.Role {
		case RoleSystem:
			sink.ShowSystemNote(SystemNotePrefix + m.Content)
		case RoleUser:
			sink.ShowUserMessage(m.Content)
		case RoleAssistant:
			h := sink.BeginAssistantMessage(modelLabel)
			sink.ReplaceAnswerRegion(h, SplitCode(m.Content))
		}
	}
	sink.ScrollToEnd()
}

// MarshalMessages encodes messages in the persisted conversation format.
func MarshalMessages(messages []Message) ([]byte, error) {
	if messages == nil {
		messages = []Message{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(messages); err != nil {
		return nil, fmt.Errorf("encode conversation: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalMessages decodes the persisted conversation format.
func UnmarshalMessages(data []byte) ([]Message, error) {
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	for i, m := range messages {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("message %d: %w: %q", i, ErrInvalidRole, m.Role)
		}
	}
	return messages, nil
}
