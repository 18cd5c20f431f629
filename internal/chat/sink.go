package chat

// Handle identifies one assistant message inside a Sink. The core never
// looks inside it; it only passes it back.
type Handle int

// Sink is the display surface the core renders into. Implementations must
// only be mutated from the UI's own execution context; see the tui package
// for a sink that posts calls across goroutines instead of running them.
type Sink interface {
	ShowSystemNote(text string)
	ShowUserMessage(text string)
	// BeginAssistantMessage opens a new assistant message labelled with the
	// model that produced it.
	BeginAssistantMessage(modelLabel string) Handle
	// ReplaceThinkingRegion swaps the whole thinking text of a message.
	ReplaceThinkingRegion(h Handle, text string)
	// ReplaceAnswerRegion swaps the whole answer of a message.
	ReplaceAnswerRegion(h Handle, segments []Segment)
	ScrollToEnd()
}
