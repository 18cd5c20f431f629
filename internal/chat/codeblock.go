package chat

import "strings"

// Fence delimits a code block in model output.
const Fence = "```"

// SplitCode splits answer text into alternating prose (AnswerText) and code
// (CodeBlock) segments. It is cheap enough to run on the full answer after
// every chunk.
//
// A fence that has not been closed yet is left in the trailing prose so a
// partially streamed block renders as text until its closing fence arrives.
// Empty prose between blocks is omitted.
func SplitCode(text string) []Segment {
	var out []Segment
	pos := 0

	for {
		open := strings.Index(text[pos:], Fence)
		if open < 0 {
			break
		}
		open += pos
		body := open + len(Fence)
		end := strings.Index(text[body:], Fence)
		if end < 0 {
			break
		}
		end += body

		if open > pos {
			out = append(out, Segment{Kind: AnswerText, Text: text[pos:open]})
		}
		lang, code := splitLanguage(text[body:end])
		out = append(out, Segment{Kind: CodeBlock, Text: code, Language: lang})
		pos = end + len(Fence)
	}

	if pos < len(text) {
		out = append(out, Segment{Kind: AnswerText, Text: text[pos:]})
	}
	return out
}

// JoinCode is the inverse of SplitCode: it rebuilds the markdown text the
// segments were split from.
func JoinCode(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		if s.Kind != CodeBlock {
			b.WriteString(s.Text)
			continue
		}
		b.WriteString(Fence)
		if s.Language != "" {
			b.WriteString(s.Language)
			b.WriteByte('\n')
		}
		b.WriteString(s.Text)
		b.WriteString(Fence)
	}
	return b.String()
}

// splitLanguage peels a language tag line off fenced content. The first line
// only counts as a tag when it is a single token followed by a newline.
func splitLanguage(content string) (lang, code string) {
	nl := strings.IndexByte(content, '\n')
	if nl <= 0 {
		return "", content
	}
	tag := content[:nl]
	if strings.ContainsAny(tag, " \t\r\v\f") {
		return "", content
	}
	return tag, content[nl+1:]
}
