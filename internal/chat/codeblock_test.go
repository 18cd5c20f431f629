package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Segment
	}{
		{
			name: "prose only",
			in:   "just words",
			want: []Segment{{Kind: AnswerText, Text: "just words"}},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
		{
			name: "code with language",
			in:   "Here:\n```python\nprint(1)\n```\ndone",
			want: []Segment{
				{Kind: AnswerText, Text: "Here:\n"},
				{Kind: CodeBlock, Text: "print(1)\n", Language: "python"},
				{Kind: AnswerText, Text: "\ndone"},
			},
		},
		{
			name: "code without language",
			in:   "```\nx := 1\n```",
			want: []Segment{{Kind: CodeBlock, Text: "\nx := 1\n"}},
		},
		{
			name: "first line with spaces is code",
			in:   "```a b\nc```",
			want: []Segment{{Kind: CodeBlock, Text: "a b\nc"}},
		},
		{
			name: "single line block",
			in:   "run ```ls -la``` now",
			want: []Segment{
				{Kind: AnswerText, Text: "run "},
				{Kind: CodeBlock, Text: "ls -la"},
				{Kind: AnswerText, Text: " now"},
			},
		},
		{
			name: "adjacent blocks omit empty prose",
			in:   "```go\na\n``````sh\nb\n```",
			want: []Segment{
				{Kind: CodeBlock, Text: "a\n", Language: "go"},
				{Kind: CodeBlock, Text: "b\n", Language: "sh"},
			},
		},
		{
			name: "unclosed fence stays prose",
			in:   "Intro\n```go\nfunc main() {",
			want: []Segment{{Kind: AnswerText, Text: "Intro\n```go\nfunc main() {"}},
		},
		{
			name: "odd fence after a closed block",
			in:   "```\na```b```c",
			want: []Segment{
				{Kind: CodeBlock, Text: "\na"},
				{Kind: AnswerText, Text: "b```c"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitCode(tt.in))
		})
	}
}

func TestJoinCodeRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"Here:\n```python\nprint(1)\n```\ndone",
		"```\nno lang\n```",
		"a ```inline``` b ```go\nx\n``` c",
		"dangling ```rust\nfn main",
	}
	for _, in := range inputs {
		assert.Equal(t, in, JoinCode(SplitCode(in)), "input %q", in)
	}
}

func TestSplitCode_GrowingAnswerIsStable(t *testing.T) {
	full := "Intro\n```go\nfmt.Println(1)\n```\nOutro"
	closed := len("Intro\n```go\nfmt.Println(1)\n```")

	final := SplitCode(full)
	for i := closed; i <= len(full); i++ {
		got := SplitCode(full[:i])
		// Everything up to the closed block never changes as text arrives.
		assert.Equal(t, final[:2], got[:2], "prefix %d", i)
	}

	partial := SplitCode(full[:closed-1])
	if assert.Len(t, partial, 1) {
		assert.Equal(t, AnswerText, partial[0].Kind)
	}
}
