package ui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

type rendererKey struct {
	theme string
	width int
}

var (
	renderersMu sync.Mutex
	renderers   = map[rendererKey]*glamour.TermRenderer{}
)

// Markdown renders prose for the terminal. Renderers are cached per theme
// and width because building one is far slower than using it. On any
// renderer error the text is returned as is.
func Markdown(text, theme string, width int) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	if width < 20 {
		width = 20
	}

	renderersMu.Lock()
	defer renderersMu.Unlock()

	key := rendererKey{theme: theme, width: width}
	r, ok := renderers[key]
	if !ok {
		style := "dark"
		if theme == Light {
			style = "light"
		}
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		renderers[key] = r
	}

	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
