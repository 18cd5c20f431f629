package ui

import "github.com/charmbracelet/lipgloss"

// Theme names.
const (
	Dark  = "dark"
	Light = "light"
)

// Palette is the set of colours one theme draws with.
type Palette struct {
	Name       string
	Background string
	Text       string
	Accent     string
	UserBg     string
	UserFg     string
	AssistBg   string
	AssistFg   string
	ThinkBg    string
	ThinkFg    string
	CodeBg     string
	CodeFg     string
	Ready      string
	Busy       string
	Error      string
	// CodeStyle is the chroma style code blocks are highlighted with.
	CodeStyle string
}

var (
	darkPalette = Palette{
		Name:       Dark,
		Background: "#1E1E2E",
		Text:       "#CDD6F4",
		Accent:     "#89B4FA",
		UserBg:     "#45475A",
		UserFg:     "#FFFFFF",
		AssistBg:   "#313244",
		AssistFg:   "#CDD6F4",
		ThinkBg:    "#2A2A3C",
		ThinkFg:    "#A6ADC8",
		CodeBg:     "#1A1B26",
		CodeFg:     "#7DCFFF",
		Ready:      "#4CAF50",
		Busy:       "#FFA500",
		Error:      "#F38BA8",
		CodeStyle:  "monokai",
	}
	lightPalette = Palette{
		Name:       Light,
		Background: "#F5F5F5",
		Text:       "#333333",
		Accent:     "#1E88E5",
		UserBg:     "#1E88E5",
		UserFg:     "#FFFFFF",
		AssistBg:   "#EEEEEE",
		AssistFg:   "#333333",
		ThinkBg:    "#E1E1E1",
		ThinkFg:    "#666666",
		CodeBg:     "#FAFAFA",
		CodeFg:     "#0B5394",
		Ready:      "#4CAF50",
		Busy:       "#FFA500",
		Error:      "#D32F2F",
		CodeStyle:  "github",
	}
)

// PaletteFor returns the palette named name, dark for anything unknown.
func PaletteFor(name string) Palette {
	if name == Light {
		return lightPalette
	}
	return darkPalette
}

// Toggle returns the other theme's name.
func Toggle(name string) string {
	if name == Light {
		return Dark
	}
	return Light
}

// Styles are the lipgloss styles the full-screen UI renders with.
type Styles struct {
	Palette Palette

	Header     lipgloss.Style
	StatusText lipgloss.Style
	Ready      lipgloss.Style
	Busy       lipgloss.Style
	Note       lipgloss.Style
	Error      lipgloss.Style
	UserLabel  lipgloss.Style
	UserBody   lipgloss.Style
	AssistHead lipgloss.Style
	AssistBody lipgloss.Style
	Thinking   lipgloss.Style
	CodeBox    lipgloss.Style
	CodeBadge  lipgloss.Style
	Input      lipgloss.Style
	Help       lipgloss.Style
}

// NewStyles builds the styles for the named theme.
func NewStyles(theme string) Styles {
	p := PaletteFor(theme)
	c := lipgloss.Color

	return Styles{
		Palette: p,

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.Accent)).
			Padding(0, 1),
		StatusText: lipgloss.NewStyle().Foreground(c(p.Text)),
		Ready:      lipgloss.NewStyle().Foreground(c(p.Ready)),
		Busy:       lipgloss.NewStyle().Foreground(c(p.Busy)),
		Note: lipgloss.NewStyle().
			Italic(true).
			Foreground(c(p.ThinkFg)),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.Error)),
		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.Accent)),
		UserBody: lipgloss.NewStyle().
			Foreground(c(p.UserFg)).
			Background(c(p.UserBg)).
			Padding(0, 1),
		AssistHead: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.Accent)),
		AssistBody: lipgloss.NewStyle().
			Foreground(c(p.AssistFg)),
		Thinking: lipgloss.NewStyle().
			Italic(true).
			Foreground(c(p.ThinkFg)).
			Background(c(p.ThinkBg)).
			Padding(0, 1),
		CodeBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c(p.CodeFg)).
			Padding(0, 1),
		CodeBadge: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.CodeFg)),
		Input: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(c(p.Accent)),
		Help: lipgloss.NewStyle().Foreground(c(p.ThinkFg)),
	}
}
