package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arin/ollama-chat/internal/ui"
)

const shortHelp = "enter send • alt+enter newline • esc stop • ctrl+l clear • ctrl+s save • ctrl+p model • ctrl+t theme • f1 help • ctrl+c quit"

const keyHelp = `Keys:
  enter       send the message
  alt+enter   insert a new line
  esc         stop the current answer
  ctrl+l      clear the chat
  ctrl+s      save the chat to a JSON file
  ctrl+p      switch to the next model
  ctrl+k      show or hide thinking
  ctrl+t      toggle dark/light theme
  ctrl+y      copy the last answer
  pgup/pgdn   scroll
  ctrl+c      quit

Commands:
  /clear            clear the chat
  /save [path]      save the chat
  /model [name]     show or switch the model
  /thinking         show or hide thinking
  /theme [name]     toggle or set the theme
  /copy             copy the last answer
  /help             this help
  /quit             exit`

// command runs a slash command typed into the input box.
func (m *Model) command(line string) tea.Cmd {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit":
		m.stopStream()
		return tea.Quit
	case "/clear":
		m.clear()
	case "/save":
		m.save(strings.Join(args, " "))
	case "/model":
		if len(args) == 0 {
			m.transcript.ShowSystemNote("Model: " + m.model + " (available: " + strings.Join(m.models, ", ") + ")")
			m.refresh()
			return nil
		}
		m.setModel(args[0])
	case "/thinking":
		m.toggleThinking()
	case "/theme":
		if len(args) == 0 {
			m.toggleTheme()
			return nil
		}
		if m.streaming {
			m.toggleTheme()
			return nil
		}
		m.setTheme(ui.PaletteFor(args[0]).Name)
	case "/copy":
		m.copyLastAnswer()
	case "/help":
		m.transcript.ShowSystemNote(keyHelp)
		m.refresh()
	default:
		m.transcript.ShowError("Unknown command " + name + ". Type /help for the list.")
		m.refresh()
	}
	return nil
}
