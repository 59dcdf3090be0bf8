package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ratsdok/internal/agent"
)

// Asker is the TUI-facing slice of the conversation.
type Asker interface {
	Ask(ctx context.Context, question string) (agent.Result, error)
	Reset()
}

type chatMessage struct {
	role    string // "user" or "assistant"
	content string
	sources []agent.Source
}

type answerMsg struct {
	result agent.Result
	err    error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	conversation Asker
	input        textinput.Model
	viewport     viewport.Model
	messages     []chatMessage
	status       string
	busy         bool
	ready        bool
}

// New creates a new chat model instance.
func New(conversation Asker) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Stelle eine Frage und drücke Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		conversation: conversation,
		input:        ti,
		viewport:     vp,
		status:       "Bereit. Strg+L leert den Chat, Strg+C beendet.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Fehler: " + msg.err.Error()
		} else {
			m.messages = append(m.messages, chatMessage{
				role:    "assistant",
				content: msg.result.Answer,
				sources: msg.result.Sources,
			})
			if msg.result.Aborted {
				m.status = "Abgebrochen."
			} else {
				m.status = fmt.Sprintf("Antwort mit %d Quellen.", len(msg.result.Sources))
			}
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.messages = append(m.messages, chatMessage{role: "user", content: q})
				m.input.Reset()
				m.busy = true
				m.status = "Suche in den Dokumenten..."
				m.viewport.SetContent(m.renderTranscript())
				m.viewport.GotoBottom()
				return m, askCmd(m.conversation, q)
			}
		case "ctrl+l":
			m.conversation.Reset()
			m.messages = nil
			m.status = "Chat geleert."
			m.viewport.SetContent(m.renderTranscript())
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func askCmd(conversation Asker, question string) tea.Cmd {
	return func() tea.Msg {
		res, err := conversation.Ask(context.Background(), question)
		return answerMsg{result: res, err: err}
	}
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Lade..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Ratsdok — Nordstemmen Chat")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.messages) == 0 {
		return "Noch keine Nachrichten. Stelle eine Frage zu den Dokumenten der Gemeinde."
	}
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.role {
		case "user":
			b.WriteString(userStyle.Render("Du:") + " " + msg.content)
		default:
			b.WriteString(assistantStyle.Render("Assistent:") + " " + msg.content)
			if len(msg.sources) > 0 {
				b.WriteString("\n" + renderSources(msg.sources))
			}
		}
	}
	return b.String()
}

// renderSources lists the cited chunks under an answer, ranked hits with
// their score, and context chunks marked as such.
func renderSources(sources []agent.Source) string {
	var b strings.Builder
	b.WriteString(sourceHeaderStyle.Render("Quellen:"))
	for i, src := range sources {
		line := fmt.Sprintf("\n  %d. %s (Seite %d", i+1, src.Filename, src.Page)
		if src.Score > 0 {
			line += fmt.Sprintf(", Score %.3f)", src.Score)
		} else {
			line += ", Kontext)"
		}
		if src.AccessURL != "" {
			line += " " + linkStyle.Render(src.AccessURL)
		}
		b.WriteString(sourceStyle.Render(line))
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	sourceHeaderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	linkStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Underline(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
