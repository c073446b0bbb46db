package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/hupe1980/webdevchat/chat"
	"github.com/hupe1980/webdevchat/runner"
)

// ChatService is the part of chat.Service the terminal UI needs.
type ChatService interface {
	Ask(ctx context.Context, sessionID, message string) (chat.Reply, error)
	Reset(sessionID string) error
	Entry() string
}

// Model is the Bubble Tea model for the chat window.
type Model struct {
	ctx context.Context
	svc ChatService

	width  int
	height int

	textArea   textarea.Model
	viewport   viewport.Model
	spinner    spinner.Model
	mdRenderer *glamour.TermRenderer

	sessionID  string
	persona    string
	transcript []entry
	lastError  error

	ready    bool
	busy     bool
	quitting bool
}

// NewModel creates the chat model. An empty sessionID starts a new session
// on the first message.
func NewModel(ctx context.Context, svc ChatService, sessionID string) *Model {
	ta := textarea.New()
	ta.Placeholder = "Ask a web development question..."
	ta.Focus()
	ta.CharLimit = 4000
	ta.SetWidth(80)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.FocusedStyle.Prompt = inputPromptStyle
	ta.BlurredStyle.Prompt = inputPromptStyle
	// enter submits
	ta.KeyMap.InsertNewline.SetKeys("shift+enter")

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = personaLabelStyle

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	mdRenderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(76),
	)

	return &Model{
		ctx:        ctx,
		svc:        svc,
		textArea:   ta,
		viewport:   vp,
		spinner:    s,
		mdRenderer: mdRenderer,
		sessionID:  sessionID,
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, tea.WindowSize())
}

// SessionID returns the session the model is chatting in.
func (m *Model) SessionID() string { return m.sessionID }

// Persona returns the persona that produced the latest reply.
func (m *Model) Persona() string { return m.persona }

// Update handles incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.ready = true
		if m.width != msg.Width {
			m.mdRenderer, _ = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(max(msg.Width-8, 20)),
			)
		}
		m.width = msg.Width
		m.height = msg.Height
		m.textArea.SetWidth(max(msg.Width-4, 10))
		// header, two separators, input and help
		m.viewport.Width = max(msg.Width-4, 10)
		m.viewport.Height = max(msg.Height-8, 3)
		m.updateViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case replyMsg:
		m.busy = false
		if msg.err != nil {
			m.lastError = msg.err
			m.updateViewport()
			return m, nil
		}
		m.lastError = nil
		m.sessionID = msg.reply.SessionID
		m.persona = msg.reply.Persona
		kind := entryReply
		if msg.reply.Failed {
			kind = entryError
		}
		m.transcript = append(m.transcript, entry{kind: kind, persona: msg.reply.Persona, text: msg.reply.Text})
		m.updateViewport()
		return m, nil

	case resetMsg:
		m.lastError = msg.err
		if msg.err == nil {
			m.transcript = nil
			m.persona = ""
			m.sessionID = ""
		}
		m.updateViewport()
		return m, nil
	}

	var cmd tea.Cmd
	m.textArea, cmd = m.textArea.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "ctrl+l":
		if m.busy {
			return m, nil
		}
		return m, m.resetCmd()

	case "enter":
		if m.busy {
			return m, nil
		}
		text := strings.TrimSpace(m.textArea.Value())
		if text == "" {
			return m, nil
		}
		m.textArea.Reset()
		m.transcript = append(m.transcript, entry{kind: entryUser, text: text})
		m.busy = true
		m.lastError = nil
		m.updateViewport()
		return m, tea.Batch(m.spinner.Tick, m.askCmd(text))
	}

	var cmd tea.Cmd
	m.textArea, cmd = m.textArea.Update(msg)
	return m, cmd
}

func (m *Model) askCmd(text string) tea.Cmd {
	sessionID := m.sessionID
	return func() tea.Msg {
		reply, err := m.svc.Ask(m.ctx, sessionID, text)
		return replyMsg{reply: reply, err: err}
	}
}

func (m *Model) resetCmd() tea.Cmd {
	sessionID := m.sessionID
	return func() tea.Msg {
		if sessionID == "" {
			return resetMsg{}
		}
		return resetMsg{err: m.svc.Reset(sessionID)}
	}
}

func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	var b strings.Builder
	for _, e := range m.transcript {
		switch e.kind {
		case entryUser:
			b.WriteString(userMessageStyle.Render("You: " + e.text))
			b.WriteString("\n\n")
		case entryError:
			b.WriteString(errorLabelStyle.Render(e.text))
			b.WriteString("\n\n")
		default:
			b.WriteString(personaLabelStyle.Render(e.persona))
			b.WriteString("\n")
			b.WriteString(m.renderMarkdown(e.text))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) renderMarkdown(text string) string {
	if m.mdRenderer == nil {
		return text + "\n"
	}
	out, err := m.mdRenderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

// View renders the whole window.
func (m *Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.ready {
		return "Initializing...\n"
	}

	sep := separatorStyle.Render(strings.Repeat("─", max(m.width, 1)))

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(sep)
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.lastError != nil {
		b.WriteString(errorLabelStyle.Render("Error: " + m.lastError.Error()))
		b.WriteString("\n")
	}
	b.WriteString(sep)
	b.WriteString("\n")
	if m.busy {
		b.WriteString(m.spinner.View() + mutedStyle.Render(" thinking..."))
		b.WriteString("\n")
	}
	b.WriteString(m.textArea.View())
	b.WriteString("\n")
	b.WriteString(renderHelp())
	return b.String()
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("Web Dev Chat")
	agent := m.persona
	if agent == "" {
		agent = m.svc.Entry()
	}
	label := personaLabelStyle
	if agent == runner.ErrorPersona {
		label = errorLabelStyle
	}
	current := mutedStyle.Render("Current agent: ") + label.Render(agent)
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", current)
}

func renderHelp() string {
	keys := []struct{ key, desc string }{
		{"enter", "send"},
		{"ctrl+l", "new session"},
		{"esc", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", helpKeyStyle.Render(k.key), mutedStyle.Render(k.desc)))
	}
	return strings.Join(parts, mutedStyle.Render(" • "))
}
