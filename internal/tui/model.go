// Package tui provides the full-screen terminal chat for the gallery guide.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arin/gallery-chat/internal/chat"
	"github.com/arin/gallery-chat/internal/conversation"
)

const (
	appTitle           = "Gallery AI Assistant"
	inputPlaceholder   = "Ask about art, artists, or media..."
	captureInstruction = "Listening..."
	footerCredit       = "Made by Kabanda Adrian.M.D.D and Ayebale Dalse · Ndejje Senior Secondary School"
)

// Message types for the TUI
type (
	snapshotMsg []conversation.Message
	turnDoneMsg struct{ err error }
	captureMsg  struct{ err error }
	copiedMsg   struct{ err error }
)

// Model is the TUI state. The conversation itself lives in the session;
// the model only keeps the latest snapshot for rendering.
type Model struct {
	ctx       context.Context
	session   *chat.Session
	bridge    *Bridge
	modelName string

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	messages  []conversation.Message
	busy      bool
	recording bool
	status    string
	statusErr bool
	ready     bool

	width  int
	height int
}

// New creates the TUI model for a session whose OnChange feeds bridge.
func New(ctx context.Context, s *chat.Session, bridge *Bridge, modelName string) Model {
	ta := textarea.New()
	ta.Placeholder = inputPlaceholder
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle = ta.FocusedStyle
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = thinkingStyle

	return Model{
		ctx:       ctx,
		session:   s,
		bridge:    bridge,
		modelName: modelName,
		textarea:  ta,
		spinner:   sp,
		messages:  s.Snapshot(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.bridge.wait())
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3
		inputHeight := 3
		chromeHeight := 3 // thinking line, status bar, footer
		vpHeight := m.height - headerHeight - inputHeight - chromeHeight
		if vpHeight < 5 {
			vpHeight = 5
		}
		contentWidth := m.width - 2

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.updateViewport()

	case snapshotMsg:
		wasBusy, wasRecording := m.busy, m.recording
		m.messages = msg
		m.busy = m.session.Busy()
		m.recording = m.session.Recording()
		if m.recording || wasRecording {
			m.textarea.SetValue(m.session.Draft())
		}
		m.setInputState()
		m.updateViewport()
		cmds = append(cmds, m.bridge.wait())
		if m.busy && !wasBusy {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case turnDoneMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		}

	case captureMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		}

	case copiedMsg:
		if msg.err != nil {
			m.setStatus("copy failed: "+msg.err.Error(), true)
		} else {
			m.setStatus("Answer copied to clipboard", false)
		}

	case spinner.TickMsg:
		if m.busy {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "ctrl+r":
			m.status = ""
			return m, m.toggleCapture()

		case "ctrl+y":
			return m, m.copyLastAnswer()

		case "enter":
			if m.busy || m.recording {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			if input == "exit" || input == "quit" || input == "/exit" || input == "/quit" {
				return m, tea.Quit
			}
			m.status = ""
			m.textarea.Reset()
			return m, m.submit(input)
		}

		// Only keys reach the textarea, and only while it accepts input.
		if !m.busy && !m.recording {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
			m.session.SetDraft(m.textarea.Value())
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return hintStyle.Render("  Initializing...")
	}
	contentWidth := m.width - 2

	header := headerStyle.Width(contentWidth).Render(lipgloss.JoinHorizontal(
		lipgloss.Center,
		titleStyle.Render(appTitle),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(m.modelName),
	))

	thinking := ""
	if m.waiting() {
		thinking = m.spinner.View() + thinkingStyle.Render(" Thinking...")
	}

	panel := inputPanelStyle
	if m.recording {
		panel = recordingPanelStyle
	}
	input := panel.Width(contentWidth).Render(m.textarea.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		thinking,
		input,
		m.renderStatusBar(),
		footerStyle.Width(contentWidth).Align(lipgloss.Center).Render(footerCredit),
	)
}

// waiting reports whether an answer is pending with nothing shown yet.
func (m Model) waiting() bool {
	if !m.busy {
		return false
	}
	visible := conversation.Visible(m.messages)
	return len(visible) > 0 && visible[len(visible)-1].Author == conversation.RoleUser
}

func (m Model) renderStatusBar() string {
	if m.status != "" {
		if m.statusErr {
			return errorStyle.Render("⚠ " + m.status)
		}
		return noticeStyle.Render("✓ " + m.status)
	}

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Ctrl+Y", "Copy answer"},
		{"Esc", "Quit"},
	}
	if m.session.CanCapture() {
		desc := "Voice"
		if m.recording {
			desc = "Stop"
		}
		shortcuts = append([]struct {
			key  string
			desc string
		}{{"Ctrl+R", desc}}, shortcuts...)
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	return statusBarStyle.Render(strings.Join(items, "  │  "))
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// setInputState disables typing while an answer streams or voice is captured.
func (m *Model) setInputState() {
	switch {
	case m.recording:
		m.textarea.Placeholder = captureInstruction
		m.textarea.Blur()
	case m.busy:
		m.textarea.Placeholder = inputPlaceholder
		m.textarea.Blur()
	default:
		m.textarea.Placeholder = inputPlaceholder
		m.textarea.Focus()
	}
}

// updateViewport refreshes the viewport content with styled messages and
// scrolls to the newest one.
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	bubbleWidth := m.viewport.Width - 4

	var content strings.Builder
	for i, msg := range conversation.Visible(m.messages) {
		if i > 0 {
			content.WriteString("\n")
		}
		if msg.Author == conversation.RoleUser {
			label := userLabelStyle.Render("You")
			bubble := userBubbleStyle.MaxWidth(bubbleWidth).Render(msg.Text)
			block := lipgloss.JoinVertical(lipgloss.Right, label, bubble)
			content.WriteString(lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Right, block))
		} else {
			label := assistantLabelStyle.Render("Guide")
			bubble := assistantBubbleStyle.Width(bubbleWidth).Render(renderMarkdown(msg.Text, bubbleWidth-4))
			content.WriteString(label + "\n" + bubble)
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
	m.viewport.GotoBottom()
}

func (m Model) submit(text string) tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		_, err := s.Submit(ctx, text)
		return turnDoneMsg{err: err}
	}
}

func (m Model) toggleCapture() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		return captureMsg{err: s.ToggleCapture(ctx)}
	}
}

var errNoAnswer = errors.New("no answer to copy yet")

func (m Model) copyLastAnswer() tea.Cmd {
	answer, ok := lastAnswer(m.messages)
	return func() tea.Msg {
		if !ok {
			return copiedMsg{err: errNoAnswer}
		}
		return copiedMsg{err: clipboard.WriteAll(answer)}
	}
}

// lastAnswer returns the newest non-empty AI text.
func lastAnswer(msgs []conversation.Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Author == conversation.RoleAI && msgs[i].Text != "" {
			return msgs[i].Text, true
		}
	}
	return "", false
}

// Run starts the chat TUI and blocks until the user quits.
func Run(ctx context.Context, s *chat.Session, bridge *Bridge, modelName string) error {
	defer bridge.Close()

	p := tea.NewProgram(
		New(ctx, s, bridge, modelName),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
