package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/chatai/internal/models"
	"github.com/diogo/chatai/internal/notify"
	"github.com/diogo/chatai/internal/render"
	"github.com/diogo/chatai/internal/session"
)

// toastDuration is how long a notification stays in the status area
const toastDuration = 4 * time.Second

// clipboardWrite is replaced in tests
var clipboardWrite = clipboard.WriteAll

// Controller is the part of session.Controller the chat view drives
type Controller interface {
	Send(ctx context.Context, chatID, text string, attachments []models.Attachment) (*models.Message, error)
	Regenerate(ctx context.Context, chatID string, fromSeq int) (*models.Message, error)
	Delete(chatID string, seq int) error
	Cancel(ctx context.Context, chatID string) error
	Messages(chatID string) ([]models.Message, error)
	State(chatID string) (models.StreamState, error)
	NewSession(chatID string) error
	Model() string
	SetModel(model string)
}

var _ Controller = (*session.Controller)(nil)

// Message types for the TUI
type (
	updateMsg session.Update
	noticeMsg notify.Entry
	// doneMsg is sent when a send or regenerate returns
	doneMsg struct {
		err error
	}
	cancelDoneMsg struct {
		err error
	}
	toastExpiredMsg struct {
		id int
	}
)

// Notices is a notify.Sink feeding the chat view. Notifications are dropped
// when the buffer is full.
type Notices struct {
	ch chan notify.Entry
}

// NewNotices returns a sink buffering up to size notifications
func NewNotices(size int) *Notices {
	return &Notices{ch: make(chan notify.Entry, size)}
}

func (n *Notices) Report(kind notify.Kind, message string) {
	select {
	case n.ch <- notify.Entry{Kind: kind, Message: message}:
	default:
	}
}

// ChatOptions wires a chat view to a controller session
type ChatOptions struct {
	ChatID     string
	Controller Controller
	Updates    *session.ChannelPublisher
	Notices    *Notices
	Render     render.Options
}

// Model represents the chat view state
type Model struct {
	chatID  string
	ctrl    Controller
	updates *session.ChannelPublisher
	notices *Notices
	opts    render.Options

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	messages []models.Message
	live     *session.Update
	pending  string
	sentAt   int
	state    models.StreamState
	busy     bool
	toast    *notify.Entry
	toastID  int
	err      error
	ready    bool
	cache    map[int]cachedRender

	// Dimensions
	width  int
	height int
}

type cachedRender struct {
	content string
	width   int
	out     string
}

// NewChatModel creates the chat view for opts.ChatID
func NewChatModel(opts ChatOptions) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message, or /help for commands..."
	ta.CharLimit = 8000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextMute)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m := Model{
		chatID:   opts.ChatID,
		ctrl:     opts.Controller,
		updates:  opts.Updates,
		notices:  opts.Notices,
		opts:     opts.Render,
		textarea: ta,
		spinner:  s,
		cache:    make(map[int]cachedRender),
	}
	m.refresh()
	return m
}

// Init starts the input cursor and the update listeners
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.waitForUpdate(),
		m.waitForNotice(),
	)
}

// waitForUpdate delivers the next published update
func (m Model) waitForUpdate() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		select {
		case u := <-updates.Updates():
			return updateMsg(u)
		case <-updates.Done():
			return nil
		}
	}
}

func (m Model) waitForNotice() tea.Cmd {
	if m.notices == nil {
		return nil
	}
	ch := m.notices.ch
	return func() tea.Msg {
		return noticeMsg(<-ch)
	}
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
		inputHeight := 5
		statusHeight := 2

		vpHeight := max(m.height-headerHeight-inputHeight-statusHeight-2, 5)
		contentWidth := max(m.width-4, 20)

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.viewport.KeyMap = scrollKeys()
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.updateViewport()
		m.viewport.GotoBottom()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.busy {
				return m, tea.Sequence(m.cancel(), tea.Quit)
			}
			return m, tea.Quit

		case "esc":
			if m.busy {
				m.state = models.StateCancelling
				return m, m.cancel()
			}
			return m, tea.Quit

		case "enter":
			return m.submit()
		}

	case updateMsg:
		u := session.Update(msg)
		if u.ChatID == m.chatID {
			if u.Final {
				m.live = nil
			} else {
				m.live = &u
			}
			m.state = u.State
			m.refresh()
			m.updateViewport()
			m.viewport.GotoBottom()
		}
		cmds = append(cmds, m.waitForUpdate())

	case doneMsg:
		m.busy = false
		m.live = nil
		m.err = msg.err
		m.refresh()
		m.updateViewport()
		m.viewport.GotoBottom()

	case cancelDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		}

	case noticeMsg:
		entry := notify.Entry(msg)
		m.toastID++
		m.toast = &entry
		id := m.toastID
		cmds = append(cmds, m.waitForNotice(), tea.Tick(toastDuration, func(time.Time) tea.Msg {
			return toastExpiredMsg{id: id}
		}))

	case toastExpiredMsg:
		if msg.id == m.toastID {
			m.toast = nil
		}

	case spinner.TickMsg:
		if m.busy {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	// Only pass KeyMsg to textarea to prevent escape sequence leaks
	if !m.busy {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// submit handles Enter: a slash command or a new message
func (m Model) submit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}
	if m.busy {
		return m, m.notice(notify.Warning, "A response is still streaming. Press Esc to cancel it")
	}

	m.textarea.Reset()
	if strings.HasPrefix(input, "/") {
		return m.command(input)
	}
	if input == "exit" || input == "quit" {
		return m, tea.Quit
	}

	m.err = nil
	m.busy = true
	m.pending = input
	m.sentAt = len(m.messages)
	m.state = models.StateSending
	m.updateViewport()
	m.viewport.GotoBottom()

	ctrl, id := m.ctrl, m.chatID
	return m, tea.Batch(func() tea.Msg {
		_, err := ctrl.Send(context.Background(), id, input, nil)
		return doneMsg{err: err}
	}, m.spinner.Tick)
}

// command runs a slash command
func (m Model) command(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	name, args := fields[0], fields[1:]

	switch name {
	case "/exit", "/quit":
		return m, tea.Quit

	case "/help":
		return m, m.notice(notify.Info, "/regen  /delete N  /copy  /clear  /model NAME  /exit")

	case "/regen":
		seq := lastAssistant(m.messages)
		if seq < 0 {
			return m, m.notice(notify.Warning, "Nothing to regenerate")
		}
		m.err = nil
		m.busy = true
		m.state = models.StateSending
		ctrl, id := m.ctrl, m.chatID
		return m, tea.Batch(func() tea.Msg {
			_, err := ctrl.Regenerate(context.Background(), id, seq)
			return doneMsg{err: err}
		}, m.spinner.Tick)

	case "/delete":
		if len(args) != 1 {
			return m, m.notice(notify.Warning, "Usage: /delete N")
		}
		seq, err := strconv.Atoi(args[0])
		if err != nil {
			return m, m.notice(notify.Warning, "Message number must be an integer")
		}
		if err := m.ctrl.Delete(m.chatID, seq); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.refresh()
		m.updateViewport()
		return m, m.notice(notify.Success, fmt.Sprintf("Deleted message #%d", seq))

	case "/copy":
		seq := lastAssistant(m.messages)
		if seq < 0 {
			return m, m.notice(notify.Warning, "No answer to copy")
		}
		if err := clipboardWrite(m.messages[seq].Content); err != nil {
			return m, m.notice(notify.Error, "Copy failed: "+err.Error())
		}
		return m, m.notice(notify.Success, "Copied last answer to clipboard")

	case "/clear":
		if err := m.ctrl.NewSession(m.chatID); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.cache = make(map[int]cachedRender)
		m.refresh()
		m.updateViewport()
		return m, nil

	case "/model":
		if len(args) == 0 {
			return m, m.notice(notify.Info, "Model: "+m.ctrl.Model())
		}
		m.ctrl.SetModel(args[0])
		return m, m.notice(notify.Success, "Model set to "+args[0])

	default:
		return m, m.notice(notify.Warning, "Unknown command "+name+". Try /help")
	}
}

// notice shows a toast without going through the controller
func (m Model) notice(kind notify.Kind, message string) tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(notify.Entry{Kind: kind, Message: message})
	}
}

func (m Model) cancel() tea.Cmd {
	ctrl, id := m.ctrl, m.chatID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return cancelDoneMsg{err: ctrl.Cancel(ctx, id)}
	}
}

// refresh reloads the transcript from the controller
func (m *Model) refresh() {
	if m.ctrl == nil {
		return
	}
	msgs, err := m.ctrl.Messages(m.chatID)
	if err != nil {
		m.err = err
		return
	}
	m.messages = msgs
	if len(msgs) > m.sentAt || !m.busy {
		m.pending = ""
	}
	if state, err := m.ctrl.State(m.chatID); err == nil && state != models.StateIdle {
		m.state = state
	} else if !m.busy {
		m.state = models.StateIdle
	}
}

// scrollKeys keeps letter keys for the composer
func scrollKeys() viewport.KeyMap {
	return viewport.KeyMap{
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		Up:       key.NewBinding(key.WithKeys("up")),
		Down:     key.NewBinding(key.WithKeys("down")),
	}
}

func lastAssistant(msgs []models.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleAssistant {
			return i
		}
	}
	return -1
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.viewport.Width

	headerContent := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("✦ chatai"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(m.chatID),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(m.modelName()),
	)
	sections = append(sections, headerStyle.Width(contentWidth).Render(headerContent))

	messagesContent := m.viewport.View()
	if len(m.messages) == 0 && m.pending == "" {
		messagesContent = m.renderWelcome()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	var inputContent string
	if m.busy {
		inputContent = fmt.Sprintf("%s %s", m.spinner.View(), loadingStyle.Render(m.state.String()+"..."))
	} else {
		inputContent = lipgloss.JoinVertical(lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.toast != nil {
		sections = append(sections, notify.Format(m.toast.Kind, m.toast.Message))
	}
	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) modelName() string {
	if m.ctrl == nil {
		return ""
	}
	return m.ctrl.Model()
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		welcomeTitleStyle.Width(width).Render("✦ "+m.chatID),
		"",
		welcomeStyle.Width(width).Render("Start the conversation by typing a message below"),
	)
	topPadding := max((m.viewport.Height-lipgloss.Height(content))/2, 0)
	return strings.Repeat("\n", topPadding) + content
}

// renderStatusBar renders the stream state and the shortcuts
func (m Model) renderStatusBar(width int) string {
	stateStyle, ok := stateStyles[m.state.String()]
	if !ok {
		stateStyle = statusDescStyle
	}

	escDesc := "Quit"
	if m.busy {
		escDesc = "Cancel"
	}
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Esc", escDesc},
		{"↑↓", "Scroll"},
		{"/help", "Commands"},
	}

	items := []string{stateStyle.Render("● " + m.state.String())}
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}

	return statusBarStyle.Width(width).Render(strings.Join(items, "  │  "))
}

// updateViewport refreshes the viewport content with styled messages
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := max(m.viewport.Width-6, 10)

	for i, msg := range m.messages {
		if i > 0 {
			content.WriteString("\n")
		}
		seq := seqStyle.Render(fmt.Sprintf(" #%d", msg.Sequence))

		if msg.Role == models.RoleUser {
			content.WriteString(userLabelStyle.Render("You") + seq + "\n")
			content.WriteString(userBubbleStyle.Width(bubbleWidth).Render(msg.Content))
		} else {
			body := m.renderMessage(msg, bubbleWidth-4)
			if m.live != nil && m.live.Sequence == msg.Sequence {
				body = strings.TrimRight(m.live.Rendered, "\n")
			}
			if body == "" {
				body = hintStyle.Render("...")
			}
			content.WriteString(assistantLabelStyle.Render("✦ Assistant") + seq + "\n")
			content.WriteString(assistantBubbleStyle.Width(bubbleWidth).Render(body))
		}
		content.WriteString("\n")
	}

	if m.pending != "" {
		if len(m.messages) > 0 {
			content.WriteString("\n")
		}
		content.WriteString(userLabelStyle.Render("You") + "\n")
		content.WriteString(userBubbleStyle.Width(bubbleWidth).Render(m.pending))
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

// renderMessage renders a finalized assistant message, memoized per sequence
func (m *Model) renderMessage(msg models.Message, width int) string {
	if c, ok := m.cache[msg.Sequence]; ok && c.content == msg.Content && c.width == width {
		return c.out
	}
	out, err := render.Markdown(msg.Content, m.opts.WithWidth(width))
	if err != nil {
		out = msg.Content
	}
	out = strings.TrimRight(out, "\n")
	m.cache[msg.Sequence] = cachedRender{content: msg.Content, width: width, out: out}
	return out
}

// RunChat starts the chat TUI and releases the session when it exits
func RunChat(opts ChatOptions) error {
	p := tea.NewProgram(NewChatModel(opts), tea.WithAltScreen())
	_, err := p.Run()

	if opts.Updates != nil {
		opts.Updates.Close()
	}
	if opts.Controller != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = opts.Controller.Cancel(ctx, opts.ChatID)
	}
	return err
}
