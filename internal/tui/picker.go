package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/diogo/chatai/internal/history"
	"github.com/diogo/chatai/internal/models"
)

// ChatLister is the part of the API client the picker needs
type ChatLister interface {
	ListChats(ctx context.Context) ([]string, error)
	CreateChat(ctx context.Context, name string) (*models.ChatInfo, error)
}

type (
	chatsLoadedMsg struct {
		chats []string
		local map[string]*history.Conversation
		err   error
	}
	chatCreatedMsg struct {
		name string
		err  error
	}
)

// NewChatName returns a generated chat name
func NewChatName() string {
	return "chat-" + uuid.NewString()[:8]
}

// PickerModel lists the server's chats. Typing filters the list; "+" (or
// ctrl+n) creates a new chat.
type PickerModel struct {
	lister ChatLister
	local  history.Backend

	chats  []string
	titles map[string]*history.Conversation
	filter string
	cursor int

	loading  bool
	creating bool
	err      error

	selected string
	created  bool

	width  int
	height int
	ready  bool
}

// NewPickerModel creates a picker. local may be nil.
func NewPickerModel(lister ChatLister, local history.Backend) PickerModel {
	return PickerModel{
		lister:  lister,
		local:   local,
		loading: true,
	}
}

func (m PickerModel) Init() tea.Cmd {
	return m.loadChats()
}

func (m PickerModel) loadChats() tea.Cmd {
	lister, local := m.lister, m.local
	return func() tea.Msg {
		chats, err := lister.ListChats(context.Background())
		if err != nil {
			return chatsLoadedMsg{err: err}
		}
		titles := make(map[string]*history.Conversation)
		if local != nil {
			if convs, err := local.List(); err == nil {
				for _, c := range convs {
					titles[c.ChatName] = c
				}
			}
		}
		return chatsLoadedMsg{chats: chats, local: titles}
	}
}

func (m PickerModel) createChat() tea.Cmd {
	lister := m.lister
	return func() tea.Msg {
		name := NewChatName()
		if _, err := lister.CreateChat(context.Background(), name); err != nil {
			return chatCreatedMsg{err: err}
		}
		return chatCreatedMsg{name: name}
	}
}

// Update handles messages and updates the model
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case chatsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.chats = msg.chats
		m.titles = msg.local

	case chatCreatedMsg:
		m.creating = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.selected = msg.name
		m.created = true
		return m, tea.Quit

	case tea.KeyMsg:
		if m.loading || m.creating {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "up":
			if n := len(m.filtered()); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
			}

		case "down":
			if n := len(m.filtered()); n > 0 {
				m.cursor = (m.cursor + 1) % n
			}

		case "enter":
			filtered := m.filtered()
			if m.cursor < len(filtered) {
				m.selected = filtered[m.cursor]
				return m, tea.Quit
			}

		case "+", "ctrl+n":
			m.creating = true
			m.err = nil
			return m, m.createChat()

		case "backspace":
			if len(m.filter) > 0 {
				r := []rune(m.filter)
				m.filter = string(r[:len(r)-1])
				m.cursor = 0
			}

		default:
			if msg.Type == tea.KeyRunes {
				m.filter += string(msg.Runes)
				m.cursor = 0
			}
		}
	}

	return m, nil
}

// filtered returns chat names matching the filter by name or local title
func (m PickerModel) filtered() []string {
	if m.filter == "" {
		return m.chats
	}
	f := strings.ToLower(m.filter)
	var out []string
	for _, name := range m.chats {
		title := ""
		if c, ok := m.titles[name]; ok {
			title = c.Title
		}
		if strings.Contains(strings.ToLower(name), f) || strings.Contains(strings.ToLower(title), f) {
			out = append(out, name)
		}
	}
	return out
}

// View renders the picker
func (m PickerModel) View() string {
	if m.loading {
		return loadingStyle.Render("  Loading chats...")
	}
	if m.creating {
		return loadingStyle.Render("  Creating chat...")
	}

	width := max(m.width-8, 40)
	var content strings.Builder

	content.WriteString(pickerTitleStyle.Render("Select a chat"))
	content.WriteString("\n\n")

	if m.filter != "" {
		content.WriteString(inputLabelStyle.Render("Filter: ") + m.filter + "_\n\n")
	}

	filtered := m.filtered()
	switch {
	case len(m.chats) == 0:
		content.WriteString(hintStyle.Render("  No chats yet. Press + to create one"))
		content.WriteString("\n")
	case len(filtered) == 0:
		content.WriteString(hintStyle.Render("  No chats match filter"))
		content.WriteString("\n")
	default:
		maxItems := max(5, m.height-12)
		start := 0
		if m.cursor >= maxItems {
			start = m.cursor - maxItems + 1
		}
		end := min(start+maxItems, len(filtered))

		if start > 0 {
			content.WriteString(hintStyle.Render("  ↑ more above") + "\n")
		}
		for i := start; i < end; i++ {
			content.WriteString(m.renderItem(i, filtered[i]) + "\n")
		}
		if end < len(filtered) {
			content.WriteString(hintStyle.Render("  ↓ more below") + "\n")
		}
	}

	if m.err != nil {
		content.WriteString("\n" + FormatError(m.err) + "\n")
	}

	content.WriteString("\n")
	shortcuts := []string{
		statusKeyStyle.Render("↑↓") + statusDescStyle.Render(" Navigate"),
		statusKeyStyle.Render("Enter") + statusDescStyle.Render(" Open"),
		statusKeyStyle.Render("+") + statusDescStyle.Render(" New"),
		statusKeyStyle.Render("Esc") + statusDescStyle.Render(" Quit"),
	}
	content.WriteString(strings.Join(shortcuts, "  │  "))

	return pickerBoxStyle.Width(width).Render(content.String())
}

func (m PickerModel) renderItem(index int, name string) string {
	cursor := "  "
	nameStyle := pickerItemStyle
	if index == m.cursor {
		cursor = pickerCursorStyle.Render("▸ ")
		nameStyle = pickerSelectedStyle
	}

	line := cursor + nameStyle.Render(name)
	if c, ok := m.titles[name]; ok {
		if c.Title != "" && c.Title != name {
			line += hintStyle.Render(" - " + c.Title)
		}
		line += lipgloss.NewStyle().Foreground(colorTextMute).Render(fmt.Sprintf(" (%s)", history.FormatRelativeTime(c.UpdatedAt)))
	}
	return line
}

// Result returns the chosen chat name, whether it was just created and
// whether anything was chosen
func (m PickerModel) Result() (name string, created bool, ok bool) {
	return m.selected, m.created, m.selected != ""
}

// PickerResult contains the result of running the picker
type PickerResult struct {
	ChatName  string
	Created   bool
	Confirmed bool
}

// RunPicker starts the chat picker and returns the selection
func RunPicker(lister ChatLister, local history.Backend) (PickerResult, error) {
	p := tea.NewProgram(NewPickerModel(lister, local), tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	if pm, ok := finalModel.(PickerModel); ok {
		name, created, confirmed := pm.Result()
		return PickerResult{ChatName: name, Created: created, Confirmed: confirmed}, nil
	}
	return PickerResult{}, nil
}
