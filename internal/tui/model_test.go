package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/diogo/chatai/internal/api"
	apierrors "github.com/diogo/chatai/internal/errors"
	"github.com/diogo/chatai/internal/models"
	"github.com/diogo/chatai/internal/notify"
	"github.com/diogo/chatai/internal/render"
	"github.com/diogo/chatai/internal/session"
)

func step(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// findMsg runs cmd, expanding batches, and returns the first message of type T
func findMsg[T any](t *testing.T, cmd tea.Cmd) T {
	t.Helper()
	found := make(chan T, 1)

	var run func(tea.Cmd)
	run = func(c tea.Cmd) {
		if c == nil {
			return
		}
		go func() {
			msg := c()
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, sub := range batch {
					run(sub)
				}
				return
			}
			if v, ok := msg.(T); ok {
				select {
				case found <- v:
				default:
				}
			}
		}()
	}
	run(cmd)

	select {
	case v := <-found:
		return v
	case <-time.After(2 * time.Second):
		var zero T
		t.Fatalf("command produced no %T", zero)
		return zero
	}
}

func newTestChat(t *testing.T, client *api.MockClient) (Model, *session.Controller, *session.ChannelPublisher) {
	t.Helper()
	pub := session.NewChannelPublisher(64)
	ctrl := session.New(client, render.Plain{}, session.WithPublisher(pub))
	if err := ctrl.NewSession("demo"); err != nil {
		t.Fatal(err)
	}
	m := NewChatModel(ChatOptions{
		ChatID:     "demo",
		Controller: ctrl,
		Updates:    pub,
		Render:     render.DefaultOptions().WithStyle(render.StyleNoTTY),
	})
	m, _ = step(m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, ctrl, pub
}

func drain(m Model, pub *session.ChannelPublisher) (Model, int) {
	live := 0
	for {
		select {
		case u := <-pub.Updates():
			m, _ = step(m, updateMsg(u))
			if !u.Final {
				live++
			}
		default:
			return m, live
		}
	}
}

func typeAndSubmit(m Model, text string) (Model, tea.Cmd) {
	m.textarea.SetValue(text)
	return step(m, tea.KeyMsg{Type: tea.KeyEnter})
}

// sendExchange sends text and feeds the resulting updates back into the model
func sendExchange(t *testing.T, m Model, pub *session.ChannelPublisher, text string) Model {
	t.Helper()
	m, cmd := typeAndSubmit(m, text)
	done := findMsg[doneMsg](t, cmd)
	if done.err != nil {
		t.Fatalf("send failed: %v", done.err)
	}
	m, _ = drain(m, pub)
	m, _ = step(m, done)
	return m
}

func TestChatModel_Send(t *testing.T) {
	client := &api.MockClient{Chunks: []string{"Hel", "lo"}}
	m, _, pub := newTestChat(t, client)

	m, cmd := typeAndSubmit(m, "hi there")
	if !m.busy || m.pending != "hi there" {
		t.Fatalf("busy = %v, pending = %q", m.busy, m.pending)
	}
	if m.state != models.StateSending {
		t.Errorf("state = %v, want %v", m.state, models.StateSending)
	}
	if m.textarea.Value() != "" {
		t.Errorf("composer not cleared: %q", m.textarea.Value())
	}

	done := findMsg[doneMsg](t, cmd)
	if done.err != nil {
		t.Fatalf("send failed: %v", done.err)
	}
	m, live := drain(m, pub)
	if live == 0 {
		t.Error("expected at least one streaming update")
	}
	if m.live != nil {
		t.Error("final update should clear the live view")
	}
	m, _ = step(m, done)

	if m.busy {
		t.Error("still busy after done")
	}
	if len(m.messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(m.messages))
	}
	if got := m.messages[1].Content; got != "Hello" {
		t.Errorf("answer = %q, want %q", got, "Hello")
	}
	if m.pending != "" {
		t.Errorf("pending = %q, want empty", m.pending)
	}
	if m.state != models.StateIdle {
		t.Errorf("state = %v, want idle", m.state)
	}

	req, ok := client.LastRequest()
	if !ok || req.Text != "hi there" || req.ChatID != "demo" {
		t.Errorf("request = %+v", req)
	}

	view := m.View()
	for _, want := range []string{"Hello", "hi there", "demo", "#1"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestChatModel_SendError(t *testing.T) {
	client := &api.MockClient{OpenErr: apierrors.NewAPIError(503, "/send", "unavailable")}
	m, _, pub := newTestChat(t, client)

	m, cmd := typeAndSubmit(m, "hello")
	done := findMsg[doneMsg](t, cmd)
	if done.err == nil {
		t.Fatal("expected send error")
	}
	m, _ = drain(m, pub)
	m, _ = step(m, done)

	if m.busy || m.err == nil {
		t.Errorf("busy = %v, err = %v", m.busy, m.err)
	}
	if !strings.Contains(m.View(), "HTTP Status: 503") {
		t.Error("view should show the error status")
	}
}

func TestChatModel_BlankInputIgnored(t *testing.T) {
	m, _, _ := newTestChat(t, &api.MockClient{})

	m, cmd := typeAndSubmit(m, "   ")
	if cmd != nil || m.busy {
		t.Errorf("blank input should do nothing, busy = %v", m.busy)
	}
}

func TestChatModel_SubmitWhileBusy(t *testing.T) {
	m, _, _ := newTestChat(t, &api.MockClient{})
	m.busy = true

	m, cmd := typeAndSubmit(m, "again")
	if cmd == nil {
		t.Fatal("expected a notice")
	}
	msg, ok := cmd().(noticeMsg)
	if !ok || msg.Kind != notify.Warning {
		t.Errorf("notice = %+v", msg)
	}
	if m.textarea.Value() != "again" {
		t.Error("input should stay in the composer")
	}
}

func TestChatModel_Regen(t *testing.T) {
	client := &api.MockClient{Chunks: []string{"first"}}
	m, _, pub := newTestChat(t, client)
	m = sendExchange(t, m, pub, "question")

	client.Chunks = []string{"second"}
	m, cmd := typeAndSubmit(m, "/regen")
	if !m.busy {
		t.Fatal("regen should mark the view busy")
	}
	done := findMsg[doneMsg](t, cmd)
	if done.err != nil {
		t.Fatalf("regenerate failed: %v", done.err)
	}
	m, _ = drain(m, pub)
	m, _ = step(m, done)

	if len(m.messages) != 2 || m.messages[1].Content != "second" {
		t.Errorf("messages = %+v", m.messages)
	}
}

func TestChatModel_RegenWithoutAnswer(t *testing.T) {
	m, _, _ := newTestChat(t, &api.MockClient{})

	m, cmd := typeAndSubmit(m, "/regen")
	if m.busy {
		t.Error("regen with no answer should not start a stream")
	}
	if msg := cmd().(noticeMsg); msg.Kind != notify.Warning {
		t.Errorf("kind = %v, want warning", msg.Kind)
	}
}

func TestChatModel_Delete(t *testing.T) {
	client := &api.MockClient{Chunks: []string{"answer"}}
	m, ctrl, pub := newTestChat(t, client)
	m = sendExchange(t, m, pub, "question")

	tests := []struct {
		input string
		kind  notify.Kind
	}{
		{"/delete", notify.Warning},
		{"/delete one", notify.Warning},
		{"/delete 1", notify.Success},
	}
	for _, tt := range tests {
		var cmd tea.Cmd
		m, cmd = typeAndSubmit(m, tt.input)
		if cmd == nil {
			t.Fatalf("%s: expected a notice", tt.input)
		}
		if msg := cmd().(noticeMsg); msg.Kind != tt.kind {
			t.Errorf("%s: kind = %v, want %v", tt.input, msg.Kind, tt.kind)
		}
	}

	msgs, _ := ctrl.Messages("demo")
	if len(msgs) != 1 || len(m.messages) != 1 {
		t.Errorf("controller has %d messages, view has %d, want 1", len(msgs), len(m.messages))
	}

	m, cmd := typeAndSubmit(m, "/delete 7")
	if cmd != nil {
		t.Error("out of range delete should not notify")
	}
	if !errors.Is(m.err, apierrors.ErrInvalidSequence) {
		t.Errorf("err = %v, want ErrInvalidSequence", m.err)
	}
}

func TestChatModel_Copy(t *testing.T) {
	var copied string
	orig := clipboardWrite
	clipboardWrite = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { clipboardWrite = orig })

	m, _, pub := newTestChat(t, &api.MockClient{Chunks: []string{"copy me"}})

	_, cmd := typeAndSubmit(m, "/copy")
	if msg := cmd().(noticeMsg); msg.Kind != notify.Warning {
		t.Errorf("copy with no answer: kind = %v", msg.Kind)
	}

	m = sendExchange(t, m, pub, "q")
	_, cmd = typeAndSubmit(m, "/copy")
	if msg := cmd().(noticeMsg); msg.Kind != notify.Success {
		t.Errorf("kind = %v, want success", msg.Kind)
	}
	if copied != "copy me" {
		t.Errorf("copied = %q, want %q", copied, "copy me")
	}

	clipboardWrite = func(string) error { return fmt.Errorf("no clipboard") }
	_, cmd = typeAndSubmit(m, "/copy")
	if msg := cmd().(noticeMsg); msg.Kind != notify.Error || !strings.Contains(msg.Message, "no clipboard") {
		t.Errorf("notice = %+v", msg)
	}
}

func TestChatModel_Clear(t *testing.T) {
	m, ctrl, pub := newTestChat(t, &api.MockClient{Chunks: []string{"a"}})
	m = sendExchange(t, m, pub, "q")

	m, _ = typeAndSubmit(m, "/clear")
	if len(m.messages) != 0 {
		t.Errorf("view messages = %d, want 0", len(m.messages))
	}
	if msgs, _ := ctrl.Messages("demo"); len(msgs) != 0 {
		t.Errorf("controller messages = %d, want 0", len(msgs))
	}
	if !strings.Contains(m.View(), "Start the conversation") {
		t.Error("cleared chat should show the welcome screen")
	}
}

func TestChatModel_ModelCommand(t *testing.T) {
	m, ctrl, _ := newTestChat(t, &api.MockClient{})

	m, cmd := typeAndSubmit(m, "/model gpt-x")
	if msg := cmd().(noticeMsg); msg.Kind != notify.Success {
		t.Errorf("kind = %v, want success", msg.Kind)
	}
	if got := ctrl.Model(); got != "gpt-x" {
		t.Errorf("Model() = %q, want gpt-x", got)
	}

	_, cmd = typeAndSubmit(m, "/model")
	msg := cmd().(noticeMsg)
	if msg.Kind != notify.Info || !strings.Contains(msg.Message, "gpt-x") {
		t.Errorf("notice = %+v", msg)
	}
}

func TestChatModel_UnknownCommand(t *testing.T) {
	m, _, _ := newTestChat(t, &api.MockClient{})

	_, cmd := typeAndSubmit(m, "/frobnicate now")
	msg := cmd().(noticeMsg)
	if msg.Kind != notify.Warning || !strings.Contains(msg.Message, "/frobnicate") {
		t.Errorf("notice = %+v", msg)
	}
}

func TestChatModel_Quit(t *testing.T) {
	tests := []struct {
		name string
		run  func(m Model) tea.Cmd
	}{
		{"esc", func(m Model) tea.Cmd { _, cmd := step(m, tea.KeyMsg{Type: tea.KeyEsc}); return cmd }},
		{"ctrl+c", func(m Model) tea.Cmd { _, cmd := step(m, tea.KeyMsg{Type: tea.KeyCtrlC}); return cmd }},
		{"exit", func(m Model) tea.Cmd { _, cmd := typeAndSubmit(m, "exit"); return cmd }},
		{"/quit", func(m Model) tea.Cmd { _, cmd := typeAndSubmit(m, "/quit"); return cmd }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestChat(t, &api.MockClient{})
			cmd := tt.run(m)
			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("command did not quit")
			}
		})
	}
}

func TestChatModel_EscCancelsWhenBusy(t *testing.T) {
	m, _, _ := newTestChat(t, &api.MockClient{})
	m.busy = true

	m, cmd := step(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != models.StateCancelling {
		t.Errorf("state = %v, want cancelling", m.state)
	}
	done, ok := cmd().(cancelDoneMsg)
	if !ok {
		t.Fatal("expected cancelDoneMsg")
	}
	if done.err != nil {
		t.Errorf("cancel error = %v", done.err)
	}
}

func TestChatModel_IgnoresOtherChats(t *testing.T) {
	m, _, _ := newTestChat(t, &api.MockClient{})

	m, _ = step(m, updateMsg(session.Update{ChatID: "other", Sequence: 1, Rendered: "x", State: models.StateStreaming}))
	if m.live != nil {
		t.Error("update for another chat should be ignored")
	}
	if m.state != models.StateIdle {
		t.Errorf("state = %v, want idle", m.state)
	}
}

func TestChatModel_Toast(t *testing.T) {
	m, _, _ := newTestChat(t, &api.MockClient{})

	m, _ = step(m, noticeMsg(notify.Entry{Kind: notify.Warning, Message: "saved locally only"}))
	if m.toast == nil || !strings.Contains(m.View(), "saved locally only") {
		t.Fatal("toast not shown")
	}
	first := m.toastID

	m, _ = step(m, noticeMsg(notify.Entry{Kind: notify.Info, Message: "second"}))
	m, _ = step(m, toastExpiredMsg{id: first})
	if m.toast == nil || m.toast.Message != "second" {
		t.Error("stale expiry should not clear a newer toast")
	}

	m, _ = step(m, toastExpiredMsg{id: m.toastID})
	if m.toast != nil {
		t.Error("toast should expire")
	}
}

func TestNotices(t *testing.T) {
	n := NewNotices(1)
	n.Report(notify.Info, "one")
	n.Report(notify.Error, "two")

	if len(n.ch) != 1 {
		t.Fatalf("buffered = %d, want 1", len(n.ch))
	}

	m := Model{notices: n}
	msg := m.waitForNotice()().(noticeMsg)
	if msg.Message != "one" || msg.Kind != notify.Info {
		t.Errorf("notice = %+v", msg)
	}
}

func TestWaitForUpdate_Closed(t *testing.T) {
	pub := session.NewChannelPublisher(0)
	m := Model{updates: pub}
	pub.Close()

	if msg := m.waitForUpdate()(); msg != nil {
		t.Errorf("closed publisher delivered %v", msg)
	}
	if (Model{}).waitForUpdate() != nil {
		t.Error("no publisher should give a nil command")
	}
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"nil", nil, nil},
		{"busy", apierrors.NewBusyError("demo"), []string{"Hint: wait"}},
		{"not found", fmt.Errorf("open: %w", apierrors.ErrChatNotFound), []string{"chats list"}},
		{"invalid name", apierrors.ErrInvalidChatName, []string{"letters, digits"}},
		{"http status", apierrors.NewAPIError(502, "/send", "bad gateway"), []string{"HTTP Status: 502"}},
		{"timeout", apierrors.NewTimeoutError("slow"), []string{"timed out"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatError(tt.err)
			if tt.err == nil {
				if got != "" {
					t.Errorf("FormatError(nil) = %q", got)
				}
				return
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("FormatError() = %q, missing %q", got, want)
				}
			}
		})
	}
}
