package commands

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/diogo/chatai/internal/api"
	"github.com/diogo/chatai/internal/config"
	"github.com/diogo/chatai/internal/history"
	"github.com/diogo/chatai/internal/models"
	"github.com/diogo/chatai/internal/render"
	"github.com/diogo/chatai/internal/tui"
)

type fakeTUI struct {
	picker       tui.PickerResult
	pickerErr    error
	pickerCalled bool

	chats    []tui.ChatOptions
	messages [][]models.Message
}

func (f *fakeTUI) RunPicker(tui.ChatLister, history.Backend) (tui.PickerResult, error) {
	f.pickerCalled = true
	return f.picker, f.pickerErr
}

func (f *fakeTUI) RunChat(opts tui.ChatOptions) error {
	f.chats = append(f.chats, opts)
	msgs, _ := opts.Controller.Messages(opts.ChatID)
	f.messages = append(f.messages, msgs)
	return nil
}

type testEnv struct {
	deps   *Dependencies
	cfg    config.Config
	client *api.MockClient
	store  *history.Store
	tui    *fakeTUI
	copied []string
}

// newTestEnv points the config dir at a temp dir and wires fakes for the
// server and the TUI.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvModel, "")
	t.Setenv(render.EnvStyle, render.StyleNoTTY)

	store, err := history.NewStore(home)
	if err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		cfg:    config.DefaultConfig(),
		client: &api.MockClient{},
		store:  store,
		tui:    &fakeTUI{},
	}
	env.cfg.RenderFPS = 0
	env.deps = &Dependencies{
		LoadConfig: func() (config.Config, error) { return env.cfg, nil },
		NewClient: func(config.Config, *slog.Logger) (api.ChatAPI, error) {
			return env.client, nil
		},
		OpenStore: func(config.Config) (history.Backend, error) { return env.store, nil },
		TUI:       env.tui,
		Clipboard: func(s string) error {
			env.copied = append(env.copied, s)
			return nil
		},
		IsTerminal: func() bool { return false },
		StdinPiped: func() bool { return false },
		TermWidth:  func() int { return 80 },
	}
	return env
}

// run executes the command tree with args. A non-empty stdin is presented
// as piped input.
func (e *testEnv) run(stdin string, args ...string) (string, string, error) {
	e.deps.StdinPiped = func() bool { return stdin != "" }

	cmd := NewRootCmd(e.deps)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func (e *testEnv) seedHistory(t *testing.T, name, question, answer string) {
	t.Helper()
	msgs := []models.Message{
		{Role: models.RoleUser, Content: question},
		{Role: models.RoleAssistant, Content: answer},
	}
	if err := e.store.SaveMessages(name, "test-model", msgs); err != nil {
		t.Fatal(err)
	}
}
