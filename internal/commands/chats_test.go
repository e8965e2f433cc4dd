package commands

import (
	"errors"
	"strings"
	"testing"

	apierrors "github.com/diogo/chatai/internal/errors"
	"github.com/diogo/chatai/internal/models"
)

func TestChatsList(t *testing.T) {
	env := newTestEnv(t)
	env.client.Chats = []string{"alpha", "beta"}
	env.seedHistory(t, "alpha", "Deploying with systemd", "Use a unit file")

	out, _, err := env.run("", "chats", "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"NAME", "alpha", "beta", "Deploying with systemd", "just now"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestChatsList_Empty(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run("", "chats", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No chats found.") {
		t.Errorf("output = %q", out)
	}
}

func TestChatsCreate(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run("", "chats", "create", "ideas")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(out, "Created chat ideas") {
		t.Errorf("output = %q", out)
	}

	_, _, err = env.run("", "chats", "create", "ideas")
	if !errors.Is(err, apierrors.ErrChatExists) {
		t.Errorf("second create err = %v, want ErrChatExists", err)
	}

	_, _, err = env.run("", "chats", "create", "no spaces")
	if !errors.Is(err, apierrors.ErrInvalidChatName) {
		t.Errorf("err = %v, want ErrInvalidChatName", err)
	}
}

func TestChatsShow(t *testing.T) {
	env := newTestEnv(t)
	env.client.Transcripts = map[string]*models.Transcript{
		"demo": {
			Info: models.ChatInfo{Name: "demo", CreatedAt: "2025-03-01T09:30:00"},
			Messages: []models.Message{
				{Role: models.RoleUser, Content: "ping", Sequence: 0},
				{Role: models.RoleAssistant, Content: "pong", Sequence: 1},
			},
		},
	}

	out, _, err := env.run("", "chats", "show", "demo")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	for _, want := range []string{"Chat: demo", "Created: 2025-03-01T09:30:00", "Messages: 2", "[0] You:", "[1] Assistant:", "pong"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, _, err := env.run("", "chats", "show", "missing"); !errors.Is(err, apierrors.ErrChatNotFound) {
		t.Errorf("err = %v, want ErrChatNotFound", err)
	}
}

func TestModels(t *testing.T) {
	env := newTestEnv(t)
	env.client.ModelList = []string{"small-model", env.cfg.DefaultModel}

	out, _, err := env.run("", "models")
	if err != nil {
		t.Fatalf("models failed: %v", err)
	}
	lines := strings.Split(out, "\n")
	var marked []string
	for _, line := range lines {
		if strings.Contains(line, "✓") {
			marked = append(marked, strings.Fields(line)[0])
		}
	}
	if len(marked) != 1 || marked[0] != env.cfg.DefaultModel {
		t.Errorf("default marked = %v\n%s", marked, out)
	}
	if !strings.Contains(out, "small-model") {
		t.Errorf("output = %s", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"too long here", 3, "too..."},
		{"héllo wörld", 5, "héllo..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
