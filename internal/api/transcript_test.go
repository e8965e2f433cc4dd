package api

import (
	"testing"

	"github.com/diogo/chatai/internal/models"
)

func TestParseTranscript(t *testing.T) {
	jsonl := `{"info":{"id":"abc123","name":"demo","created_at":"2025-03-01 09:30:00"}}
{"chats":{"chat_id":"1f2e","model":"llama-3.3-70b-versatile","created_at":"2025-03-01 09:31:00","time_zone":"Asia/Riyadh","messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}}
not json at all
{"type":"meta","role":"user","content":"skip me"}
{"role":"system","content":"ignored"}
{"role":"user","content":"again"}
{"chats":{"chat_id":"9a","messages":[{"role":"assistant","content":"sure"},{"role":"tool","content":"x"}]}}
`

	tr := ParseTranscript(jsonl)

	if tr.Info.ID != "abc123" || tr.Info.Name != "demo" || tr.Info.CreatedAt != "2025-03-01 09:30:00" {
		t.Errorf("Info = %+v", tr.Info)
	}

	want := []struct {
		role    models.Role
		content string
	}{
		{models.RoleUser, "hi"},
		{models.RoleAssistant, "hello"},
		{models.RoleUser, "again"},
		{models.RoleAssistant, "sure"},
	}
	if len(tr.Messages) != len(want) {
		t.Fatalf("got %d messages, want %d: %+v", len(tr.Messages), len(want), tr.Messages)
	}
	for i, w := range want {
		m := tr.Messages[i]
		if m.Role != w.role || m.Content != w.content {
			t.Errorf("Messages[%d] = %s %q, want %s %q", i, m.Role, m.Content, w.role, w.content)
		}
		if m.Sequence != i {
			t.Errorf("Messages[%d].Sequence = %d", i, m.Sequence)
		}
	}

	if tr.Messages[0].CreatedAt.IsZero() {
		t.Error("turn timestamp not parsed")
	}
	if !tr.Messages[2].CreatedAt.IsZero() {
		t.Error("bare line should have no timestamp")
	}
}

func TestParseTranscript_Empty(t *testing.T) {
	tr := ParseTranscript("")
	if tr.Messages == nil || len(tr.Messages) != 0 {
		t.Errorf("Messages = %v, want empty slice", tr.Messages)
	}
	if tr.Info.Name != "" {
		t.Errorf("Info.Name = %s, want empty", tr.Info.Name)
	}
}
