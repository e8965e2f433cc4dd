package api

import (
	"context"
	"errors"
	"testing"

	apierrors "github.com/diogo/chatai/internal/errors"
	"github.com/diogo/chatai/internal/models"
)

func TestCreateChat(t *testing.T) {
	doer := jsonDoer(200, `{"id":"a1b2c3","name":"demo","created_at":"2025-01-02 10:00:00"}`)
	c := newTestClient(t, doer)

	info, err := c.CreateChat(context.Background(), "demo")
	if err != nil {
		t.Fatalf("CreateChat() returned error: %v", err)
	}
	if info.ID != "a1b2c3" || info.Name != "demo" {
		t.Errorf("CreateChat() = %+v", info)
	}

	req := doer.requests[0]
	if req.Method != "POST" {
		t.Errorf("Method = %s, want POST", req.Method)
	}
	if req.URL.String() != "http://chat.test"+models.EndpointCreateChat {
		t.Errorf("URL = %s", req.URL.String())
	}
	if doer.payloads[0] != `{"name":"demo"}` {
		t.Errorf("payload = %s", doer.payloads[0])
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %s", req.Header.Get("Content-Type"))
	}
}

func TestCreateChat_AlreadyExists(t *testing.T) {
	c := newTestClient(t, jsonDoer(400, `{"detail":"Chat already exists"}`))

	_, err := c.CreateChat(context.Background(), "demo")
	if !errors.Is(err, apierrors.ErrChatExists) {
		t.Errorf("error = %v, want ErrChatExists", err)
	}
	if apierrors.GetHTTPStatus(err) != 400 {
		t.Errorf("GetHTTPStatus() = %d, want 400", apierrors.GetHTTPStatus(err))
	}
}

func TestCreateChat_InvalidName(t *testing.T) {
	doer := jsonDoer(200, `{}`)
	c := newTestClient(t, doer)

	_, err := c.CreateChat(context.Background(), "bad name!")
	if !errors.Is(err, apierrors.ErrInvalidChatName) {
		t.Errorf("error = %v, want ErrInvalidChatName", err)
	}
	if len(doer.requests) != 0 {
		t.Error("request sent for invalid name")
	}
}

func TestOpenChat(t *testing.T) {
	body := `{"name":{"name":"demo"},"jsonl":"{\"info\":{\"id\":\"x1\",\"name\":\"demo\",\"created_at\":\"2025-01-02 10:00:00\"}}\n{\"chats\":{\"chat_id\":\"ab\",\"model\":\"m\",\"created_at\":\"2025-01-02 10:01:00\",\"messages\":[{\"role\":\"user\",\"content\":\"hi\"},{\"role\":\"assistant\",\"content\":\"hello\"}]}}\n"}`
	c := newTestClient(t, jsonDoer(200, body))

	tr, err := c.OpenChat(context.Background(), "demo")
	if err != nil {
		t.Fatalf("OpenChat() returned error: %v", err)
	}
	if tr.Info.ID != "x1" {
		t.Errorf("Info.ID = %s, want x1", tr.Info.ID)
	}
	if len(tr.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(tr.Messages))
	}
	if tr.Messages[1].Content != "hello" || tr.Messages[1].Sequence != 1 {
		t.Errorf("Messages[1] = %+v", tr.Messages[1])
	}
}

func TestOpenChat_NotFound(t *testing.T) {
	c := newTestClient(t, jsonDoer(404, `{"detail":"Chat not found"}`))

	_, err := c.OpenChat(context.Background(), "missing")
	if !errors.Is(err, apierrors.ErrChatNotFound) {
		t.Errorf("error = %v, want ErrChatNotFound", err)
	}
}

func TestListChats(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"names", `{"chats":["a","b"]}`, []string{"a", "b"}},
		{"null", `{"chats":null}`, []string{}},
		{"empty", `{"chats":[]}`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := jsonDoer(200, tt.body)
			c := newTestClient(t, doer)

			got, err := c.ListChats(context.Background())
			if err != nil {
				t.Fatalf("ListChats() returned error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListChats() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ListChats()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
			if doer.requests[0].Method != "GET" || doer.requests[0].URL.Path != models.EndpointHistory {
				t.Errorf("request = %s %s", doer.requests[0].Method, doer.requests[0].URL.Path)
			}
		})
	}
}

func TestListChats_NotAList(t *testing.T) {
	c := newTestClient(t, jsonDoer(200, `{"chats":"a"}`))

	if _, err := c.ListChats(context.Background()); !errors.Is(err, apierrors.ErrInvalidResponse) {
		t.Errorf("error = %v, want ErrInvalidResponse", err)
	}
}

func TestListModels(t *testing.T) {
	c := newTestClient(t, jsonDoer(200, `{"models":["llama-3.3-70b-versatile","llama3-8b-8192"]}`))

	got, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() returned error: %v", err)
	}
	if len(got) != 2 || got[0] != models.ModelLlama33Versatile {
		t.Errorf("ListModels() = %v", got)
	}
}
