package api

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/chatai/internal/errors"
	"github.com/diogo/chatai/internal/models"
)

func TestSend(t *testing.T) {
	doer := jsonDoer(200, `{"content":"full answer"}`)
	c := newTestClient(t, doer)

	got, err := c.Send(context.Background(), models.SendRequest{
		ChatID:       "demo",
		Text:         "hi",
		SystemPrompt: "be brief",
		Temperature:  0.7,
		Attachments:  []models.Attachment{{Name: "a.txt", MIMEType: "text/plain", Data: []byte("abc")}},
	})
	if err != nil {
		t.Fatalf("Send() returned error: %v", err)
	}
	if got != "full answer" {
		t.Errorf("Send() = %q", got)
	}

	if q := doer.requests[0].URL.Query(); q.Get("stream") != "false" {
		t.Errorf("stream = %s, want false", q.Get("stream"))
	}

	payload := gjson.Parse(doer.payloads[0])
	if payload.Get("content").String() != "hi" {
		t.Errorf("content = %s", payload.Get("content"))
	}
	if payload.Get("model").String() != models.DefaultModel {
		t.Errorf("model = %s, want client default", payload.Get("model"))
	}
	if payload.Get("system_prompt").String() != "be brief" {
		t.Errorf("system_prompt = %s", payload.Get("system_prompt"))
	}
	if payload.Get("temperature").Float() != 0.7 {
		t.Errorf("temperature = %s", payload.Get("temperature"))
	}
	data := payload.Get("attachments.0.data").String()
	if data != base64.StdEncoding.EncodeToString([]byte("abc")) {
		t.Errorf("attachment data = %s", data)
	}
	if payload.Get("attachments.0.mime_type").String() != "text/plain" {
		t.Errorf("attachment mime = %s", payload.Get("attachments.0.mime_type"))
	}
}

func TestSend_OmitsEmptyOptionalFields(t *testing.T) {
	doer := jsonDoer(200, `{"content":"ok"}`)
	c := newTestClient(t, doer)

	if _, err := c.Send(context.Background(), models.SendRequest{ChatID: "demo", Text: "hi", Model: "m"}); err != nil {
		t.Fatal(err)
	}

	payload := gjson.Parse(doer.payloads[0])
	if payload.Get("system_prompt").Exists() {
		t.Error("empty system_prompt should be omitted")
	}
	if payload.Get("attachments").Exists() {
		t.Error("empty attachments should be omitted")
	}
	if payload.Get("model").String() != "m" {
		t.Errorf("model = %s, want m", payload.Get("model"))
	}
}

func TestSend_InBandError(t *testing.T) {
	c := newTestClient(t, jsonDoer(200, `{"content":"[error] cannot create chat"}`))

	_, err := c.Send(context.Background(), sendReq())
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Message != "cannot create chat" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestSend_MissingContent(t *testing.T) {
	c := newTestClient(t, jsonDoer(200, `{}`))

	if _, err := c.Send(context.Background(), sendReq()); !errors.Is(err, apierrors.ErrInvalidResponse) {
		t.Errorf("error = %v, want ErrInvalidResponse", err)
	}
}
