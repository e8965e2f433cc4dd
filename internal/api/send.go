package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	http "github.com/bogdanfinn/fhttp"

	apierrors "github.com/diogo/chatai/internal/errors"
	"github.com/diogo/chatai/internal/models"
)

type attachmentBody struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type sendBody struct {
	Content      string           `json:"content"`
	Model        string           `json:"model,omitempty"`
	SystemPrompt string           `json:"system_prompt,omitempty"`
	Temperature  float64          `json:"temperature"`
	Attachments  []attachmentBody `json:"attachments,omitempty"`
}

// sendRequest validates req and builds the query and body of a send
func (c *Client) sendRequest(req models.SendRequest, stream bool) (url.Values, sendBody, error) {
	if err := models.ValidateChatName(req.ChatID); err != nil {
		return nil, sendBody{}, fmt.Errorf("send to %q: %w", req.ChatID, err)
	}
	if strings.TrimSpace(req.Text) == "" && len(req.Attachments) == 0 {
		return nil, sendBody{}, apierrors.ErrEmptyMessage
	}

	model := req.Model
	if model == "" {
		model = c.Model()
	}

	body := sendBody{
		Content:      req.Text,
		Model:        model,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
	}
	for _, a := range req.Attachments {
		body.Attachments = append(body.Attachments, attachmentBody{
			Name:     a.Name,
			MIMEType: a.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(a.Data),
		})
	}

	query := url.Values{}
	query.Set("name", req.ChatID)
	query.Set("stream", fmt.Sprintf("%t", stream))
	return query, body, nil
}

// Send performs a non-streaming send and returns the whole answer
func (c *Client) Send(ctx context.Context, req models.SendRequest) (string, error) {
	query, payload, err := c.sendRequest(req, false)
	if err != nil {
		return "", err
	}

	res, err := c.getJSON(ctx, http.MethodPost, models.EndpointSend, query, payload)
	if err != nil {
		return "", err
	}

	content := res.Get(PathContent)
	if !content.Exists() {
		return "", apierrors.NewParseError("missing content", PathContent)
	}

	text := content.String()
	if trimmed := strings.TrimSpace(text); strings.HasPrefix(trimmed, ErrorPrefix) {
		return "", apierrors.NewAPIError(0, models.EndpointSend, strings.TrimSpace(strings.TrimPrefix(trimmed, ErrorPrefix)))
	}
	return text, nil
}
