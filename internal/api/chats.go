package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/chatai/internal/errors"
	"github.com/diogo/chatai/internal/models"
)

type chatNameBody struct {
	Name string `json:"name"`
}

// CreateChat creates an empty chat on the server
func (c *Client) CreateChat(ctx context.Context, name string) (*models.ChatInfo, error) {
	if err := models.ValidateChatName(name); err != nil {
		return nil, fmt.Errorf("create chat %q: %w", name, err)
	}

	res, err := c.getJSON(ctx, http.MethodPost, models.EndpointCreateChat, nil, chatNameBody{Name: name})
	if err != nil {
		var apiErr *apierrors.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest &&
			strings.Contains(strings.ToLower(apiErr.Message), "already exists") {
			return nil, fmt.Errorf("%w: %w", apierrors.ErrChatExists, err)
		}
		return nil, err
	}

	return &models.ChatInfo{
		ID:        res.Get("id").String(),
		Name:      res.Get("name").String(),
		CreatedAt: res.Get("created_at").String(),
	}, nil
}

// OpenChat fetches a chat's transcript
func (c *Client) OpenChat(ctx context.Context, name string) (*models.Transcript, error) {
	if err := models.ValidateChatName(name); err != nil {
		return nil, fmt.Errorf("open chat %q: %w", name, err)
	}

	res, err := c.getJSON(ctx, http.MethodPost, models.EndpointOpenChat, nil, chatNameBody{Name: name})
	if err != nil {
		if apierrors.GetHTTPStatus(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %w", apierrors.ErrChatNotFound, err)
		}
		return nil, err
	}

	transcript := ParseTranscript(res.Get("jsonl").String())
	if transcript.Info.Name == "" {
		transcript.Info.Name = name
	}
	return transcript, nil
}

// ListChats returns the names of the chats stored on the server
func (c *Client) ListChats(ctx context.Context) ([]string, error) {
	res, err := c.getJSON(ctx, http.MethodGet, models.EndpointHistory, nil, nil)
	if err != nil {
		return nil, err
	}

	chats := res.Get(PathChats)
	if !chats.Exists() || chats.Type == gjson.Null {
		return []string{}, nil
	}
	if !chats.IsArray() {
		return nil, apierrors.NewParseError("chats is not a list", PathChats)
	}

	names := make([]string, 0, len(chats.Array()))
	for _, v := range chats.Array() {
		if n := v.String(); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

// ListModels returns the models the server can answer with
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	res, err := c.getJSON(ctx, http.MethodGet, models.EndpointModels, nil, nil)
	if err != nil {
		return nil, err
	}

	list := res.Get(PathModels)
	if !list.IsArray() {
		return nil, apierrors.NewParseError("models is not a list", PathModels)
	}

	names := make([]string, 0, len(list.Array()))
	for _, v := range list.Array() {
		names = append(names, v.String())
	}
	return names, nil
}
