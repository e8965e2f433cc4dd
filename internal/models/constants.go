// Package models contains data types and constants for the chat API and the
// streaming session controller.
package models

import (
	"regexp"

	apierrors "github.com/diogo/chatai/internal/errors"
)

// Endpoints of the chat API, relative to the configured base URL
const (
	EndpointCreateChat = "/chats/create"
	EndpointOpenChat   = "/chats/open_chat"
	EndpointSend       = "/chats/send"
	EndpointModels     = "/models"
	EndpointHistory    = "/history_chat"
)

// DefaultBaseURL is where the chat API listens when run locally
const DefaultBaseURL = "http://127.0.0.1:8000"

// DefaultTemperature matches the server-side default for sends
const DefaultTemperature = 0.2

// Known models served by the chat API
const (
	ModelLlama33Versatile = "llama-3.3-70b-versatile"
	ModelLlama3_8B        = "llama3-8b-8192"
	ModelMixtral8x7B      = "mixtral-8x7b-32768"

	// DefaultModel is the server's first listed model
	DefaultModel = ModelLlama33Versatile
)

// AvailableModels returns the models the server ships with. The live list is
// served by the /models endpoint.
func AvailableModels() []string {
	return []string{
		ModelLlama33Versatile,
		ModelLlama3_8B,
		ModelMixtral8x7B,
	}
}

// MaxChatNameLength is the longest chat name the server accepts
const MaxChatNameLength = 64

var chatNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateChatName checks a chat name against the server's slug rule.
func ValidateChatName(name string) error {
	if !chatNameRe.MatchString(name) {
		return apierrors.ErrInvalidChatName
	}
	return nil
}
