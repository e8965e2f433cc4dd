package models

import (
	"context"
	"time"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a role that can appear in a transcript
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one entry of a session transcript. Sequence is the message's
// zero-based position in the transcript.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Sequence  int       `json:"sequence"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// StreamState is the per-session streaming state
type StreamState int

const (
	StateIdle StreamState = iota
	StateSending
	StateStreaming
	StateCancelling
)

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCancelling:
		return "cancelling"
	default:
		return "unknown"
	}
}

// Attachment is a file sent along with a user message
type Attachment struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// Size returns the attachment payload size in bytes
func (a Attachment) Size() int {
	return len(a.Data)
}

// SendRequest carries everything the transport needs for one send
type SendRequest struct {
	ChatID       string
	Text         string
	Attachments  []Attachment
	Model        string
	SystemPrompt string
	Temperature  float64
}

// ChunkSource is a lazy, finite, non-restartable sequence of text chunks.
// Next returns io.EOF once the stream has completed cleanly.
type ChunkSource interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// ChatInfo is the header record of a remote chat
type ChatInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Transcript is a remote chat's info plus its ordered messages
type Transcript struct {
	Info     ChatInfo
	Messages []Message
}
