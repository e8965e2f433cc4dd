// Package session drives the send, stream and finalize lifecycle of chat
// sessions.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/diogo/chatai/internal/models"
)

// Session is one conversation's transcript plus its streaming state. All
// fields are guarded by mu and mutated only by the Controller.
type Session struct {
	mu       sync.Mutex
	chatID   string
	messages []models.Message
	state    models.StreamState
	handle   *streamHandle
}

func newSession(chatID string, messages []models.Message) *Session {
	s := &Session{chatID: chatID}
	s.replace(messages)
	return s
}

// replace installs messages renumbered from zero. Caller holds mu or owns s.
func (s *Session) replace(messages []models.Message) {
	s.messages = make([]models.Message, len(messages))
	copy(s.messages, messages)
	s.renumber()
}

func (s *Session) renumber() {
	for i := range s.messages {
		s.messages[i].Sequence = i
	}
}

// append adds a message at the next sequence and returns that sequence.
func (s *Session) append(role models.Role, content string) int {
	seq := len(s.messages)
	s.messages = append(s.messages, models.Message{
		Role:      role,
		Content:   content,
		Sequence:  seq,
		CreatedAt: time.Now(),
	})
	return seq
}

// truncate drops every message from seq onward.
func (s *Session) truncate(seq int) {
	kept := make([]models.Message, seq)
	copy(kept, s.messages[:seq])
	s.messages = kept
}

// remove deletes the message at seq and compacts later sequences.
func (s *Session) remove(seq int) {
	kept := make([]models.Message, 0, len(s.messages)-1)
	kept = append(kept, s.messages[:seq]...)
	kept = append(kept, s.messages[seq+1:]...)
	s.messages = kept
	s.renumber()
}

func (s *Session) snapshot() []models.Message {
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// streamHandle is one in-flight response. buf is only touched by the
// goroutine consuming the stream.
type streamHandle struct {
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	buf       string
	seq       int
	chunks    int
	cancelled bool
}

func newStreamHandle(parent context.Context) *streamHandle {
	ctx, cancel := context.WithCancel(parent)
	return &streamHandle{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		seq:    -1,
	}
}

// ApplyChunk appends one chunk to the accumulated buffer.
func ApplyChunk(buf, chunk string) string {
	return buf + chunk
}
