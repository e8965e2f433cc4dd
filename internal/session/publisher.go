package session

import (
	"sync"

	"github.com/diogo/chatai/internal/models"
)

// Update is the display state of one assistant message. Rendered is the
// renderer output for Raw, the whole buffer accumulated so far.
type Update struct {
	ChatID   string
	Sequence int
	Raw      string
	Rendered string
	Final    bool
	State    models.StreamState
}

// Publisher receives display updates in the order chunks arrive
type Publisher interface {
	Publish(u Update)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(u Update)

func (f PublisherFunc) Publish(u Update) { f(u) }

type discardPublisher struct{}

func (discardPublisher) Publish(Update) {}

// ChannelPublisher hands updates to a single consumer through a channel.
// Publish blocks until the update is taken or the publisher is closed.
type ChannelPublisher struct {
	ch        chan Update
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannelPublisher returns a publisher with the given buffer size
func NewChannelPublisher(size int) *ChannelPublisher {
	return &ChannelPublisher{
		ch:   make(chan Update, size),
		done: make(chan struct{}),
	}
}

func (p *ChannelPublisher) Publish(u Update) {
	select {
	case p.ch <- u:
	case <-p.done:
	}
}

// Updates returns the channel updates are delivered on
func (p *ChannelPublisher) Updates() <-chan Update {
	return p.ch
}

// Done is closed once Close has been called
func (p *ChannelPublisher) Done() <-chan struct{} {
	return p.done
}

// Close stops delivery. Pending and later Publish calls return immediately.
func (p *ChannelPublisher) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}
