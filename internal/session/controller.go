package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	apierrors "github.com/diogo/chatai/internal/errors"
	"github.com/diogo/chatai/internal/logging"
	"github.com/diogo/chatai/internal/models"
	"github.com/diogo/chatai/internal/notify"
	"github.com/diogo/chatai/internal/render"
)

// DefaultErrorMarker is appended to an answer whose stream broke
const DefaultErrorMarker = "\n\n[response interrupted]"

// Transport opens streamed responses
type Transport interface {
	OpenStream(ctx context.Context, req models.SendRequest) (models.ChunkSource, error)
}

// TranscriptLoader is implemented by transports that can fetch an existing
// chat's transcript
type TranscriptLoader interface {
	OpenChat(ctx context.Context, name string) (*models.Transcript, error)
}

// Store persists finalized transcripts
type Store interface {
	SaveMessages(chatID, model string, messages []models.Message) error
	LoadMessages(chatID string) ([]models.Message, error)
}

// Controller owns a set of sessions and runs their sends
type Controller struct {
	transport Transport
	renderer  render.Renderer
	notifier  notify.Sink
	publisher Publisher
	store     Store
	log       *slog.Logger
	marker    string
	renderFPS int

	settingsMu   sync.RWMutex
	model        string
	systemPrompt string
	temperature  float64

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Controller
type Option func(*Controller)

// WithNotifier sets the sink for user-facing status messages
func WithNotifier(sink notify.Sink) Option {
	return func(c *Controller) {
		if sink != nil {
			c.notifier = sink
		}
	}
}

// WithPublisher sets where display updates go
func WithPublisher(p Publisher) Option {
	return func(c *Controller) {
		if p != nil {
			c.publisher = p
		}
	}
}

// WithStore enables persistence of finalized transcripts
func WithStore(s Store) Option {
	return func(c *Controller) {
		c.store = s
	}
}

// WithModel sets the model sent with each request
func WithModel(model string) Option {
	return func(c *Controller) {
		c.model = model
	}
}

// WithSystemPrompt sets the system prompt sent with each request
func WithSystemPrompt(prompt string) Option {
	return func(c *Controller) {
		c.systemPrompt = prompt
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(t float64) Option {
	return func(c *Controller) {
		c.temperature = t
	}
}

// WithRenderRate caps intermediate renders per second. Zero or less renders
// every chunk. The final render always happens.
func WithRenderRate(fps int) Option {
	return func(c *Controller) {
		c.renderFPS = fps
	}
}

// WithLogger sets the logger. A nil logger keeps the discarding default.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithErrorMarker sets the suffix of interrupted answers
func WithErrorMarker(marker string) Option {
	return func(c *Controller) {
		c.marker = marker
	}
}

// New returns a controller sending through transport and rendering with
// renderer.
func New(transport Transport, renderer render.Renderer, opts ...Option) *Controller {
	c := &Controller{
		transport:   transport,
		renderer:    renderer,
		notifier:    notify.Discard,
		publisher:   discardPublisher{},
		log:         logging.Discard(),
		marker:      DefaultErrorMarker,
		model:       models.DefaultModel,
		temperature: models.DefaultTemperature,
		sessions:    make(map[string]*Session),
	}
	if c.renderer == nil {
		c.renderer = render.Plain{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model used for new sends
func (c *Controller) Model() string {
	c.settingsMu.RLock()
	defer c.settingsMu.RUnlock()
	return c.model
}

// SetModel changes the model used for new sends
func (c *Controller) SetModel(model string) {
	c.settingsMu.Lock()
	defer c.settingsMu.Unlock()
	c.model = model
}

func (c *Controller) sendRequest(chatID, text string, attachments []models.Attachment) models.SendRequest {
	c.settingsMu.RLock()
	defer c.settingsMu.RUnlock()
	return models.SendRequest{
		ChatID:       chatID,
		Text:         text,
		Attachments:  attachments,
		Model:        c.model,
		SystemPrompt: c.systemPrompt,
		Temperature:  c.temperature,
	}
}

// NewSession registers an empty session. An existing idle session with the
// same id is reset.
func (c *Controller) NewSession(chatID string) error {
	return c.install(chatID, nil)
}

// Open registers a session holding the chat's existing transcript. The
// transport is asked first, then the local store.
func (c *Controller) Open(ctx context.Context, chatID string) ([]models.Message, error) {
	messages, err := c.loadTranscript(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := c.install(chatID, messages); err != nil {
		return nil, err
	}
	return c.Messages(chatID)
}

func (c *Controller) loadTranscript(ctx context.Context, chatID string) ([]models.Message, error) {
	var remoteErr error
	if loader, ok := c.transport.(TranscriptLoader); ok {
		t, err := loader.OpenChat(ctx, chatID)
		if err == nil {
			return t.Messages, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		remoteErr = err
		c.log.Warn("remote transcript unavailable", "chat_id", chatID, "error", err)
	}

	if c.store != nil {
		messages, err := c.store.LoadMessages(chatID)
		if err == nil {
			if remoteErr != nil {
				c.notifier.Report(notify.Warning, "Showing local copy of "+chatID)
			}
			return messages, nil
		}
		if remoteErr == nil {
			remoteErr = err
		}
	}

	if remoteErr == nil {
		return nil, nil
	}
	return nil, fmt.Errorf("open %s: %w", chatID, remoteErr)
}

func (c *Controller) install(chatID string, messages []models.Message) error {
	if chatID == "" {
		return apierrors.ErrSessionNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.sessions[chatID]; ok {
		existing.mu.Lock()
		defer existing.mu.Unlock()
		if existing.state != models.StateIdle {
			return apierrors.NewStreamActiveError(chatID, "reset session")
		}
		existing.replace(messages)
		return nil
	}

	c.sessions[chatID] = newSession(chatID, messages)
	return nil
}

// Close cancels any stream in the session and forgets it
func (c *Controller) Close(chatID string) error {
	if err := c.Cancel(context.Background(), chatID); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.sessions, chatID)
	c.mu.Unlock()
	return nil
}

func (c *Controller) session(chatID string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[chatID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apierrors.ErrSessionNotFound, chatID)
	}
	return s, nil
}

// Messages returns a copy of the session transcript. An assistant message
// that is still streaming has empty content.
func (c *Controller) Messages(chatID string) ([]models.Message, error) {
	s, err := c.session(chatID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// State returns the session's streaming state
func (c *Controller) State(chatID string) (models.StreamState, error) {
	s, err := c.session(chatID)
	if err != nil {
		return models.StateIdle, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

// setState changes the session state. Caller holds s.mu.
func (c *Controller) setState(s *Session, to models.StreamState) {
	if s.state == to {
		return
	}
	c.log.Debug("session.state", "chat_id", s.chatID, "from", s.state.String(), "to", to.String())
	s.state = to
}

// begin moves an idle session to Sending with a fresh handle. Caller holds s.mu.
func (c *Controller) begin(ctx context.Context, s *Session) *streamHandle {
	h := newStreamHandle(ctx)
	s.handle = h
	c.setState(s, models.StateSending)
	return h
}

// Send appends text as a user message and streams the answer into a new
// assistant message, which is returned once finalized. A cancelled send is
// not an error: the partial message is returned, or nil if the stream never
// opened.
func (c *Controller) Send(ctx context.Context, chatID, text string, attachments []models.Attachment) (*models.Message, error) {
	s, err := c.session(chatID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		return nil, apierrors.ErrEmptyMessage
	}

	s.mu.Lock()
	if s.state != models.StateIdle {
		s.mu.Unlock()
		return nil, apierrors.NewBusyError(chatID)
	}
	if strings.TrimSpace(text) != "" {
		s.append(models.RoleUser, text)
	}
	h := c.begin(ctx, s)
	s.mu.Unlock()

	return c.run(s, h, c.sendRequest(chatID, text, attachments))
}

// Regenerate drops the assistant message at fromSeq and everything after it,
// then streams a new answer to the closest earlier user message.
func (c *Controller) Regenerate(ctx context.Context, chatID string, fromSeq int) (*models.Message, error) {
	s, err := c.session(chatID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state != models.StateIdle {
		s.mu.Unlock()
		return nil, apierrors.NewBusyError(chatID)
	}
	if fromSeq < 0 || fromSeq >= len(s.messages) || s.messages[fromSeq].Role != models.RoleAssistant {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d is not an assistant message", apierrors.ErrInvalidSequence, fromSeq)
	}

	userSeq := -1
	for i := fromSeq - 1; i >= 0; i-- {
		if s.messages[i].Role == models.RoleUser {
			userSeq = i
			break
		}
	}
	if userSeq < 0 {
		s.mu.Unlock()
		return nil, apierrors.NewNoPriorUserMessageError(fromSeq)
	}

	text := s.messages[userSeq].Content
	s.truncate(fromSeq)
	h := c.begin(ctx, s)
	s.mu.Unlock()

	return c.run(s, h, c.sendRequest(chatID, text, nil))
}

// Delete removes the message at seq and renumbers the rest
func (c *Controller) Delete(chatID string, seq int) error {
	s, err := c.session(chatID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != models.StateIdle {
		s.mu.Unlock()
		return apierrors.NewStreamActiveError(chatID, "delete message")
	}
	if seq < 0 || seq >= len(s.messages) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", apierrors.ErrInvalidSequence, seq)
	}
	s.remove(seq)
	snapshot := s.snapshot()
	s.mu.Unlock()

	c.persist(chatID, snapshot)
	return nil
}

// Cancel stops the session's stream and waits until the session is idle
// again. It does nothing when the session is idle.
func (c *Controller) Cancel(ctx context.Context, chatID string) error {
	s, err := c.session(chatID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	h := s.handle
	if s.state == models.StateIdle || h == nil {
		s.mu.Unlock()
		return nil
	}
	h.cancelled = true
	c.setState(s, models.StateCancelling)
	h.cancel()
	s.mu.Unlock()

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type outcome int

const (
	completed outcome = iota
	interrupted
	cancelled
)

// run opens the stream and consumes it until it completes, fails or is
// cancelled. Chunks are applied in arrival order.
func (c *Controller) run(s *Session, h *streamHandle, req models.SendRequest) (*models.Message, error) {
	defer h.cancel()

	src, err := c.transport.OpenStream(h.ctx, req)

	s.mu.Lock()
	if h.cancelled || h.ctx.Err() != nil {
		if src != nil {
			_ = src.Close()
		}
		snapshot := s.snapshot()
		c.release(s, h)
		s.mu.Unlock()

		c.notifier.Report(notify.Info, "Request cancelled")
		c.persist(s.chatID, snapshot)
		close(h.done)
		return nil, nil
	}
	if err != nil {
		snapshot := s.snapshot()
		c.release(s, h)
		s.mu.Unlock()

		c.log.Warn("stream open failed", "chat_id", s.chatID, "error", err)
		c.notifier.Report(notify.Error, "Could not start response: "+err.Error())
		c.persist(s.chatID, snapshot)
		close(h.done)
		return nil, apierrors.NewTransportError("open stream", err)
	}
	c.setState(s, models.StateStreaming)
	h.seq = s.append(models.RoleAssistant, "")
	s.mu.Unlock()
	defer src.Close()

	c.publisher.Publish(Update{ChatID: s.chatID, Sequence: h.seq, State: models.StateStreaming})

	limiter := rate.NewLimiter(rate.Inf, 1)
	if c.renderFPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.renderFPS), 1)
	}

	for {
		chunk, err := src.Next(h.ctx)
		if h.ctx.Err() != nil {
			// The caller's ctx ended the stream without Cancel
			s.mu.Lock()
			c.setState(s, models.StateCancelling)
			s.mu.Unlock()
			return c.finalize(s, h, cancelled, nil)
		}
		if errors.Is(err, io.EOF) {
			return c.finalize(s, h, completed, nil)
		}
		if err != nil {
			return c.finalize(s, h, interrupted, err)
		}

		h.buf = ApplyChunk(h.buf, chunk)
		h.chunks++
		if limiter.Allow() {
			c.publisher.Publish(Update{
				ChatID:   s.chatID,
				Sequence: h.seq,
				Raw:      h.buf,
				Rendered: c.render(h.buf),
				State:    models.StateStreaming,
			})
		}
	}
}

// finalize commits the buffer as the assistant message's content, publishes
// the final render, persists, and returns the session to Idle.
func (c *Controller) finalize(s *Session, h *streamHandle, how outcome, cause error) (*models.Message, error) {
	content := h.buf
	if how == interrupted {
		content += c.marker
	}

	s.mu.Lock()
	s.messages[h.seq].Content = content
	msg := s.messages[h.seq]
	snapshot := s.snapshot()
	s.mu.Unlock()

	c.publisher.Publish(Update{
		ChatID:   s.chatID,
		Sequence: h.seq,
		Raw:      content,
		Rendered: c.render(content),
		Final:    true,
		State:    models.StateIdle,
	})
	c.persist(s.chatID, snapshot)

	s.mu.Lock()
	c.release(s, h)
	s.mu.Unlock()
	close(h.done)

	c.log.Debug("stream finished", "chat_id", s.chatID, "chunks", h.chunks, "bytes", len(h.buf))

	switch how {
	case interrupted:
		c.log.Warn("stream interrupted", "chat_id", s.chatID, "error", cause)
		c.notifier.Report(notify.Warning, "Response interrupted: "+cause.Error())
		return &msg, apierrors.NewStreamInterruptedError(h.buf, cause)
	case cancelled:
		c.notifier.Report(notify.Info, "Response cancelled")
	}
	return &msg, nil
}

// release drops the handle and returns to Idle. Caller holds s.mu.
func (c *Controller) release(s *Session, h *streamHandle) {
	if s.handle == h {
		s.handle = nil
	}
	c.setState(s, models.StateIdle)
}

// render falls back to the raw text when the renderer fails
func (c *Controller) render(text string) string {
	out, err := c.renderer.Render(text)
	if err != nil {
		c.log.Debug("render failed", "error", err)
		return text
	}
	return out
}

func (c *Controller) persist(chatID string, messages []models.Message) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveMessages(chatID, c.Model(), messages); err != nil {
		c.log.Warn("history save failed", "chat_id", chatID, "error", err)
		c.notifier.Report(notify.Warning, "Could not save history: "+err.Error())
	}
}
