package api

import (
	"context"
	"io"
	"sync"

	apierrors "github.com/diogo/chatai/internal/errors"
	"github.com/diogo/chatai/internal/models"
)

// ChatAPI is the surface of Client used by the commands and the TUI
type ChatAPI interface {
	CreateChat(ctx context.Context, name string) (*models.ChatInfo, error)
	OpenChat(ctx context.Context, name string) (*models.Transcript, error)
	ListChats(ctx context.Context) ([]string, error)
	ListModels(ctx context.Context) ([]string, error)
	OpenStream(ctx context.Context, req models.SendRequest) (models.ChunkSource, error)
	Send(ctx context.Context, req models.SendRequest) (string, error)
	Model() string
	SetModel(model string)
	Close() error
}

var _ ChatAPI = (*Client)(nil)

// MockClient is a ChatAPI returning canned values, for tests
type MockClient struct {
	mu sync.Mutex

	Chats       []string
	ListErr     error
	ModelList   []string
	ModelsErr   error
	CreateErr   error
	Transcripts map[string]*models.Transcript
	OpenChatErr error

	// Chunks are streamed by OpenStream, then StreamErr (io.EOF when nil)
	Chunks    []string
	StreamErr error
	OpenErr   error
	SendErr   error

	ModelName string
	Closed    bool

	Created  []string
	Requests []models.SendRequest
}

var _ ChatAPI = (*MockClient)(nil)

// CreateChat records the name and appends it to Chats
func (m *MockClient) CreateChat(_ context.Context, name string) (*models.ChatInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := models.ValidateChatName(name); err != nil {
		return nil, err
	}
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	for _, c := range m.Chats {
		if c == name {
			return nil, apierrors.ErrChatExists
		}
	}
	m.Created = append(m.Created, name)
	m.Chats = append(m.Chats, name)
	return &models.ChatInfo{ID: "mock01", Name: name}, nil
}

func (m *MockClient) OpenChat(_ context.Context, name string) (*models.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OpenChatErr != nil {
		return nil, m.OpenChatErr
	}
	if t, ok := m.Transcripts[name]; ok {
		return t, nil
	}
	for _, c := range m.Chats {
		if c == name {
			return &models.Transcript{Info: models.ChatInfo{Name: name}, Messages: []models.Message{}}, nil
		}
	}
	return nil, apierrors.ErrChatNotFound
}

func (m *MockClient) ListChats(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Chats...), m.ListErr
}

func (m *MockClient) ListModels(context.Context) ([]string, error) {
	if m.ModelsErr != nil {
		return nil, m.ModelsErr
	}
	if m.ModelList == nil {
		return models.AvailableModels(), nil
	}
	return m.ModelList, nil
}

// OpenStream records the request and streams Chunks
func (m *MockClient) OpenStream(_ context.Context, req models.SendRequest) (models.ChunkSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	return NewSliceSource(m.Chunks, m.StreamErr), nil
}

// Send records the request and returns the joined Chunks
func (m *MockClient) Send(_ context.Context, req models.SendRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.SendErr != nil {
		return "", m.SendErr
	}
	var out string
	for _, c := range m.Chunks {
		out += c
	}
	return out, nil
}

func (m *MockClient) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ModelName == "" {
		return models.DefaultModel
	}
	return m.ModelName
}

func (m *MockClient) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ModelName = model
}

func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// LastRequest returns the most recent send, if any
func (m *MockClient) LastRequest() (models.SendRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return models.SendRequest{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}

// SliceSource is a ChunkSource over a fixed list of chunks
type SliceSource struct {
	mu     sync.Mutex
	chunks []string
	end    error
	closed bool
}

// NewSliceSource returns a source yielding chunks and then end, or io.EOF
// when end is nil.
func NewSliceSource(chunks []string, end error) *SliceSource {
	if end == nil {
		end = io.EOF
	}
	return &SliceSource{chunks: append([]string(nil), chunks...), end: end}
}

func (s *SliceSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", io.ErrClosedPipe
	}
	if len(s.chunks) == 0 {
		return "", s.end
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *SliceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
