// Package history provides local conversation history storage.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diogo/chatai/internal/config"
	"github.com/diogo/chatai/internal/models"
)

// ErrNotFound is returned for chats without local history
var ErrNotFound = errors.New("conversation not found")

// maxTitleLen is the rune length of titles derived from the first message
const maxTitleLen = 50

// Conversation is the local copy of one chat. ChatName is the chat's name on
// the server and the key the store is addressed by.
type Conversation struct {
	ID        string           `json:"id"`
	ChatName  string           `json:"chat_name"`
	Title     string           `json:"title"`
	Model     string           `json:"model"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Messages  []models.Message `json:"messages"`
}

// Backend is implemented by every history store
type Backend interface {
	Create(chatName, model string) (*Conversation, error)
	Get(chatName string) (*Conversation, error)
	List() ([]*Conversation, error)
	SaveMessages(chatName, model string, messages []models.Message) error
	LoadMessages(chatName string) ([]models.Message, error)
	UpdateTitle(chatName, title string) error
	Delete(chatName string) error
	ClearAll() error
	Close() error
}

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*SQLiteStore)(nil)
)

// Open returns the backend selected by cfg.StoreBackend, rooted in the
// config directory.
func Open(cfg config.Config) (Backend, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		return NewSQLiteStore(filepath.Join(dir, "history.db"))
	case config.StoreJSON, "":
		return NewStore(dir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Store keeps one JSON file per chat
type Store struct {
	baseDir string
	mu      sync.RWMutex
}

// NewStore creates a new history store
func NewStore(baseDir string) (*Store, error) {
	historyDir := filepath.Join(baseDir, "history")
	if err := os.MkdirAll(historyDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	return &Store{
		baseDir: historyDir,
	}, nil
}

// Create starts an empty conversation for chatName
func (s *Store) Create(chatName, model string) (*Conversation, error) {
	if err := models.ValidateChatName(chatName); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.conversationPath(chatName)); err == nil {
		return nil, fmt.Errorf("conversation already exists: %s", chatName)
	}

	conv := newConversation(chatName, model)
	if err := s.saveConversation(conv); err != nil {
		return nil, err
	}

	return conv, nil
}

// Get retrieves the conversation stored for chatName
func (s *Store) Get(chatName string) (*Conversation, error) {
	if err := models.ValidateChatName(chatName); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadConversation(chatName)
}

// List returns all conversations, most recently updated first
func (s *Store) List() ([]*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var conversations []*Conversation
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		conv, err := s.loadConversation(name)
		if err != nil {
			continue // Skip corrupted files
		}
		conversations = append(conversations, conv)
	}

	sortByUpdated(conversations)
	return conversations, nil
}

// SaveMessages replaces the stored transcript, creating the conversation on
// first save.
func (s *Store) SaveMessages(chatName, model string, messages []models.Message) error {
	if err := models.ValidateChatName(chatName); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.loadConversation(chatName)
	if errors.Is(err, ErrNotFound) {
		conv = newConversation(chatName, model)
	} else if err != nil {
		return err
	}

	conv.apply(model, messages)
	return s.saveConversation(conv)
}

// LoadMessages returns the stored transcript of chatName
func (s *Store) LoadMessages(chatName string) ([]models.Message, error) {
	conv, err := s.Get(chatName)
	if err != nil {
		return nil, err
	}
	return conv.Messages, nil
}

// UpdateTitle updates the title of a conversation
func (s *Store) UpdateTitle(chatName, title string) error {
	if err := models.ValidateChatName(chatName); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.loadConversation(chatName)
	if err != nil {
		return err
	}

	conv.Title = title
	conv.UpdatedAt = time.Now()

	return s.saveConversation(conv)
}

// Delete removes a conversation
func (s *Store) Delete(chatName string) error {
	if err := models.ValidateChatName(chatName); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.conversationPath(chatName)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, chatName)
		}
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	return nil
}

// ClearAll deletes all conversations
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to read history directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(s.baseDir, entry.Name())
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// Close is a no-op for the file store
func (s *Store) Close() error {
	return nil
}

func (s *Store) conversationPath(chatName string) string {
	return filepath.Join(s.baseDir, chatName+".json")
}

func (s *Store) loadConversation(chatName string) (*Conversation, error) {
	data, err := os.ReadFile(s.conversationPath(chatName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, chatName)
		}
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to parse conversation: %w", err)
	}
	if conv.Messages == nil {
		conv.Messages = []models.Message{}
	}

	return &conv, nil
}

func (s *Store) saveConversation(conv *Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	if err := os.WriteFile(s.conversationPath(conv.ChatName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write conversation: %w", err)
	}

	return nil
}

func newConversation(chatName, model string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.NewString(),
		ChatName:  chatName,
		Title:     chatName,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []models.Message{},
	}
}

// apply installs a new transcript. A title still equal to the chat name is
// replaced by one derived from the first user message.
func (c *Conversation) apply(model string, messages []models.Message) {
	c.Messages = make([]models.Message, len(messages))
	copy(c.Messages, messages)
	for i := range c.Messages {
		c.Messages[i].Sequence = i
	}
	if model != "" {
		c.Model = model
	}
	if c.Title == "" || c.Title == c.ChatName {
		if title := deriveTitle(c.Messages); title != "" {
			c.Title = title
		}
	}
	c.UpdatedAt = time.Now()
}

func deriveTitle(messages []models.Message) string {
	for _, m := range messages {
		if m.Role != models.RoleUser {
			continue
		}
		title := strings.Join(strings.Fields(m.Content), " ")
		if r := []rune(title); len(r) > maxTitleLen {
			title = string(r[:maxTitleLen]) + "..."
		}
		return title
	}
	return ""
}

func sortByUpdated(conversations []*Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
}
