package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// register sqlite driver
	_ "modernc.org/sqlite"

	"github.com/diogo/chatai/internal/models"
)

// SQLiteStore keeps conversations in a single SQLite database.
// Timestamps are stored as unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a store at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	chat_name TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	model TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	conversation_id TEXT NOT NULL,
	sequence INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (conversation_id, sequence)
);
CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at DESC);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases underlying database resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(chatName, model string) (*Conversation, error) {
	if err := models.ValidateChatName(chatName); err != nil {
		return nil, err
	}
	conv := newConversation(chatName, model)
	_, err := s.db.Exec(`
INSERT INTO conversations(id, chat_name, title, model, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.ChatName, conv.Title, conv.Model,
		conv.CreatedAt.UnixNano(), conv.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if _, getErr := s.Get(chatName); getErr == nil {
			return nil, fmt.Errorf("conversation already exists: %s", chatName)
		}
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

func (s *SQLiteStore) Get(chatName string) (*Conversation, error) {
	row := s.db.QueryRow(`
SELECT id, chat_name, title, model, created_at, updated_at
FROM conversations WHERE chat_name = ?`, chatName)
	conv, err := scanConversation(row)
	if err != nil {
		return nil, err
	}
	if conv.Messages, err = s.messages(conv.ID); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *SQLiteStore) List() ([]*Conversation, error) {
	rows, err := s.db.Query(`
SELECT id, chat_name, title, model, created_at, updated_at
FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	var conversations []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, conv := range conversations {
		if conv.Messages, err = s.messages(conv.ID); err != nil {
			return nil, err
		}
	}
	return conversations, nil
}

func (s *SQLiteStore) SaveMessages(chatName, model string, messages []models.Message) error {
	if err := models.ValidateChatName(chatName); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	conv, err := scanConversation(tx.QueryRow(`
SELECT id, chat_name, title, model, created_at, updated_at
FROM conversations WHERE chat_name = ?`, chatName))
	isNew := errors.Is(err, ErrNotFound)
	if isNew {
		conv = newConversation(chatName, model)
	} else if err != nil {
		return err
	}
	conv.apply(model, messages)

	if isNew {
		_, err = tx.Exec(`
INSERT INTO conversations(id, chat_name, title, model, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?)`,
			conv.ID, conv.ChatName, conv.Title, conv.Model,
			conv.CreatedAt.UnixNano(), conv.UpdatedAt.UnixNano())
	} else {
		_, err = tx.Exec(`UPDATE conversations SET title = ?, model = ?, updated_at = ? WHERE id = ?`,
			conv.Title, conv.Model, conv.UpdatedAt.UnixNano(), conv.ID)
	}
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	for _, m := range conv.Messages {
		if _, err := tx.Exec(`
INSERT INTO messages(conversation_id, sequence, role, content, created_at)
VALUES(?, ?, ?, ?, ?)`,
			conv.ID, m.Sequence, string(m.Role), m.Content, unixNano(m.CreatedAt)); err != nil {
			return fmt.Errorf("insert message %d: %w", m.Sequence, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadMessages(chatName string) ([]models.Message, error) {
	conv, err := s.Get(chatName)
	if err != nil {
		return nil, err
	}
	return conv.Messages, nil
}

func (s *SQLiteStore) UpdateTitle(chatName, title string) error {
	res, err := s.db.Exec(`UPDATE conversations SET title = ?, updated_at = ? WHERE chat_name = ?`,
		title, time.Now().UnixNano(), chatName)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return requireRow(res, chatName)
}

func (s *SQLiteStore) Delete(chatName string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
DELETE FROM messages WHERE conversation_id IN
	(SELECT id FROM conversations WHERE chat_name = ?)`, chatName); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM conversations WHERE chat_name = ?`, chatName)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if err := requireRow(res, chatName); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ClearAll() error {
	if _, err := s.db.Exec(`DELETE FROM messages; DELETE FROM conversations;`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) messages(conversationID string) ([]models.Message, error) {
	rows, err := s.db.Query(`
SELECT sequence, role, content, created_at
FROM messages WHERE conversation_id = ? ORDER BY sequence`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	out := []models.Message{}
	for rows.Next() {
		var (
			m       models.Message
			role    string
			created int64
		)
		if err := rows.Scan(&m.Sequence, &role, &m.Content, &created); err != nil {
			return nil, err
		}
		m.Role = models.Role(role)
		m.CreatedAt = fromUnixNano(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var (
		conv             Conversation
		created, updated int64
	)
	err := row.Scan(&conv.ID, &conv.ChatName, &conv.Title, &conv.Model, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	conv.CreatedAt = fromUnixNano(created)
	conv.UpdatedAt = fromUnixNano(updated)
	conv.Messages = []models.Message{}
	return &conv, nil
}

func requireRow(res sql.Result, chatName string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, chatName)
	}
	return nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
