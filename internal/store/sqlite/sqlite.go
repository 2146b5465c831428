package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS rooms (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	topic      TEXT NOT NULL,
	owner      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	room    TEXT NOT NULL,
	sender  TEXT NOT NULL,
	content TEXT NOT NULL,
	command TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file, ":memory:" for tests.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== AccountStore implementation ====

// CreateAccount registers a new account with a bcrypt-hashed password.
func (s *SQLiteStore) CreateAccount(ctx context.Context, username, password string) (*store.Account, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO accounts (username, password_hash)
		VALUES (?, ?)
		ON CONFLICT(username) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, username, hash)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrAccountExists
	}

	return s.getAccount(ctx, username)
}

// Authenticate verifies credentials against the stored bcrypt hash.
func (s *SQLiteStore) Authenticate(ctx context.Context, username, password string) (*store.Account, error) {
	account, err := s.getAccount(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := comparePassword(account.PasswordHash, password); err != nil {
		return nil, store.ErrInvalidCredentials
	}

	return account, nil
}

func (s *SQLiteStore) getAccount(ctx context.Context, username string) (*store.Account, error) {
	query := `
		SELECT username, password_hash, created_at
		FROM accounts
		WHERE username = ?
	`
	var account store.Account
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&account.Username,
		&account.PasswordHash,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", err)
		}
		return nil, fmt.Errorf("query account: %w", err)
	}

	return &account, nil
}

// ==== RoomStore implementation ====

// LoadOrCreate returns the room by name, creating it when absent.
// The conflict-free insert decides the winner atomically: of two
// concurrent calls for an absent name, exactly one inserts a row.
func (s *SQLiteStore) LoadOrCreate(ctx context.Context, name, owner, topic string) (*store.Room, bool, error) {
	query := `
		INSERT INTO rooms (name, topic, owner)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, name, topic, owner)
	if err != nil {
		return nil, false, fmt.Errorf("insert room: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	room, err := s.getRoom(ctx, name)
	if err != nil {
		return nil, false, err
	}

	return room, affected == 1, nil
}

// SetTopic updates the named room's topic.
func (s *SQLiteStore) SetTopic(ctx context.Context, name, topic string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE rooms SET topic = ? WHERE name = ?`, topic, name)
	if err != nil {
		return fmt.Errorf("update topic: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrRoomNotFound
	}

	return nil
}

// Delete removes the room's metadata.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

func (s *SQLiteStore) getRoom(ctx context.Context, name string) (*store.Room, error) {
	query := `
		SELECT name, topic, owner, created_at
		FROM rooms
		WHERE name = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&room.Name,
		&room.Topic,
		&room.Owner,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRoomNotFound
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	return &room, nil
}

// ==== HistoryStore implementation ====

// Append stores a message at the end of its room's history.
// The autoincrement id makes insertion order the history order.
func (s *SQLiteStore) Append(ctx context.Context, msg *store.ChatMessage) error {
	query := `
		INSERT INTO messages (room, sender, content, command)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, msg.Room, msg.Sender, msg.Content, msg.Command); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// List returns the room's full history in insertion order.
func (s *SQLiteStore) List(ctx context.Context, room string) ([]store.ChatMessage, error) {
	query := `
		SELECT sender, content, room, command
		FROM messages
		WHERE room = ?
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, room)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]store.ChatMessage, 0)
	for rows.Next() {
		var msg store.ChatMessage
		if err := rows.Scan(&msg.Sender, &msg.Content, &msg.Room, &msg.Command); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// Clear removes the room's entire history.
func (s *SQLiteStore) Clear(ctx context.Context, room string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE room = ?`, room); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}
