package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned when creating an account with a taken username.
	ErrAccountExists = errors.New("account already exists")
	// ErrRoomNotFound is returned when a named room does not exist.
	ErrRoomNotFound = errors.New("room not found")
)

// Account is a verified user record. Read-only from the gateway's
// perspective apart from registration.
type Account struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Room is chat room metadata keyed by name.
type Room struct {
	Name      string
	Topic     string
	Owner     string
	CreatedAt time.Time
}

// ChatMessage is one persisted history entry. Immutable once stored;
// history order is insertion order.
type ChatMessage struct {
	Sender  string
	Content string
	Room    string
	Command string
}

// AccountStore verifies and registers user credentials.
type AccountStore interface {
	// CreateAccount registers a new account with a hashed password.
	CreateAccount(ctx context.Context, username, password string) (*Account, error)

	// Authenticate verifies credentials and returns the account record.
	// Returns ErrInvalidCredentials when they don't match.
	Authenticate(ctx context.Context, username, password string) (*Account, error)
}

// RoomStore persists room metadata.
type RoomStore interface {
	// LoadOrCreate returns the room by name, creating it with the given
	// owner and topic when absent. created reports which branch ran.
	// The operation is atomic: of two concurrent calls for the same
	// absent name, exactly one observes created == true.
	LoadOrCreate(ctx context.Context, name, owner, topic string) (room *Room, created bool, err error)

	// SetTopic updates the named room's topic.
	SetTopic(ctx context.Context, name, topic string) error

	// Delete removes the room's metadata.
	Delete(ctx context.Context, name string) error
}

// HistoryStore persists per-room chat messages in arrival order.
type HistoryStore interface {
	// Append stores a message at the end of its room's history.
	Append(ctx context.Context, msg *ChatMessage) error

	// List returns the room's full history in insertion order.
	// A room with no messages yields an empty, non-nil slice.
	List(ctx context.Context, room string) ([]ChatMessage, error)

	// Clear removes the room's entire history.
	Clear(ctx context.Context, room string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	AccountStore
	RoomStore
	HistoryStore

	// Close closes the underlying database connection.
	Close() error
}
