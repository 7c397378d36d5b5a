// Package conversation tracks the ordered turns of a chat session and
// persists saved conversations.
package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoActiveConversation signals a sequencing bug in the caller: a turn
// was recorded (or a save requested) before starting a conversation.
var ErrNoActiveConversation = errors.New("no active conversation")

// ErrNotFound is returned by History.Load for unknown conversation ids.
var ErrNotFound = errors.New("conversation not found")

// Role is the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Source records where an assistant turn's answer was retrieved from.
type Source struct {
	ChunkID  string  `json:"chunk_id"`
	Filename string  `json:"filename"`
	Page     int     `json:"page"`
	Score    float32 `json:"score"`
	Excerpt  string  `json:"excerpt"`
}

// Turn is one message in a conversation. Turns are append-only and
// ordered; IsError marks assistant turns produced by a failed pipeline
// call, which stay in the history as an audit trail.
type Turn struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Sources   []Source  `json:"sources,omitempty"`
	IsError   bool      `json:"is_error,omitempty"`
}

// Conversation is an ordered turn sequence with identity.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Turns     []Turn    `json:"turns"`
}

// History persists conversation snapshots. Save must be idempotent:
// saving the same conversation twice leaves one identical record.
type History interface {
	Save(ctx context.Context, conv Conversation) error
	Load(ctx context.Context, id uuid.UUID) (Conversation, error)
	Close() error
}

// Manager owns the active conversation of one session.
type Manager struct {
	mu      sync.Mutex
	history History
	active  *Conversation
}

// NewManager creates a manager persisting through the given history.
func NewManager(history History) *Manager {
	return &Manager{history: history}
}

// StartNew activates a fresh empty conversation and returns its id.
// Unsaved turns of the previous active conversation are discarded; a
// snapshot already saved through Save is never touched.
func (m *Manager) StartNew() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = &Conversation{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
	return m.active.ID
}

// Record appends a turn to the active conversation, filling in the id
// and timestamp when the caller left them zero.
func (m *Manager) Record(turn Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ErrNoActiveConversation
	}
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	m.active.Turns = append(m.active.Turns, turn)
	return nil
}

// Save persists a full snapshot of the active conversation. A failed
// save leaves the in-memory turns untouched so it can be retried.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ErrNoActiveConversation
	}
	return m.history.Save(ctx, *m.active)
}

// Recent returns up to n most recent turns, oldest of them first.
func (m *Manager) Recent(n int) []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || n <= 0 {
		return nil
	}
	turns := m.active.Turns
	if n > len(turns) {
		n = len(turns)
	}
	out := make([]Turn, n)
	copy(out, turns[len(turns)-n:])
	return out
}

// ActiveID reports the active conversation's id, if any.
func (m *Manager) ActiveID() (uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return uuid.Nil, false
	}
	return m.active.ID, true
}
