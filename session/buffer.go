// Package session holds the live conversation state and the tool-dispatch
// loop that drives a donation conversation.
package session

import (
	"sync"

	"github.com/opnlabs/donorbot/domain"
)

// Buffer is a bounded FIFO of conversation turns. When full, the oldest
// turns fall off; tool-result turns left without their assistant call are
// dropped too so the window always starts on a well-formed turn.
type Buffer struct {
	limit int
	turns []domain.Turn
}

// NewBuffer creates a buffer that keeps at most limit turns.
func NewBuffer(limit int) *Buffer {
	return &Buffer{limit: limit}
}

// Append adds a turn, evicting from the front once the limit is reached.
func (b *Buffer) Append(turn domain.Turn) {
	b.turns = append(b.turns, turn)
	if b.limit > 0 && len(b.turns) > b.limit {
		b.turns = b.turns[len(b.turns)-b.limit:]
	}
	for len(b.turns) > 0 && b.turns[0].Role == domain.RoleTool {
		b.turns = b.turns[1:]
	}
}

// Turns returns a copy of the buffered turns, oldest first.
func (b *Buffer) Turns() []domain.Turn {
	out := make([]domain.Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

// Tail returns a copy of the most recent n turns, oldest first. Leading
// orphaned tool results are dropped.
func (b *Buffer) Tail(n int) []domain.Turn {
	turns := b.turns
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	for len(turns) > 0 && turns[0].Role == domain.RoleTool {
		turns = turns[1:]
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}

// Len reports how many turns are buffered.
func (b *Buffer) Len() int {
	return len(b.turns)
}

// Session is the per-user conversation state. The mutex serializes message
// handling so concurrent webhook deliveries for one user cannot interleave
// model calls.
type Session struct {
	mu     sync.Mutex
	buffer *Buffer
}

// Sessions is an in-memory registry of live sessions keyed by WhatsApp id.
type Sessions struct {
	mu       sync.Mutex
	limit    int
	sessions map[string]*Session
}

// NewSessions creates a registry whose sessions buffer at most limit turns.
func NewSessions(limit int) *Sessions {
	return &Sessions{
		limit:    limit,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for a WhatsApp id, creating it on first contact.
func (s *Sessions) Get(whatsappID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[whatsappID]
	if !ok {
		sess = &Session{buffer: NewBuffer(s.limit)}
		s.sessions[whatsappID] = sess
	}
	return sess
}
