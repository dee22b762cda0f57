package bot

import (
	"log"
	"sync"
	"time"

	"github.com/zulandar/condobot/internal/metrics"
)

// DefaultIdleTimeout is how long a dialogue session may sit without input
// before it is discarded.
const DefaultIdleTimeout = 10 * time.Minute

// SessionKey builds the table key for a participant within a conversation.
func SessionKey(conversationID, participantID string) string {
	return conversationID + "_" + participantID
}

// Session is a snapshot of one participant's dialogue progress.
type Session[T any] struct {
	Key          string
	State        T
	LastActivity time.Time
}

// Sessions is the dialogue session table. It is the sole owner of session
// state: callers receive copies and write back through Update. Each key has
// at most one pending idle timer; touching a key re-arms it and expiry
// removes the session silently.
type Sessions[T any] struct {
	name  string
	clock Clock
	idle  time.Duration

	mu      sync.Mutex
	entries map[string]*sessionEntry[T]
}

type sessionEntry[T any] struct {
	session Session[T]
	timer   Timer
	gen     uint64 // bumped on every Touch; stale timers compare and bail
}

// SessionsOpts holds parameters for creating a session table.
type SessionsOpts struct {
	Name        string        // label used in logs and metrics
	Clock       Clock         // defaults to SystemClock
	IdleTimeout time.Duration // defaults to DefaultIdleTimeout
}

// NewSessions creates an empty session table.
func NewSessions[T any](opts SessionsOpts) *Sessions[T] {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Sessions[T]{
		name:    opts.Name,
		clock:   clock,
		idle:    idle,
		entries: make(map[string]*sessionEntry[T]),
	}
}

// GetOrCreate returns the session for key, creating it with the given
// initial state if absent. It does not arm the idle timer.
func (s *Sessions[T]) GetOrCreate(key string, initial T) Session[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.session
	}
	e := &sessionEntry[T]{session: Session[T]{
		Key:          key,
		State:        initial,
		LastActivity: s.clock.Now(),
	}}
	s.entries[key] = e
	return e.session
}

// Get returns the session for key, if any.
func (s *Sessions[T]) Get(key string) (Session[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Session[T]{}, false
	}
	return e.session, true
}

// Update replaces the state of an existing session. It returns false when
// the session no longer exists (for example, it expired meanwhile).
func (s *Sessions[T]) Update(key string, state T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	e.session.State = state
	return true
}

// Touch refreshes the session's last activity and re-arms its idle timer,
// cancelling the previous one. It returns false when the key is absent.
func (s *Sessions[T]) Touch(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	e.session.LastActivity = s.clock.Now()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = s.clock.AfterFunc(s.idle, func() { s.expire(key, gen) })
	return true
}

// Remove deletes the session and cancels its timer. It returns false when
// the key is absent.
func (s *Sessions[T]) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(s.entries, key)
	return true
}

// Len returns the number of live sessions.
func (s *Sessions[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// expire is the idle timer callback. A timer that lost a race with a newer
// Touch or a Remove finds a different generation (or no entry) and does
// nothing.
func (s *Sessions[T]) expire(key string, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.entries, key)
	s.mu.Unlock()

	log.Printf("bot: sessions %s: expired %s", s.name, key)
	metrics.RecordSessionExpired(s.name)
}
