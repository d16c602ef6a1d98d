package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SaveTracker remembers which report keys a session already persisted, so
// regenerating the same upload does not write duplicate history
type SaveTracker struct {
	mu      sync.Mutex
	saved   map[string]int64
	pending map[string]struct{}
}

// NewSaveTracker creates an empty tracker
func NewSaveTracker() *SaveTracker {
	return &SaveTracker{
		saved:   make(map[string]int64),
		pending: make(map[string]struct{}),
	}
}

// TryReserve claims key for saving. It fails when key is already saved, in
// which case the stored ID is returned, or while another request holds it.
// A successful reservation must end with Mark or Release.
func (t *SaveTracker) TryReserve(key string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.saved[key]; ok {
		return id, false
	}
	if _, busy := t.pending[key]; busy {
		return 0, false
	}
	t.pending[key] = struct{}{}
	return 0, true
}

// Release drops a reservation whose save failed
func (t *SaveTracker) Release(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, key)
}

// Mark records that key was stored under id and ends its reservation
func (t *SaveTracker) Mark(key string, id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, key)
	t.saved[key] = id
}

// Len returns the number of saved keys
func (t *SaveTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.saved)
}

type sessionEntry struct {
	tracker  *SaveTracker
	lastSeen time.Time
}

// SessionStore hands out one SaveTracker per client session. Sessions idle
// for longer than the TTL are dropped on the next lookup.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*sessionEntry
}

// NewSessionStore creates a store that expires idle sessions after ttl
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

// Tracker returns the tracker of a session. An empty ID starts a new session;
// the ID actually used is returned.
func (s *SessionStore) Tracker(id string) (string, *SaveTracker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expire(now)

	if id == "" {
		id = uuid.NewString()
	}

	entry, ok := s.sessions[id]
	if !ok {
		entry = &sessionEntry{tracker: NewSaveTracker()}
		s.sessions[id] = entry
	}
	entry.lastSeen = now

	return id, entry.tracker
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) expire(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, entry := range s.sessions {
		if now.Sub(entry.lastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
