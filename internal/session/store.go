package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults for the store's eviction policy.
const (
	// DefaultTTL is how long an idle session survives before eviction.
	DefaultTTL = 24 * time.Hour

	// DefaultMaxEntries caps a transcript's length; when the cap is hit,
	// the oldest entries are dropped.
	DefaultMaxEntries = 200

	// janitorInterval is how often expired sessions are swept.
	janitorInterval = 10 * time.Minute
)

// session holds one transcript with its last-activity timestamp.
type session struct {
	entries  []Entry
	lastSeen time.Time
}

// Store is an in-memory session store keyed by session ID.
// It is safe for concurrent use. Close stops the eviction janitor.
type Store struct {
	mu         sync.Mutex
	sessions   map[uuid.UUID]*session
	ttl        time.Duration
	maxEntries int
	logger     *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// now is a clock seam for eviction tests.
	now func() time.Time
}

// StoreConfig configures NewStore. Zero values select the defaults.
type StoreConfig struct {
	TTL        time.Duration
	MaxEntries int
	Logger     *slog.Logger
}

// NewStore creates a session store and starts its eviction janitor.
func NewStore(cfg StoreConfig) *Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		sessions:   make(map[uuid.UUID]*session),
		ttl:        ttl,
		maxEntries: maxEntries,
		logger:     logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		now:        time.Now,
	}

	go s.janitor()
	return s
}

// Transcript returns a copy of the session's entries, oldest first.
// An unknown session yields an empty transcript.
func (s *Store) Transcript(id uuid.UUID) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	sess.lastSeen = s.now()

	entries := make([]Entry, len(sess.entries))
	copy(entries, sess.entries)
	return entries
}

// Append adds a question/answer pair to the session's transcript, creating
// the session if needed. When the transcript exceeds the cap, the oldest
// entries are dropped.
func (s *Store) Append(id uuid.UUID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	sess.lastSeen = now
	sess.entries = append(sess.entries, Entry{
		Question: question,
		Answer:   answer,
		AskedAt:  now,
	})

	if overflow := len(sess.entries) - s.maxEntries; overflow > 0 {
		sess.entries = append(sess.entries[:0:0], sess.entries[overflow:]...)
		s.logger.Debug("transcript capped", "session", id, "dropped", overflow)
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the eviction janitor. Safe to call more than once.
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

// janitor periodically evicts sessions idle longer than the TTL.
func (s *Store) janitor() {
	defer close(s.done)

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

// evictExpired removes all sessions idle longer than the TTL.
func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	evicted := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}

	if evicted > 0 {
		s.logger.Debug("evicted idle sessions", "count", evicted, "remaining", len(s.sessions))
	}
}
