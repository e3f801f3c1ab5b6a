// Package session keeps the cookie stores produced by login attempts so
// API callers can reuse them for later requests.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/autologin/autologin"
)

// Session is a stored login outcome.
type Session struct {
	ID             string
	URL            string // page the login was attempted on
	FormFound      bool
	UsernameMapped bool
	Cookies        *autologin.CookieStore
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Store is an in-memory session store with TTL eviction.
// It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a Store holding at most maxEntries sessions, each living for
// ttl. A background goroutine evicts expired sessions every interval until
// Close is called.
func New(maxEntries int, ttl, interval time.Duration) *Store {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s := &Store{
		sessions:   make(map[string]*Session),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		done:       make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop(interval)
	return s
}

// Create stores a new session for the result of a login attempt.
func (s *Store) Create(res *autologin.Result) Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Cookies:   res.Cookies.Clone(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	sess.applyResult(res)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= s.maxEntries {
		s.evictOldestLocked()
	}
	s.sessions[sess.ID] = sess
	return sess.snapshot()
}

// Update replaces the cookies of an existing session with those of a new
// login attempt and extends its lifetime.
func (s *Store) Update(id string, res *autologin.Result) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || s.expired(sess) {
		return Session{}, false
	}
	sess.Cookies = res.Cookies.Clone()
	sess.applyResult(res)
	sess.ExpiresAt = s.now().Add(s.ttl)
	return sess.snapshot(), true
}

// Get returns a copy of the session. Expired sessions are not returned.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || s.expired(sess) {
		return Session{}, false
	}
	return sess.snapshot(), true
}

// Delete removes a session and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len returns the number of stored sessions, expired ones included until
// the next cleanup.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}

func (s *Store) expired(sess *Session) bool {
	return !s.now().Before(sess.ExpiresAt)
}

func (s *Store) evictOldestLocked() {
	var oldest *Session
	for _, sess := range s.sessions {
		if oldest == nil || sess.CreatedAt.Before(oldest.CreatedAt) {
			oldest = sess
		}
	}
	if oldest != nil {
		delete(s.sessions, oldest.ID)
	}
}

func (s *Store) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
		}
	}
}

func (sess *Session) applyResult(res *autologin.Result) {
	sess.URL = res.URL
	sess.FormFound = res.FormFound
	sess.UsernameMapped = res.UsernameMapped
}

// snapshot copies the session with a detached cookie store.
func (sess *Session) snapshot() Session {
	out := *sess
	out.Cookies = sess.Cookies.Clone()
	return out
}
