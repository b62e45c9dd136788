package conversation

import (
	"slices"
	"sync"
	"time"

	"github.com/zombor/ledger-bot/internal/ledger"
)

// State is the slot a session is waiting for.
type State int

const (
	StateIdle State = iota
	StateDescription
	StateAmount
	StateDateTime
	StateKind
	StateBank
	StateCategory
)

var stateNames = map[State]string{
	StateIdle:        "idle",
	StateDescription: "awaiting-description",
	StateAmount:      "awaiting-amount",
	StateDateTime:    "awaiting-datetime",
	StateKind:        "awaiting-kind",
	StateBank:        "awaiting-bank",
	StateCategory:    "awaiting-category",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Session is one user's in-progress entry.
type Session struct {
	UserID          int64
	ChatID          int64
	State           State
	Draft           ledger.Draft
	BankOptions     []string
	CategoryOptions []string
	UpdatedAt       time.Time
}

func (s *Session) clone() *Session {
	c := *s
	c.BankOptions = slices.Clone(s.BankOptions)
	c.CategoryOptions = slices.Clone(s.CategoryOptions)
	return &c
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SessionStore keeps sessions in memory, evicting those idle longer than the TTL.
type SessionStore struct {
	sessions        map[int64]*Session
	locks           map[int64]*userLock
	locksMu         sync.Mutex
	ttl             time.Duration
	cleanupInterval time.Duration
	clock           Clock
	stopCh          chan struct{}
	stopOnce        sync.Once
	mu              sync.RWMutex
}

// NewSessionStore creates a store and starts its cleanup goroutine.
// A zero ttl disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return NewSessionStoreWithClock(ttl, time.Minute, systemClock{})
}

// NewSessionStoreWithClock creates a store with a custom clock and sweep interval for testing.
func NewSessionStoreWithClock(ttl, cleanupInterval time.Duration, clock Clock) *SessionStore {
	store := &SessionStore{
		sessions:        make(map[int64]*Session),
		locks:           make(map[int64]*userLock),
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		clock:           clock,
		stopCh:          make(chan struct{}),
	}
	if ttl > 0 && cleanupInterval > 0 {
		go store.cleanupLoop()
	}
	return store
}

// userLock is a per-user mutex shared by everyone holding or waiting for it.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// Lock serializes message handling for one user. Call the returned func to release.
// The lock entry is dropped once no goroutine holds or waits for it.
func (s *SessionStore) Lock(userID int64) func() {
	s.locksMu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			s.locksMu.Lock()
			defer s.locksMu.Unlock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, userID)
			}
		})
	}
}

// lockCount returns the number of live lock entries.
func (s *SessionStore) lockCount() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

// Get returns a copy of the user's live session.
func (s *SessionStore) Get(userID int64) (*Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.expired(session) {
		s.Delete(userID)
		return nil, false
	}
	return session.clone(), true
}

// Put stores a copy of session and refreshes its activity time.
func (s *SessionStore) Put(session *Session) {
	c := session.clone()
	c.UpdatedAt = s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[c.UserID] = c
}

// Delete removes the user's session.
func (s *SessionStore) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(session *Session) bool {
	return s.ttl > 0 && s.clock.Now().Sub(session.UpdatedAt) > s.ttl
}

// cleanupLoop periodically removes idle sessions.
func (s *SessionStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup removes every expired session.
func (s *SessionStore) cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if s.expired(session) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Stop shuts down the cleanup goroutine.
func (s *SessionStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
