// Package session holds the session token format and the observable store of
// persisted demo sessions.
package session

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/localstore"
)

type EventType string

const (
	EventSignedIn  EventType = "SIGNED_IN"
	EventSignedOut EventType = "SIGNED_OUT"
	EventRestored  EventType = "RESTORED"
)

// Event is delivered to subscribers whenever a demo session changes
type Event struct {
	Type EventType
	User *domain.DemoUser
}

// Listener receives session events. It runs synchronously and must not block.
type Listener func(Event)

// Store is the observable set of demo sessions, one per demo user. Each is
// persisted under localstore.DemoAuthUserKey(id) so it survives restarts.
type Store struct {
	local  *localstore.Store
	logger *zap.Logger

	mu        sync.RWMutex
	sessions  map[string]*domain.DemoUser
	loading   bool
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a store in the loading state. Call Restore to finish loading.
func NewStore(local *localstore.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		local:     local,
		logger:    logger,
		sessions:  make(map[string]*domain.DemoUser),
		loading:   true,
		listeners: make(map[int]Listener),
	}
}

// Restore loads every persisted demo session and leaves the loading state
func (s *Store) Restore() error {
	var restored []*domain.DemoUser
	err := s.local.Each(localstore.KeyDemoAuthUserPrefix, func(decode func(dest interface{}) error) error {
		var user domain.DemoUser
		if err := decode(&user); err != nil || user.ID == "" {
			s.logger.Warn("Skipping unreadable demo session", zap.Error(err))
			return nil
		}
		restored = append(restored, &user)
		return nil
	})

	s.mu.Lock()
	s.loading = false
	for _, u := range restored {
		s.sessions[u.ID] = u
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to restore demo sessions: %w", err)
	}
	for _, u := range restored {
		s.emit(Event{Type: EventRestored, User: copyUser(u)})
	}
	s.logger.Info("Restored demo sessions", zap.Int("count", len(restored)))
	return nil
}

// Loading reports whether the persisted sessions have not been restored yet
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Get returns a copy of the demo session of userID, or nil
func (s *Store) Get(userID string) *domain.DemoUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.sessions[userID])
}

// Active reports whether userID has a demo session
func (s *Store) Active(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[userID]
	return ok
}

// SetDemoUser persists the session of user and notifies subscribers
func (s *Store) SetDemoUser(user *domain.DemoUser) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("demo session without user id")
	}
	if err := s.local.Set(localstore.DemoAuthUserKey(user.ID), user); err != nil {
		return err
	}

	u := copyUser(user)
	s.mu.Lock()
	s.sessions[u.ID] = u
	s.mu.Unlock()

	s.emit(Event{Type: EventSignedIn, User: copyUser(u)})
	return nil
}

// Clear removes the session of userID from memory and disk and notifies
// subscribers. Other users' sessions are untouched.
func (s *Store) Clear(userID string) error {
	err := s.local.Delete(localstore.DemoAuthUserKey(userID))

	s.mu.Lock()
	previous := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	if previous != nil {
		s.emit(Event{Type: EventSignedOut, User: previous})
	}
	return err
}

// Subscribe registers fn and returns a function that removes it
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) emit(ev Event) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}

func copyUser(u *domain.DemoUser) *domain.DemoUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
