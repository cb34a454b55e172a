package store

import (
	"context"
	"sync"
	"time"

	"blockship/internal/session"
	id "blockship/pkg/domain"
	"blockship/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in a map. One mutex serializes all access,
// which also gives Update its per-session serialization for free. Suitable
// for a single gateway instance and for tests.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[id.SessionID]*session.Session
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[id.SessionID]*session.Session),
	}
}

func (s *InMemoryStore) Create(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return sentinel.ErrConflict
	}
	s.sessions[sess.ID] = clone(sess)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, sessionID id.SessionID) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if sess.Expired(time.Now()) {
		return nil, sentinel.ErrExpired
	}
	return clone(sess), nil
}

func (s *InMemoryStore) Update(_ context.Context, sessionID id.SessionID, fn func(*session.Session) error) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if sess.Expired(time.Now()) {
		return nil, sentinel.ErrExpired
	}

	updated := clone(sess)
	if err := fn(updated); err != nil {
		return nil, err
	}
	s.sessions[sessionID] = updated
	return clone(updated), nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) ([]*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []*session.Session
	for sessionID, sess := range s.sessions {
		if sess.Expired(now) {
			removed = append(removed, sess)
			delete(s.sessions, sessionID)
		}
	}
	return removed, nil
}

func (s *InMemoryStore) IsSessionClosed(_ context.Context, sessionID id.SessionID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return true, nil
	}
	return sess.Expired(time.Now()), nil
}

// clone deep-copies a session so callers never share the stored value.
func clone(sess *session.Session) *session.Session {
	copied := *sess
	if sess.Disclosure.Record != nil {
		record := *sess.Disclosure.Record
		copied.Disclosure.Record = &record
	}
	return &copied
}
