package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Session is the attribute map of one client, bound to its id
type Session struct {
	id    string
	store Store
}

// New binds a session id to a store
func New(id string, store Store) *Session {
	return &Session{id: id, store: store}
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// Get returns an attribute value and whether it was present
func (s *Session) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.store.Get(ctx, s.id, key)
}

// Set stores an attribute
func (s *Session) Set(ctx context.Context, key string, value []byte) error {
	return s.store.Set(ctx, s.id, key, value)
}

// Remove deletes an attribute
func (s *Session) Remove(ctx context.Context, key string) error {
	return s.store.Remove(ctx, s.id, key)
}

// Regenerate drops the current session and switches to a fresh id with no
// attributes. Call it before binding a login so an id known before
// authentication never carries one.
func (s *Session) Regenerate(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.id); err != nil {
		return fmt.Errorf("failed to drop session: %w", err)
	}
	s.id = uuid.New().String()
	return nil
}
