package main

import (
	"errors"
	"sync"
	"time"
)

// ErrDuplicateKey is the distinguishable conflict signal a store must return
// when a credential record with the same identity already exists.
var ErrDuplicateKey = errors.New("duplicate key")

// Store is the persistence contract for the two collaborators: the
// credential store (users) and the token store (issued tokens). Adapters
// hold no business logic. Lookups return (nil, nil) when the record is
// absent; only genuine storage failures produce a non-nil error.
type Store interface {
	// Credential store
	CreateUser(u *User) error
	GetUser(id string) (*User, error)
	UpdateUser(id string, fields map[string]interface{}) (int64, error)
	DeleteUser(id string) error
	// Token store
	CreateToken(t *Token) error
	// GetTokenByIDAndUser scopes the lookup by both fields: a token id that
	// exists but belongs to a different user resolves as not found.
	GetTokenByIDAndUser(tokenID, userID string) (*Token, error)
}

// Memory store, used for tests and DB_ADAPTER=memory.
type MemStore struct {
	mu     sync.RWMutex
	users  map[string]*User
	tokens map[string]*Token
}

func NewMemStore() *MemStore {
	return &MemStore{users: map[string]*User{}, tokens: map[string]*Token{}}
}

func cloneProfile(p map[string]interface{}) map[string]interface{} {
	c := make(map[string]interface{}, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

func (m *MemStore) CreateUser(u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return ErrDuplicateKey
	}
	cp := *u
	cp.Profile = cloneProfile(u.Profile)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.users[u.ID] = &cp
	return nil
}

func (m *MemStore) GetUser(id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	cp.Profile = cloneProfile(u.Profile)
	return &cp, nil
}

func (m *MemStore) UpdateUser(id string, fields map[string]interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, nil
	}
	for k, v := range fields {
		u.Profile[k] = v
	}
	return 1, nil
}

func (m *MemStore) DeleteUser(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *MemStore) CreateToken(t *Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.tokens[t.ID] = &cp
	return nil
}

func (m *MemStore) GetTokenByIDAndUser(tokenID, userID string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[tokenID]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// lifecycle helpers
func (m *MemStore) close() error { return nil }
func (m *MemStore) ping() bool   { return true }
