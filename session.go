package main

import (
	"time"
)

// Sessions is the protocol governing registration, login and authenticated
// access. It exclusively owns token minting; the stores hold no business
// logic. The clock is injectable for tests.
type Sessions struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
}

func NewSessions(store Store, timeout time.Duration) *Sessions {
	return &Sessions{store: store, timeout: timeout, now: time.Now}
}

// mintToken creates a fresh token owned by userID with the issuance
// timestamp captured at call time.
func (s *Sessions) mintToken(userID string) (string, error) {
	t := &Token{
		ID:        newTokenID(),
		UserID:    userID,
		Timestamp: s.now().UnixMilli(),
	}
	if err := s.store.CreateToken(t); err != nil {
		return "", err
	}
	return t.ID, nil
}

// Register creates a credential record for id and mints a first token
// (auto-login on signup). If the identity already exists nothing is mutated
// and a conflict is reported. If token minting fails after the credential
// was created, the credential persists and an internal failure is reported;
// there is no compensating rollback.
func (s *Sessions) Register(id, secret string, profile map[string]interface{}) (string, error) {
	existing, err := s.store.GetUser(id)
	if err != nil {
		return "", internalErr(err, "looking up user %s", id)
	}
	if existing != nil {
		return "", conflictErr("user %s already exists", id)
	}

	hash, err := hashPassword(secret)
	if err != nil {
		return "", internalErr(err, "hashing password for user %s", id)
	}
	if profile == nil {
		profile = map[string]interface{}{}
	}
	u := &User{ID: id, Password: hash, Profile: profile}
	if err := s.store.CreateUser(u); err != nil {
		if err == ErrDuplicateKey {
			return "", conflictErr("user %s already exists", id)
		}
		return "", internalErr(err, "creating user %s", id)
	}

	tokenID, err := s.mintToken(id)
	if err != nil {
		// credential already persisted; documented partial failure
		return "", internalErr(err, "minting token for user %s", id)
	}
	return tokenID, nil
}

// Login re-verifies the secret and mints a fresh token. Every successful
// login adds a token; previously issued tokens stay valid until they age
// out.
func (s *Sessions) Login(id, secret string) (string, error) {
	u, err := s.store.GetUser(id)
	if err != nil {
		return "", internalErr(err, "looking up user %s", id)
	}
	if u == nil {
		return "", notFoundErr("user %s not found", id)
	}
	if secret == "" || !comparePassword(u.Password, secret) {
		return "", unauthorizedErr("/users/%s/auth requires a valid 'pw' password field", id)
	}

	tokenID, err := s.mintToken(id)
	if err != nil {
		return "", internalErr(err, "minting token for user %s", id)
	}
	return tokenID, nil
}

// Authenticate admits a request that presents a token owned by id and
// younger than the timeout, returning the public user document. A missing
// token, a token owned by someone else, an unknown token id and an expired
// token are all reported identically as unauthorized. A token whose age
// equals the timeout exactly is rejected.
func (s *Sessions) Authenticate(id, tokenID string) (map[string]interface{}, error) {
	u, err := s.store.GetUser(id)
	if err != nil {
		return nil, internalErr(err, "looking up user %s", id)
	}
	if u == nil {
		return nil, notFoundErr("user %s not found", id)
	}
	if tokenID == "" {
		return nil, unauthorizedErr("/users/%s requires a bearer authorization header", id)
	}

	t, err := s.store.GetTokenByIDAndUser(tokenID, id)
	if err != nil {
		return nil, internalErr(err, "looking up token for user %s", id)
	}
	if t == nil {
		return nil, unauthorizedErr("/users/%s requires a bearer authorization header", id)
	}

	age := s.now().UnixMilli() - t.Timestamp
	if age >= s.timeout.Milliseconds() {
		return nil, unauthorizedErr("/users/%s requires a bearer authorization header", id)
	}
	return u.PublicDoc(), nil
}
