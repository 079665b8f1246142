package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T, timeout time.Duration) (*Sessions, *MemStore) {
	t.Helper()
	store := NewMemStore()
	return NewSessions(store, timeout), store
}

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var pe *Error
	require.True(t, errors.As(err, &pe), "expected protocol error, got %v", err)
	return pe.Kind
}

func TestRegisterMintsToken(t *testing.T) {
	s, store := newTestSessions(t, time.Minute)

	tokenID, err := s.Register("bob", "s1", map[string]interface{}{"email": "b@x.com"})
	require.NoError(t, err)
	require.NotEmpty(t, tokenID)

	u, err := store.GetUser("bob")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.NotEqual(t, "s1", u.Password, "plaintext secret must never be stored")
	assert.True(t, comparePassword(u.Password, "s1"))

	tok, err := store.GetTokenByIDAndUser(tokenID, "bob")
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "bob", tok.UserID)
}

func TestRegisterDuplicateIsConflict(t *testing.T) {
	s, store := newTestSessions(t, time.Minute)

	_, err := s.Register("bob", "s1", map[string]interface{}{"email": "b@x.com"})
	require.NoError(t, err)
	first, err := store.GetUser("bob")
	require.NoError(t, err)

	_, err = s.Register("bob", "other", map[string]interface{}{"email": "evil@x.com"})
	require.Error(t, err)
	assert.Equal(t, KindConflict, kindOf(t, err))

	// stored record unchanged by the second call
	second, err := store.GetUser("bob")
	require.NoError(t, err)
	assert.Equal(t, first.Password, second.Password)
	assert.Equal(t, first.Profile, second.Profile)
}

func TestRegisterThenAuthenticate(t *testing.T) {
	s, _ := newTestSessions(t, time.Minute)

	tokenID, err := s.Register("bob", "s1", map[string]interface{}{"email": "b@x.com"})
	require.NoError(t, err)

	doc, err := s.Authenticate("bob", tokenID)
	require.NoError(t, err)
	assert.Equal(t, "bob", doc["_id"])
	assert.Equal(t, "b@x.com", doc["email"])
	assert.NotContains(t, doc, "pwd")
	assert.NotContains(t, doc, "password")
	assert.NotContains(t, doc, "Password")
}

func TestLoginUnknownUser(t *testing.T) {
	s, _ := newTestSessions(t, time.Minute)

	_, err := s.Login("nobody", "whatever")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, kindOf(t, err))
}

func TestLoginWrongOrMissingSecret(t *testing.T) {
	s, _ := newTestSessions(t, time.Minute)
	_, err := s.Register("bob", "s1", nil)
	require.NoError(t, err)

	_, err = s.Login("bob", "wrong")
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, kindOf(t, err))

	_, err = s.Login("bob", "")
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, kindOf(t, err))
}

func TestLoginAccumulatesDistinctTokens(t *testing.T) {
	s, _ := newTestSessions(t, time.Minute)

	first, err := s.Register("bob", "s1", nil)
	require.NoError(t, err)

	second, err := s.Login("bob", "s1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	third, err := s.Login("bob", "s1")
	require.NoError(t, err)
	assert.NotEqual(t, second, third)

	// older tokens stay valid until they age out
	for _, tok := range []string{first, second, third} {
		_, err := s.Authenticate("bob", tok)
		assert.NoError(t, err)
	}
}

func TestAuthenticateExpiryBoundary(t *testing.T) {
	s, _ := newTestSessions(t, 30*time.Second)
	base := time.Now()
	s.now = func() time.Time { return base }

	tokenID, err := s.Register("bob", "s1", nil)
	require.NoError(t, err)

	// just under the window admits
	s.now = func() time.Time { return base.Add(30*time.Second - time.Millisecond) }
	_, err = s.Authenticate("bob", tokenID)
	require.NoError(t, err)

	// age exactly equal to the window rejects
	s.now = func() time.Time { return base.Add(30 * time.Second) }
	_, err = s.Authenticate("bob", tokenID)
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, kindOf(t, err))

	// and stays rejected forever after
	s.now = func() time.Time { return base.Add(time.Hour) }
	_, err = s.Authenticate("bob", tokenID)
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, kindOf(t, err))
}

func TestAuthenticateFreshLoginAfterExpiry(t *testing.T) {
	s, _ := newTestSessions(t, 30*time.Second)
	base := time.Now()
	s.now = func() time.Time { return base }

	stale, err := s.Register("bob", "s1", nil)
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(time.Minute) }
	_, err = s.Authenticate("bob", stale)
	require.Error(t, err)

	fresh, err := s.Login("bob", "s1")
	require.NoError(t, err)
	_, err = s.Authenticate("bob", fresh)
	assert.NoError(t, err)
}

func TestAuthenticateNoTokensEverIssued(t *testing.T) {
	s, store := newTestSessions(t, time.Minute)

	// create the credential directly so no token was ever minted
	hash, err := hashPassword("s1")
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(&User{ID: "bob", Password: hash, Profile: map[string]interface{}{}}))

	_, err = s.Authenticate("bob", "no-such-token")
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, kindOf(t, err))
}

func TestAuthenticateCrossUserToken(t *testing.T) {
	s, _ := newTestSessions(t, time.Minute)

	bobToken, err := s.Register("bob", "s1", nil)
	require.NoError(t, err)
	_, err = s.Register("alice", "s2", nil)
	require.NoError(t, err)

	// bob's token presented against alice resolves as unauthorized,
	// indistinguishable from an unknown token id
	_, err = s.Authenticate("alice", bobToken)
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, kindOf(t, err))
}

func TestAuthenticateUnknownIdentity(t *testing.T) {
	s, _ := newTestSessions(t, time.Minute)

	_, err := s.Authenticate("nobody", "some-token")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, kindOf(t, err))
}

func TestAuthenticateMissingToken(t *testing.T) {
	s, _ := newTestSessions(t, time.Minute)
	_, err := s.Register("bob", "s1", nil)
	require.NoError(t, err)

	_, err = s.Authenticate("bob", "")
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, kindOf(t, err))
}
