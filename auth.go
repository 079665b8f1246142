package main

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// hashPassword produces the salted one-way digest persisted in the
// credential record. The plaintext is never stored or logged.
func hashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	return string(b), err
}

// comparePassword verifies a plaintext secret against a stored digest.
// Digests are never compared for equality directly.
func comparePassword(hash, p string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}

// newTokenID mints a globally unique token id.
func newTokenID() string {
	return uuid.NewString()
}
