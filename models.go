package main

import "time"

// User is a credential record. ID is the externally supplied identity and
// never changes after creation. Password holds the bcrypt digest of the
// user's secret; it is read only for comparison and never returned to a
// caller. Profile carries whatever extra fields were supplied at
// registration.
type User struct {
	ID        string
	Password  string
	Profile   map[string]interface{}
	CreatedAt time.Time
}

// Token is an issued bearer token. Tokens are immutable once minted and are
// never deleted by the protocol; a token stops being usable once its age
// reaches the configured timeout, but the record stays around.
type Token struct {
	ID        string
	UserID    string
	Timestamp int64 // issuance time, milliseconds since epoch
	CreatedAt time.Time
}

// PublicDoc is the caller-facing view of a user: the identity under "_id"
// plus the profile fields, with the password digest stripped.
func (u *User) PublicDoc() map[string]interface{} {
	doc := make(map[string]interface{}, len(u.Profile)+1)
	for k, v := range u.Profile {
		doc[k] = v
	}
	doc["_id"] = u.ID
	return doc
}
