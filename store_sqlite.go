package main

import (
	"database/sql"
	"encoding/json"
	"strings"
)

// SQLite store adapter. Profile payloads are persisted as a JSON text
// column, giving the same document semantics as the other adapters.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: d, path: path}
	if err := s.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (id TEXT PRIMARY KEY, password TEXT NOT NULL, profile TEXT NOT NULL DEFAULT '{}', created_at TEXT);`,
		`CREATE TABLE IF NOT EXISTS tokens (id TEXT PRIMARY KEY, user_id TEXT NOT NULL, issued_at_ms INTEGER NOT NULL, created_at TEXT);`,
		`CREATE INDEX IF NOT EXISTS tokens_user_id_idx ON tokens(user_id);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func isSQLiteDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) CreateUser(u *User) error {
	if u.Profile == nil {
		u.Profile = map[string]interface{}{}
	}
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO users(id,password,profile,created_at) VALUES(?,?,?,datetime('now'))`,
		u.ID, u.Password, string(profile))
	if isSQLiteDuplicate(err) {
		return ErrDuplicateKey
	}
	return err
}

func (s *SQLiteStore) GetUser(id string) (*User, error) {
	row := s.db.QueryRow(`SELECT id,password,profile FROM users WHERE id = ?`, id)
	var u User
	var profile string
	if err := row.Scan(&u.ID, &u.Password, &profile); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(profile), &u.Profile); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLiteStore) UpdateUser(id string, fields map[string]interface{}) (int64, error) {
	u, err := s.GetUser(id)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, nil
	}
	for k, v := range fields {
		u.Profile[k] = v
	}
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(`UPDATE users SET profile = ? WHERE id = ?`, string(profile), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) DeleteUser(id string) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) CreateToken(t *Token) error {
	_, err := s.db.Exec(`INSERT INTO tokens(id,user_id,issued_at_ms,created_at) VALUES(?,?,?,datetime('now'))`,
		t.ID, t.UserID, t.Timestamp)
	return err
}

func (s *SQLiteStore) GetTokenByIDAndUser(tokenID, userID string) (*Token, error) {
	row := s.db.QueryRow(`SELECT id,user_id,issued_at_ms FROM tokens WHERE id = ? AND user_id = ?`, tokenID, userID)
	var t Token
	if err := row.Scan(&t.ID, &t.UserID, &t.Timestamp); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// lifecycle helpers
func (s *SQLiteStore) close() error { return s.db.Close() }
func (s *SQLiteStore) ping() bool   { return s.db.Ping() == nil }
