package main

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"
)

// Postgres store adapter. Tables are created by migrations (see
// migrations/); Init only verifies connectivity.
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	p := &PostgresStore{db: d, dsn: dsn}
	if err := p.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresStore) Init() error {
	return p.db.Ping()
}

func isPostgresDuplicate(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (p *PostgresStore) CreateUser(u *User) error {
	if u.Profile == nil {
		u.Profile = map[string]interface{}{}
	}
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(`INSERT INTO users(id,password,profile,created_at) VALUES($1,$2,$3,now())`,
		u.ID, u.Password, string(profile))
	if isPostgresDuplicate(err) {
		return ErrDuplicateKey
	}
	return err
}

func (p *PostgresStore) GetUser(id string) (*User, error) {
	row := p.db.QueryRow(`SELECT id,password,profile FROM users WHERE id = $1`, id)
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

func (p *PostgresStore) UpdateUser(id string, fields map[string]interface{}) (int64, error) {
	u, err := p.GetUser(id)
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
	res, err := p.db.Exec(`UPDATE users SET profile = $1 WHERE id = $2`, string(profile), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *PostgresStore) DeleteUser(id string) error {
	_, err := p.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	return err
}

func (p *PostgresStore) CreateToken(t *Token) error {
	_, err := p.db.Exec(`INSERT INTO tokens(id,user_id,issued_at_ms,created_at) VALUES($1,$2,$3,now())`,
		t.ID, t.UserID, t.Timestamp)
	return err
}

func (p *PostgresStore) GetTokenByIDAndUser(tokenID, userID string) (*Token, error) {
	row := p.db.QueryRow(`SELECT id,user_id,issued_at_ms FROM tokens WHERE id = $1 AND user_id = $2`, tokenID, userID)
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
func (p *PostgresStore) close() error { return p.db.Close() }
func (p *PostgresStore) ping() bool   { return p.db.Ping() == nil }
