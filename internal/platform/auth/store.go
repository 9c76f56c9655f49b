package auth

import (
	"context"
	"database/sql"
	"errors"
)

type User struct {
	Username     string
	PasswordHash string
	Role         string
	IsDisabled   bool
	CreatedAt    string
}

type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
	Delete(ctx context.Context, username string) (int64, error)
	List(ctx context.Context) ([]User, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) UserStore {
	return &Store{db: db}
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*User, error) {
	const q = `
SELECT username, password_hash, role, is_disabled, created_at
FROM users
WHERE username = ?
LIMIT 1
`
	var u User
	var isDisabledInt int
	err := s.db.QueryRowContext(ctx, q, username).Scan(
		&u.Username,
		&u.PasswordHash,
		&u.Role,
		&isDisabledInt,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if isDisabledInt != 0 {
		u.IsDisabled = true
	}
	return &u, nil
}

func (s *Store) Create(ctx context.Context, u *User) error {
	const q = `
INSERT INTO users (username, password_hash, role, is_disabled, created_at)
VALUES (?, ?, ?, 0, NOW(6))
`
	_, err := s.db.ExecContext(ctx, q, u.Username, u.PasswordHash, u.Role)
	return err
}

func (s *Store) Delete(ctx context.Context, username string) (int64, error) {
	const q = `DELETE FROM users WHERE username = ?`
	res, err := s.db.ExecContext(ctx, q, username)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) List(ctx context.Context) ([]User, error) {
	const q = `
SELECT username, password_hash, role, is_disabled, created_at
FROM users
ORDER BY created_at ASC
`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		var isDisabledInt int
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.Role, &isDisabledInt, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.IsDisabled = isDisabledInt != 0
		out = append(out, u)
	}
	return out, rows.Err()
}
