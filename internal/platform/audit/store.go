package audit

import (
	"context"
	"database/sql"
	"time"
)

// audit_log テーブルの1行。details はリクエストの要約文字列。
type Entry struct {
	UserID    string
	Action    string
	Details   string
	IPAddress string
	Timestamp time.Time
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Insert(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO audit_log (user_id, action, details, ip_address, timestamp)
VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, nilIfEmpty(e.UserID), e.Action, e.Details, e.IPAddress, e.Timestamp)
	return err
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
