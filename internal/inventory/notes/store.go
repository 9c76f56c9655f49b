package notes

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type Store struct{ db *sql.DB }

func NewStore(d *sql.DB) *Store { return &Store{db: d} }

const noteCols = `
note_id, note_ulid, person_name, person_number, person_type, section_course,
note_type, description, equipment_id, consumable_id, status,
resolved_at, resolved_by, created_by, created_at`

func scanNote(row interface{ Scan(...any) error }) (*StudentNote, error) {
	var n StudentNote
	var equipmentID, consumableID sql.NullInt64
	var resolvedAt sql.NullTime
	var resolvedBy sql.NullString
	err := row.Scan(
		&n.NoteID, &n.NoteULID, &n.PersonName, &n.PersonNumber, &n.PersonType, &n.SectionCourse,
		&n.NoteType, &n.Description, &equipmentID, &consumableID, &n.Status,
		&resolvedAt, &resolvedBy, &n.CreatedBy, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if equipmentID.Valid {
		v := equipmentID.Int64
		n.EquipmentID = &v
	}
	if consumableID.Valid {
		v := consumableID.Int64
		n.ConsumableID = &v
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		n.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		v := resolvedBy.String
		n.ResolvedBy = &v
	}
	return &n, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*StudentNote, error) {
	q := `SELECT` + noteCols + ` FROM student_note WHERE note_id = ?`
	n, err := scanNote(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("note not found")
	}
	return n, err
}

func (s *Store) Insert(ctx context.Context, n *StudentNote) error {
	const q = `
INSERT INTO student_note
(note_ulid, person_name, person_number, person_type, section_course, note_type, description,
 equipment_id, consumable_id, status, created_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		n.NoteULID, n.PersonName, n.PersonNumber, n.PersonType, n.SectionCourse, n.NoteType, n.Description,
		int64PtrOrNil(n.EquipmentID), int64PtrOrNil(n.ConsumableID), n.Status, n.CreatedBy, n.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	n.NoteID = id
	return nil
}

func (s *Store) Update(ctx context.Context, n *StudentNote) error {
	const q = `
UPDATE student_note SET
person_name = ?, person_number = ?, person_type = ?, section_course = ?,
note_type = ?, description = ?
WHERE note_id = ?`
	res, err := s.db.ExecContext(ctx, q,
		n.PersonName, n.PersonNumber, n.PersonType, n.SectionCourse,
		n.NoteType, n.Description,
		n.NoteID,
	)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("note not found")
	}
	return nil
}

// Resolve: pending のメモだけを resolved に遷移させる。
// WHERE status = 'pending' により二重解決は 0 行更新になる。
func (s *Store) Resolve(ctx context.Context, id int64, by string, at time.Time) (int64, error) {
	const q = `
UPDATE student_note SET status = ?, resolved_at = ?, resolved_by = ?
WHERE note_id = ? AND status = ?`
	res, err := s.db.ExecContext(ctx, q, StatusResolved, at, by, id, StatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM student_note WHERE note_id = ?`, id)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("note not found")
	}
	return nil
}

var noteSortable = map[string]string{
	"person_name":    "person_name",
	"person_type":    "person_type",
	"section_course": "section_course",
	"note_type":      "note_type",
	"status":         "status",
	"created_at":     "created_at",
	"resolved_at":    "resolved_at",
}

func (s *Store) List(ctx context.Context, f NoteFilter, p Page) ([]StudentNote, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if f.Q != "" {
		like := "%" + f.Q + "%"
		where += ` AND (person_name LIKE ? OR person_number LIKE ? OR section_course LIKE ? OR description LIKE ?)`
		args = append(args, like, like, like, like)
	}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.NoteType != "" {
		where += ` AND note_type = ?`
		args = append(args, f.NoteType)
	}

	col, ok := noteSortable[f.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.ToLower(f.Dir) == "asc" {
		dir = "ASC"
	}

	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	q := `SELECT` + noteCols + ` FROM student_note` + where +
		fmt.Sprintf(` ORDER BY %s %s, note_id ASC LIMIT ? OFFSET ?`, col, dir)
	qargs := append(append([]any{}, args...), p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, q, qargs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []StudentNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM student_note`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func int64PtrOrNil(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
