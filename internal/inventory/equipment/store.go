package equipment

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"LABIS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(d *sql.DB) *Store { return &Store{db: d} }

const equipmentCols = `
equipment_id, description, qty, date_purchased, serial_number, brand_name, model, remarks, location, barcode`

func scanEquipment(row interface{ Scan(...any) error }) (*Equipment, error) {
	var e Equipment
	var barcode sql.NullString
	err := row.Scan(
		&e.EquipmentID, &e.Description, &e.Qty, &e.DatePurchased, &e.SerialNumber,
		&e.BrandName, &e.Model, &e.Remarks, &e.Location, &barcode,
	)
	if err != nil {
		return nil, err
	}
	if barcode.Valid {
		v := barcode.String
		e.Barcode = &v
	}
	return &e, nil
}

func (s *Store) GetByID(ctx context.Context, dbx db.DBTX, id int64) (*Equipment, error) {
	q := `SELECT` + equipmentCols + ` FROM equipment WHERE equipment_id = ?`
	e, err := scanEquipment(dbx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("equipment not found")
	}
	return e, err
}

func (s *Store) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*Equipment, error) {
	q := `SELECT` + equipmentCols + ` FROM equipment WHERE equipment_id = ? FOR UPDATE`
	e, err := scanEquipment(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("equipment not found")
	}
	return e, err
}

func (s *Store) Insert(ctx context.Context, e *Equipment) error {
	const q = `
INSERT INTO equipment
(description, qty, date_purchased, serial_number, brand_name, model, remarks, location, barcode)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		e.Description, e.Qty, e.DatePurchased, e.SerialNumber, e.BrandName,
		e.Model, e.Remarks, e.Location, strPtrOrNil(e.Barcode),
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	e.EquipmentID = id
	return nil
}

func (s *Store) Update(ctx context.Context, e *Equipment) error {
	const q = `
UPDATE equipment SET
description = ?, qty = ?, date_purchased = ?, serial_number = ?, brand_name = ?,
model = ?, remarks = ?, location = ?, barcode = ?
WHERE equipment_id = ?`
	res, err := s.db.ExecContext(ctx, q,
		e.Description, e.Qty, e.DatePurchased, e.SerialNumber, e.BrandName,
		e.Model, e.Remarks, e.Location, strPtrOrNil(e.Barcode),
		e.EquipmentID,
	)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("equipment not found")
	}
	return nil
}

var equipmentSortable = map[string]string{
	"description":    "e.description",
	"qty":            "e.qty",
	"date_purchased": "e.date_purchased",
	"serial_number":  "e.serial_number",
	"brand_name":     "e.brand_name",
	"model":          "e.model",
	"location":       "e.location",
	"borrowed_out":   "borrowed_out",
}

type equipmentRow struct {
	Equipment
	BorrowedOut int
}

// List: 一覧には未返却の貸出数量合計を導出カラムとして付ける
func (s *Store) List(ctx context.Context, f EquipmentFilter, p Page) ([]equipmentRow, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if f.Q != "" {
		like := "%" + f.Q + "%"
		where += ` AND (e.description LIKE ? OR e.serial_number LIKE ? OR e.brand_name LIKE ? OR e.model LIKE ? OR e.location LIKE ?)`
		args = append(args, like, like, like, like, like)
	}

	col, ok := equipmentSortable[f.Sort]
	if !ok {
		col = "e.description"
	}
	dir := "ASC"
	if strings.ToLower(f.Dir) == "desc" {
		dir = "DESC"
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

	q := `
SELECT e.equipment_id, e.description, e.qty, e.date_purchased, e.serial_number,
e.brand_name, e.model, e.remarks, e.location, e.barcode,
COALESCE(b.borrowed_out, 0) AS borrowed_out
FROM equipment e
LEFT JOIN (
  SELECT equipment_id, SUM(quantity_borrowed) AS borrowed_out
  FROM borrow_log WHERE returned_at IS NULL GROUP BY equipment_id
) b ON b.equipment_id = e.equipment_id` + where +
		fmt.Sprintf(` ORDER BY %s %s, e.equipment_id ASC LIMIT ? OFFSET ?`, col, dir)
	qargs := append(append([]any{}, args...), p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, q, qargs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []equipmentRow
	for rows.Next() {
		var r equipmentRow
		var barcode sql.NullString
		if err := rows.Scan(
			&r.EquipmentID, &r.Description, &r.Qty, &r.DatePurchased, &r.SerialNumber,
			&r.BrandName, &r.Model, &r.Remarks, &r.Location, &barcode,
			&r.BorrowedOut,
		); err != nil {
			return nil, 0, err
		}
		if barcode.Valid {
			v := barcode.String
			r.Barcode = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM equipment e`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Delete: 依存する貸出ログ・整備記録・ノートごと消す
func (s *Store) Delete(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM borrow_log WHERE equipment_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM equipment_maintenance WHERE equipment_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_note WHERE equipment_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM equipment WHERE equipment_id = ?`, id)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("equipment not found")
	}
	return nil
}

// ---- borrow_log ----

const borrowCols = `
borrow_id, borrow_ulid, equipment_id, borrower_name, borrower_type, section_course, purpose,
quantity_borrowed, borrowed_at, returned_at`

func scanBorrow(row interface{ Scan(...any) error }) (*BorrowLog, error) {
	var b BorrowLog
	var returnedAt sql.NullTime
	err := row.Scan(
		&b.BorrowID, &b.BorrowULID, &b.EquipmentID, &b.BorrowerName, &b.BorrowerType,
		&b.SectionCourse, &b.Purpose, &b.QuantityBorrowed, &b.BorrowedAt, &returnedAt,
	)
	if err != nil {
		return nil, err
	}
	if returnedAt.Valid {
		t := returnedAt.Time
		b.ReturnedAt = &t
	}
	return &b, nil
}

func (s *Store) InsertBorrow(ctx context.Context, dbx db.DBTX, b *BorrowLog) error {
	const q = `
INSERT INTO borrow_log
(borrow_ulid, equipment_id, borrower_name, borrower_type, section_course, purpose, quantity_borrowed, borrowed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := dbx.ExecContext(ctx, q,
		b.BorrowULID, b.EquipmentID, b.BorrowerName, b.BorrowerType, b.SectionCourse,
		b.Purpose, b.QuantityBorrowed, b.BorrowedAt,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	b.BorrowID = id
	return nil
}

func (s *Store) GetBorrowForUpdate(ctx context.Context, tx *sql.Tx, borrowID int64) (*BorrowLog, error) {
	q := `SELECT` + borrowCols + ` FROM borrow_log WHERE borrow_id = ? FOR UPDATE`
	b, err := scanBorrow(tx.QueryRowContext(ctx, q, borrowID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("borrow log not found")
	}
	return b, err
}

// CloseBorrow: returned_at を1回だけ立てる。二重クローズは 0 行更新。
func (s *Store) CloseBorrow(ctx context.Context, dbx db.DBTX, borrowID int64, at time.Time) (int64, error) {
	const q = `UPDATE borrow_log SET returned_at = ? WHERE borrow_id = ? AND returned_at IS NULL`
	res, err := dbx.ExecContext(ctx, q, at, borrowID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var borrowSortable = map[string]string{
	"borrower_name":     "b.borrower_name",
	"borrower_type":     "b.borrower_type",
	"section_course":    "b.section_course",
	"purpose":           "b.purpose",
	"equipment":         "e.description",
	"quantity_borrowed": "b.quantity_borrowed",
	"borrowed_at":       "b.borrowed_at",
	"returned_at":       "b.returned_at",
}

type borrowRow struct {
	BorrowLog
	EquipmentName string
}

func (s *Store) ListBorrows(ctx context.Context, f BorrowFilter, p Page) ([]borrowRow, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if f.Q != "" {
		like := "%" + f.Q + "%"
		where += ` AND (b.borrower_name LIKE ? OR b.borrower_type LIKE ? OR b.section_course LIKE ? OR b.purpose LIKE ? OR e.description LIKE ?)`
		args = append(args, like, like, like, like, like)
	}
	if f.EquipmentID != nil {
		where += ` AND b.equipment_id = ?`
		args = append(args, *f.EquipmentID)
	}
	if f.OpenOnly {
		where += ` AND b.returned_at IS NULL`
	}

	col, ok := borrowSortable[f.Sort]
	if !ok {
		col = "b.borrowed_at"
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

	base := `
FROM borrow_log b
LEFT JOIN equipment e ON e.equipment_id = b.equipment_id`

	q := `SELECT b.borrow_id, b.borrow_ulid, b.equipment_id, b.borrower_name, b.borrower_type,
b.section_course, b.purpose, b.quantity_borrowed, b.borrowed_at, b.returned_at,
COALESCE(e.description, '')` + base + where +
		fmt.Sprintf(` ORDER BY %s %s LIMIT ? OFFSET ?`, col, dir)
	qargs := append(append([]any{}, args...), p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, q, qargs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []borrowRow
	for rows.Next() {
		var r borrowRow
		var returnedAt sql.NullTime
		if err := rows.Scan(
			&r.BorrowID, &r.BorrowULID, &r.EquipmentID, &r.BorrowerName, &r.BorrowerType,
			&r.SectionCourse, &r.Purpose, &r.QuantityBorrowed, &r.BorrowedAt,
			&returnedAt, &r.EquipmentName,
		); err != nil {
			return nil, 0, err
		}
		if returnedAt.Valid {
			t := returnedAt.Time
			r.ReturnedAt = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+base+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ---- student_note（返却時の破損・紛失メモ） ----

func (s *Store) insertIncidentNote(ctx context.Context, dbx db.DBTX, noteULID string, b *BorrowLog, noteType, description, createdBy string, at time.Time) error {
	const q = `
INSERT INTO student_note
(note_ulid, person_name, person_number, person_type, section_course, note_type, description,
 equipment_id, consumable_id, status, created_by, created_at)
VALUES (?, ?, '', ?, ?, ?, ?, ?, NULL, 'pending', ?, ?)`
	_, err := dbx.ExecContext(ctx, q,
		noteULID, b.BorrowerName, b.BorrowerType, b.SectionCourse, noteType, description,
		b.EquipmentID, createdBy, at,
	)
	return err
}

func strPtrOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
