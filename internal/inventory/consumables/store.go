package consumables

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"LABIS-backend/internal/platform/db"
)

// ConsumableStore は Service が依存する永続化層。実体は *Store。
type ConsumableStore interface {
	GetByID(ctx context.Context, dbx db.DBTX, id int64) (*Consumable, error)
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*Consumable, error)
	ListByDescriptionForUpdate(ctx context.Context, tx *sql.Tx, description string) ([]*Consumable, error)
	Insert(ctx context.Context, c *Consumable) error
	Update(ctx context.Context, dbx db.DBTX, c *Consumable) error
	UpdateStock(ctx context.Context, dbx db.DBTX, c *Consumable) error
	List(ctx context.Context, f ConsumableFilter, p Page) ([]Consumable, int64, error)
	ListAll(ctx context.Context, f ConsumableFilter) ([]Consumable, error)
	Delete(ctx context.Context, tx *sql.Tx, id int64) error
	InsertUsage(ctx context.Context, dbx db.DBTX, u *UsageLog) error
	GetUsageForUpdate(ctx context.Context, tx *sql.Tx, usageID int64) (*UsageLog, error)
	CloseUsage(ctx context.Context, dbx db.DBTX, usageID int64, at time.Time, qty int) (int64, error)
	ListUsage(ctx context.Context, f UsageFilter, p Page) ([]usageRow, int64, error)
	insertIncidentNote(ctx context.Context, dbx db.DBTX, noteULID string, u *UsageLog, noteType, description, createdBy string, at time.Time) error
}

type Store struct{ db *sql.DB }

func NewStore(d *sql.DB) *Store { return &Store{db: d} }

func (s *Store) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, opts)
}

const consumableCols = `
consumable_id, description, unit, expiration, lot_number, date_received, barcode,
items_out, items_on_stock, balance_stock, previous_month_stock,
units_consumed, units_expired, is_returnable`

func scanConsumable(row interface{ Scan(...any) error }) (*Consumable, error) {
	var c Consumable
	var barcode sql.NullString
	var unitsExpired sql.NullInt64
	err := row.Scan(
		&c.ConsumableID, &c.Description, &c.Unit, &c.Expiration, &c.LotNumber, &c.DateReceived, &barcode,
		&c.ItemsOut, &c.ItemsOnStock, &c.BalanceStock, &c.PreviousMonthStock,
		&c.UnitsConsumed, &unitsExpired, &c.IsReturnable,
	)
	if err != nil {
		return nil, err
	}
	if barcode.Valid {
		v := barcode.String
		c.Barcode = &v
	}
	if unitsExpired.Valid {
		v := int(unitsExpired.Int64)
		c.UnitsExpired = &v
	}
	return &c, nil
}

func (s *Store) GetByID(ctx context.Context, dbx db.DBTX, id int64) (*Consumable, error) {
	q := `SELECT` + consumableCols + ` FROM consumable WHERE consumable_id = ?`
	c, err := scanConsumable(dbx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("consumable not found")
	}
	return c, err
}

// GetByIDForUpdate: 在庫更新の起点となる行ロック
func (s *Store) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*Consumable, error) {
	q := `SELECT` + consumableCols + ` FROM consumable WHERE consumable_id = ? FOR UPDATE`
	c, err := scanConsumable(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("consumable not found")
	}
	return c, err
}

// ListByDescriptionForUpdate: description グループ全ロットをロックして返す。
// FIFO消費は同一グループ内の複数行を跨いで在庫を減らすため、
// グループ単位で直列化する。
func (s *Store) ListByDescriptionForUpdate(ctx context.Context, tx *sql.Tx, description string) ([]*Consumable, error) {
	q := `SELECT` + consumableCols + ` FROM consumable WHERE description = ? ORDER BY consumable_id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, description)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Consumable
	for rows.Next() {
		c, err := scanConsumable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Insert(ctx context.Context, c *Consumable) error {
	const q = `
INSERT INTO consumable
(description, unit, expiration, lot_number, date_received, barcode,
 items_out, items_on_stock, balance_stock, previous_month_stock,
 units_consumed, units_expired, is_returnable)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		c.Description, c.Unit, c.Expiration, c.LotNumber, c.DateReceived, strPtrOrNil(c.Barcode),
		c.ItemsOut, c.ItemsOnStock, c.BalanceStock, c.PreviousMonthStock,
		c.UnitsConsumed, intPtrOrNil(c.UnitsExpired), c.IsReturnable,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	c.ConsumableID = id
	return nil
}

func (s *Store) Update(ctx context.Context, dbx db.DBTX, c *Consumable) error {
	const q = `
UPDATE consumable SET
description = ?, unit = ?, expiration = ?, lot_number = ?, date_received = ?, barcode = ?,
items_out = ?, items_on_stock = ?, balance_stock = ?, previous_month_stock = ?,
units_consumed = ?, units_expired = ?, is_returnable = ?
WHERE consumable_id = ?`
	res, err := dbx.ExecContext(ctx, q,
		c.Description, c.Unit, c.Expiration, c.LotNumber, c.DateReceived, strPtrOrNil(c.Barcode),
		c.ItemsOut, c.ItemsOnStock, c.BalanceStock, c.PreviousMonthStock,
		c.UnitsConsumed, intPtrOrNil(c.UnitsExpired), c.IsReturnable,
		c.ConsumableID,
	)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("consumable not found")
	}
	return nil
}

// UpdateStock: 消費・返却で触る量フィールドと導出値だけを書き戻す
func (s *Store) UpdateStock(ctx context.Context, dbx db.DBTX, c *Consumable) error {
	const q = `
UPDATE consumable SET
items_out = ?, items_on_stock = ?, balance_stock = ?, previous_month_stock = ?, units_consumed = ?
WHERE consumable_id = ?`
	_, err := dbx.ExecContext(ctx, q,
		c.ItemsOut, c.ItemsOnStock, c.BalanceStock, c.PreviousMonthStock, c.UnitsConsumed,
		c.ConsumableID,
	)
	return err
}

// ソート可能カラムのホワイトリスト（それ以外は description にフォールバック）
var consumableSortable = map[string]string{
	"description":          "description",
	"balance_stock":        "balance_stock",
	"unit":                 "unit",
	"is_returnable":        "is_returnable",
	"expiration":           "expiration",
	"lot_number":           "lot_number",
	"date_received":        "date_received",
	"items_out":            "items_out",
	"items_on_stock":       "items_on_stock",
	"previous_month_stock": "previous_month_stock",
	"units_consumed":       "units_consumed",
	"units_expired":        "units_expired",
}

// consumableFilterSQL: 検索条件とソート句を組み立てる（List / ListAll 共用）
func consumableFilterSQL(f ConsumableFilter) (where string, args []any, order string) {
	where = ` WHERE 1=1`
	if f.Q != "" {
		like := "%" + f.Q + "%"
		where += ` AND (description LIKE ? OR unit LIKE ? OR expiration LIKE ? OR lot_number LIKE ?)`
		args = append(args, like, like, like, like)
	}

	col, ok := consumableSortable[f.Sort]
	if !ok {
		col = "description"
	}
	dir := "ASC"
	if strings.ToLower(f.Dir) == "desc" {
		dir = "DESC"
	}
	order = fmt.Sprintf(` ORDER BY %s %s, consumable_id ASC`, col, dir)
	return where, args, order
}

func (s *Store) List(ctx context.Context, f ConsumableFilter, p Page) ([]Consumable, int64, error) {
	where, args, order := consumableFilterSQL(f)

	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	q := `SELECT` + consumableCols + ` FROM consumable` + where + order + ` LIMIT ? OFFSET ?`
	qargs := append(append([]any{}, args...), p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, q, qargs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Consumable
	for rows.Next() {
		c, err := scanConsumable(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM consumable`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListAll: CSVエクスポート用。検索・ソート条件だけ反映してページングせず全行返す。
func (s *Store) ListAll(ctx context.Context, f ConsumableFilter) ([]Consumable, error) {
	where, args, order := consumableFilterSQL(f)

	q := `SELECT` + consumableCols + ` FROM consumable` + where + order
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Consumable
	for rows.Next() {
		c, err := scanConsumable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Delete: 依存する消費ログ・ノートごと消す（FK対策）
func (s *Store) Delete(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM usage_log WHERE consumable_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_note WHERE consumable_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM consumable WHERE consumable_id = ?`, id)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("consumable not found")
	}
	return nil
}

// ---- usage_log ----

func (s *Store) InsertUsage(ctx context.Context, dbx db.DBTX, u *UsageLog) error {
	const q = `
INSERT INTO usage_log
(usage_ulid, consumable_id, user_name, user_type, section_course, purpose, quantity_used, used_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := dbx.ExecContext(ctx, q,
		u.UsageULID, u.ConsumableID, u.UserName, u.UserType, u.SectionCourse, u.Purpose,
		u.QuantityUsed, u.UsedAt,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	u.UsageID = id
	return nil
}

func scanUsage(row interface{ Scan(...any) error }) (*UsageLog, error) {
	var u UsageLog
	var returnedAt sql.NullTime
	var quantityReturned sql.NullInt64
	err := row.Scan(
		&u.UsageID, &u.UsageULID, &u.ConsumableID, &u.UserName, &u.UserType,
		&u.SectionCourse, &u.Purpose, &u.QuantityUsed, &u.UsedAt,
		&returnedAt, &quantityReturned,
	)
	if err != nil {
		return nil, err
	}
	if returnedAt.Valid {
		t := returnedAt.Time
		u.ReturnedAt = &t
	}
	if quantityReturned.Valid {
		v := int(quantityReturned.Int64)
		u.QuantityReturned = &v
	}
	return &u, nil
}

const usageCols = `
usage_id, usage_ulid, consumable_id, user_name, user_type, section_course, purpose,
quantity_used, used_at, returned_at, quantity_returned`

func (s *Store) GetUsageForUpdate(ctx context.Context, tx *sql.Tx, usageID int64) (*UsageLog, error) {
	q := `SELECT` + usageCols + ` FROM usage_log WHERE usage_id = ? FOR UPDATE`
	u, err := scanUsage(tx.QueryRowContext(ctx, q, usageID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("usage log not found")
	}
	return u, err
}

// CloseUsage: returned_at / quantity_returned を1回だけ立てる。
// WHERE returned_at IS NULL により二重クローズは 0 行更新になる。
func (s *Store) CloseUsage(ctx context.Context, dbx db.DBTX, usageID int64, at time.Time, qty int) (int64, error) {
	const q = `
UPDATE usage_log SET returned_at = ?, quantity_returned = ?
WHERE usage_id = ? AND returned_at IS NULL`
	res, err := dbx.ExecContext(ctx, q, at, qty, usageID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var usageSortable = map[string]string{
	"user_name":      "u.user_name",
	"user_type":      "u.user_type",
	"section_course": "u.section_course",
	"purpose":        "u.purpose",
	"consumable":     "c.description",
	"quantity_used":  "u.quantity_used",
	"used_at":        "u.used_at",
	"returned_at":    "u.returned_at",
}

type usageRow struct {
	UsageLog
	ConsumableName string
}

func (s *Store) ListUsage(ctx context.Context, f UsageFilter, p Page) ([]usageRow, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if f.Q != "" {
		like := "%" + f.Q + "%"
		where += ` AND (u.user_name LIKE ? OR u.user_type LIKE ? OR u.section_course LIKE ? OR u.purpose LIKE ? OR c.description LIKE ?)`
		args = append(args, like, like, like, like, like)
	}
	if f.ConsumableID != nil {
		where += ` AND u.consumable_id = ?`
		args = append(args, *f.ConsumableID)
	}
	if f.OpenOnly {
		where += ` AND u.returned_at IS NULL`
	}

	col, ok := usageSortable[f.Sort]
	if !ok {
		col = "u.used_at"
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
FROM usage_log u
LEFT JOIN consumable c ON c.consumable_id = u.consumable_id`

	q := `SELECT u.usage_id, u.usage_ulid, u.consumable_id, u.user_name, u.user_type,
u.section_course, u.purpose, u.quantity_used, u.used_at, u.returned_at, u.quantity_returned,
COALESCE(c.description, '')` + base + where +
		fmt.Sprintf(` ORDER BY %s %s LIMIT ? OFFSET ?`, col, dir)
	qargs := append(append([]any{}, args...), p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, q, qargs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []usageRow
	for rows.Next() {
		var r usageRow
		var returnedAt sql.NullTime
		var quantityReturned sql.NullInt64
		if err := rows.Scan(
			&r.UsageID, &r.UsageULID, &r.ConsumableID, &r.UserName, &r.UserType,
			&r.SectionCourse, &r.Purpose, &r.QuantityUsed, &r.UsedAt,
			&returnedAt, &quantityReturned, &r.ConsumableName,
		); err != nil {
			return nil, 0, err
		}
		if returnedAt.Valid {
			t := returnedAt.Time
			r.ReturnedAt = &t
		}
		if quantityReturned.Valid {
			v := int(quantityReturned.Int64)
			r.QuantityReturned = &v
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

// ---- student_note（返却時の破損・紛失メモ。作成のみ、管理は notes パッケージ） ----

func (s *Store) insertIncidentNote(ctx context.Context, dbx db.DBTX, noteULID string, u *UsageLog, noteType, description, createdBy string, at time.Time) error {
	const q = `
INSERT INTO student_note
(note_ulid, person_name, person_number, person_type, section_course, note_type, description,
 equipment_id, consumable_id, status, created_by, created_at)
VALUES (?, ?, '', ?, ?, ?, ?, NULL, ?, 'pending', ?, ?)`
	_, err := dbx.ExecContext(ctx, q,
		noteULID, u.UserName, u.UserType, u.SectionCourse, noteType, description,
		u.ConsumableID, createdBy, at,
	)
	return err
}

func strPtrOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtrOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
