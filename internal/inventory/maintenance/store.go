package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"LABIS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(d *sql.DB) *Store { return &Store{db: d} }

const maintenanceCols = `
m.maintenance_id, m.maintenance_ulid, m.equipment_id, m.maintenance_type,
m.scheduled_date, m.completed_date, m.status, m.cost, m.performed_by, m.notes,
m.created_by, m.created_at`

type maintenanceRow struct {
	Maintenance
	EquipmentName string
}

func scanMaintenance(row interface{ Scan(...any) error }) (*maintenanceRow, error) {
	var r maintenanceRow
	var completed sql.NullString
	err := row.Scan(
		&r.MaintenanceID, &r.MaintenanceULID, &r.EquipmentID, &r.MaintenanceType,
		&r.ScheduledDate, &completed, &r.Status, &r.Cost, &r.PerformedBy, &r.Notes,
		&r.CreatedBy, &r.CreatedAt, &r.EquipmentName,
	)
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		v := completed.String
		r.CompletedDate = &v
	}
	return &r, nil
}

const maintenanceBase = `
FROM equipment_maintenance m
LEFT JOIN equipment e ON e.equipment_id = m.equipment_id`

func (s *Store) GetByID(ctx context.Context, dbx db.DBTX, id int64) (*maintenanceRow, error) {
	q := `SELECT` + maintenanceCols + `, COALESCE(e.description, '')` + maintenanceBase + ` WHERE m.maintenance_id = ?`
	r, err := scanMaintenance(dbx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("maintenance record not found")
	}
	return r, err
}

func (s *Store) equipmentExists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM equipment WHERE equipment_id = ?`, id).Scan(&n)
	return n > 0, err
}

func (s *Store) Insert(ctx context.Context, m *Maintenance) error {
	const q = `
INSERT INTO equipment_maintenance
(maintenance_ulid, equipment_id, maintenance_type, scheduled_date, completed_date,
 status, cost, performed_by, notes, created_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		m.MaintenanceULID, m.EquipmentID, m.MaintenanceType, m.ScheduledDate, strPtrOrNil(m.CompletedDate),
		m.Status, m.Cost, m.PerformedBy, m.Notes, m.CreatedBy, m.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	m.MaintenanceID = id
	return nil
}

func (s *Store) Update(ctx context.Context, m *Maintenance) error {
	const q = `
UPDATE equipment_maintenance SET
maintenance_type = ?, scheduled_date = ?, completed_date = ?, status = ?,
cost = ?, performed_by = ?, notes = ?
WHERE maintenance_id = ?`
	res, err := s.db.ExecContext(ctx, q,
		m.MaintenanceType, m.ScheduledDate, strPtrOrNil(m.CompletedDate), m.Status,
		m.Cost, m.PerformedBy, m.Notes,
		m.MaintenanceID,
	)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("maintenance record not found")
	}
	return nil
}

// UpdateStatus: 読み取り時に導出し直したステータスのキャッシュ書き戻し
func (s *Store) UpdateStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE equipment_maintenance SET status = ? WHERE maintenance_id = ?`, status, id)
	return err
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM equipment_maintenance WHERE maintenance_id = ?`, id)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("maintenance record not found")
	}
	return nil
}

var maintenanceSortable = map[string]string{
	"equipment":        "e.description",
	"maintenance_type": "m.maintenance_type",
	"scheduled_date":   "m.scheduled_date",
	"completed_date":   "m.completed_date",
	"status":           "m.status",
	"cost":             "m.cost",
	"performed_by":     "m.performed_by",
	"created_at":       "m.created_at",
}

func (s *Store) List(ctx context.Context, f MaintenanceFilter, p Page) ([]maintenanceRow, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if f.Q != "" {
		like := "%" + f.Q + "%"
		where += ` AND (e.description LIKE ? OR m.maintenance_type LIKE ? OR m.performed_by LIKE ? OR m.notes LIKE ?)`
		args = append(args, like, like, like, like)
	}
	if f.EquipmentID != nil {
		where += ` AND m.equipment_id = ?`
		args = append(args, *f.EquipmentID)
	}
	if f.Status != "" {
		where += ` AND m.status = ?`
		args = append(args, f.Status)
	}

	col, ok := maintenanceSortable[f.Sort]
	if !ok {
		col = "m.scheduled_date"
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

	q := `SELECT` + maintenanceCols + `, COALESCE(e.description, '')` + maintenanceBase + where +
		fmt.Sprintf(` ORDER BY %s %s, m.maintenance_id ASC LIMIT ? OFFSET ?`, col, dir)
	qargs := append(append([]any{}, args...), p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, q, qargs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []maintenanceRow
	for rows.Next() {
		r, err := scanMaintenance(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+maintenanceBase+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func strPtrOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
