package maintenance

import (
	"context"
	"crypto/rand"
	"database/sql"
	"log"
	"strconv"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"
)

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

type Service struct {
	db    *sql.DB
	store *Store
	clock Clock
	id    IDGen
}

func NewService(d *sql.DB) *Service {
	return &Service{db: d, store: NewStore(d), clock: realClock{}, id: ulidGen{}}
}

var validTypes = map[string]bool{
	TypeCalibration: true,
	TypeRepair:      true,
	TypePreventive:  true,
	TypeInspection:  true,
}

func (s *Service) Create(ctx context.Context, actor string, req CreateMaintenanceRequest) (MaintenanceResponse, error) {
	mt := strings.ToLower(strings.TrimSpace(req.MaintenanceType))
	if !validTypes[mt] {
		return MaintenanceResponse{}, ErrInvalid("maintenance_type must be calibration, repair, preventive or inspection")
	}
	if strings.TrimSpace(req.ScheduledDate) == "" {
		return MaintenanceResponse{}, ErrInvalid("scheduled_date is required")
	}

	ok, err := s.store.equipmentExists(ctx, req.EquipmentID)
	if err != nil {
		return MaintenanceResponse{}, err
	}
	if !ok {
		return MaintenanceResponse{}, ErrNotFound("equipment not found")
	}

	now := s.clock.Now()
	m := &Maintenance{
		MaintenanceULID: s.id.NewULID(now),
		EquipmentID:     req.EquipmentID,
		MaintenanceType: mt,
		ScheduledDate:   req.ScheduledDate,
		CompletedDate:   req.CompletedDate,
		Cost:            toFloat(req.Cost, 0),
		PerformedBy:     req.PerformedBy,
		Notes:           req.Notes,
		CreatedBy:       actor,
		CreatedAt:       now,
	}
	m.Status = DeriveStatus(m.ScheduledDate, m.CompletedDate, now)

	if err := s.store.Insert(ctx, m); err != nil {
		return MaintenanceResponse{}, err
	}
	return m.toDTO(""), nil
}

func (s *Service) Get(ctx context.Context, id int64) (MaintenanceResponse, error) {
	r, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return MaintenanceResponse{}, err
	}
	s.refreshStatus(ctx, &r.Maintenance)
	return r.Maintenance.toDTO(r.EquipmentName), nil
}

func (s *Service) List(ctx context.Context, f MaintenanceFilter, p Page) ([]MaintenanceResponse, int64, error) {
	rows, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]MaintenanceResponse, 0, len(rows))
	for i := range rows {
		s.refreshStatus(ctx, &rows[i].Maintenance)
		out = append(out, rows[i].Maintenance.toDTO(rows[i].EquipmentName))
	}
	return out, total, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateMaintenanceRequest) (MaintenanceResponse, error) {
	r, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return MaintenanceResponse{}, err
	}
	m := &r.Maintenance

	if req.MaintenanceType != nil {
		mt := strings.ToLower(strings.TrimSpace(*req.MaintenanceType))
		if !validTypes[mt] {
			return MaintenanceResponse{}, ErrInvalid("maintenance_type must be calibration, repair, preventive or inspection")
		}
		m.MaintenanceType = mt
	}
	if req.ScheduledDate != nil {
		if strings.TrimSpace(*req.ScheduledDate) == "" {
			return MaintenanceResponse{}, ErrInvalid("scheduled_date must not be empty")
		}
		m.ScheduledDate = *req.ScheduledDate
	}
	if req.CompletedDate != nil {
		// 空文字は「完了を取り消す」
		if strings.TrimSpace(*req.CompletedDate) == "" {
			m.CompletedDate = nil
		} else {
			m.CompletedDate = req.CompletedDate
		}
	}
	if req.Cost != nil {
		m.Cost = toFloat(req.Cost, m.Cost)
	}
	if req.PerformedBy != nil {
		m.PerformedBy = *req.PerformedBy
	}
	if req.Notes != nil {
		m.Notes = *req.Notes
	}

	// 編集の都度、日付から導出し直す
	m.Status = DeriveStatus(m.ScheduledDate, m.CompletedDate, s.clock.Now())

	if err := s.store.Update(ctx, m); err != nil {
		return MaintenanceResponse{}, err
	}
	return m.toDTO(r.EquipmentName), nil
}

// Complete: completed_date を立てて completed に遷移させるショートカット
func (s *Service) Complete(ctx context.Context, id int64, req CompleteMaintenanceRequest) (MaintenanceResponse, error) {
	r, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return MaintenanceResponse{}, err
	}
	m := &r.Maintenance
	if m.CompletedDate != nil && *m.CompletedDate != "" {
		return MaintenanceResponse{}, ErrConflict("maintenance already completed")
	}

	now := s.clock.Now()
	date := now.Format(dateLayout)
	if req.CompletedDate != nil && strings.TrimSpace(*req.CompletedDate) != "" {
		date = *req.CompletedDate
	}
	m.CompletedDate = &date
	if req.Cost != nil {
		m.Cost = toFloat(req.Cost, m.Cost)
	}
	if req.PerformedBy != nil {
		m.PerformedBy = *req.PerformedBy
	}
	if req.Notes != nil {
		m.Notes = *req.Notes
	}
	m.Status = DeriveStatus(m.ScheduledDate, m.CompletedDate, now)

	if err := s.store.Update(ctx, m); err != nil {
		return MaintenanceResponse{}, err
	}
	return m.toDTO(r.EquipmentName), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// refreshStatus: カラムの status はキャッシュにすぎないので、
// 読み取りの都度導出し直し、ずれていれば書き戻す。書き戻し失敗は警告止まり。
func (s *Service) refreshStatus(ctx context.Context, m *Maintenance) {
	derived := DeriveStatus(m.ScheduledDate, m.CompletedDate, s.clock.Now())
	if derived == m.Status {
		return
	}
	m.Status = derived
	if err := s.store.UpdateStatus(ctx, m.MaintenanceID, derived); err != nil {
		log.Printf("[WARN] maintenance: status cache update failed id=%d: %v", m.MaintenanceID, err)
	}
}

func (m *Maintenance) toDTO(equipmentName string) MaintenanceResponse {
	return MaintenanceResponse{
		MaintenanceID:   m.MaintenanceID,
		MaintenanceULID: m.MaintenanceULID,
		EquipmentID:     m.EquipmentID,
		Equipment:       equipmentName,
		MaintenanceType: m.MaintenanceType,
		ScheduledDate:   m.ScheduledDate,
		CompletedDate:   m.CompletedDate,
		Status:          m.Status,
		Cost:            m.Cost,
		PerformedBy:     m.PerformedBy,
		Notes:           m.Notes,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
	}
}

// コストはフォーム由来の揺れた値を受ける。数値化できなければ def。
func toFloat(v any, def float64) float64 {
	switch x := v.(type) {
	case nil:
		return def
	case float64:
		return x
	case int:
		return float64(x)
	case string:
		t := strings.TrimSpace(x)
		if t == "" || strings.EqualFold(t, "N/A") {
			return def
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}
