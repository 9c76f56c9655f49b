package equipment

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"LABIS-backend/internal/inventory/consumables"
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

func (s *Service) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ===== CRUD =====

func (s *Service) Create(ctx context.Context, req CreateEquipmentRequest) (EquipmentResponse, error) {
	if strings.TrimSpace(req.Description) == "" {
		return EquipmentResponse{}, ErrInvalid("description is required")
	}

	e := &Equipment{
		Description:   req.Description,
		Qty:           consumables.ClampNonNeg(req.Qty),
		DatePurchased: req.DatePurchased,
		SerialNumber:  req.SerialNumber,
		BrandName:     req.BrandName,
		Model:         req.Model,
		Remarks:       req.Remarks,
		Location:      req.Location,
		Barcode:       req.Barcode,
	}
	if err := s.store.Insert(ctx, e); err != nil {
		return EquipmentResponse{}, err
	}
	return e.toDTO(0), nil
}

func (s *Service) Get(ctx context.Context, id int64) (EquipmentResponse, error) {
	e, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return EquipmentResponse{}, err
	}
	return e.toDTO(0), nil
}

func (s *Service) List(ctx context.Context, f EquipmentFilter, p Page) ([]EquipmentResponse, int64, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]EquipmentResponse, 0, len(items))
	for i := range items {
		out = append(out, items[i].Equipment.toDTO(items[i].BorrowedOut))
	}
	return out, total, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateEquipmentRequest) (EquipmentResponse, error) {
	e, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return EquipmentResponse{}, err
	}

	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return EquipmentResponse{}, ErrInvalid("description must not be empty")
		}
		e.Description = *req.Description
	}
	if req.Qty != nil {
		e.Qty = consumables.ClampNonNeg(req.Qty)
	}
	if req.DatePurchased != nil {
		e.DatePurchased = *req.DatePurchased
	}
	if req.SerialNumber != nil {
		e.SerialNumber = *req.SerialNumber
	}
	if req.BrandName != nil {
		e.BrandName = *req.BrandName
	}
	if req.Model != nil {
		e.Model = *req.Model
	}
	if req.Remarks != nil {
		e.Remarks = *req.Remarks
	}
	if req.Location != nil {
		e.Location = *req.Location
	}
	if req.Barcode != nil {
		e.Barcode = req.Barcode
	}

	if err := s.store.Update(ctx, e); err != nil {
		return EquipmentResponse{}, err
	}
	return e.toDTO(0), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.store.Delete(ctx, tx, id)
	})
}

// ===== 貸出 =====

// Borrow: 貸出ログを追記する。機材の qty 自体は減らさず、
// 未返却数は borrow_log の集計で導出する。
func (s *Service) Borrow(ctx context.Context, req BorrowRequest) (BorrowResponse, error) {
	if req.EquipmentID <= 0 {
		return BorrowResponse{}, ErrInvalid("equipment_id is required")
	}

	qty := consumables.ToInt(req.QuantityBorrowed, 1)
	if qty <= 0 {
		qty = 1
	}

	now := s.clock.Now()
	b := &BorrowLog{
		BorrowULID:       s.id.NewULID(now),
		EquipmentID:      req.EquipmentID,
		BorrowerName:     req.BorrowerName,
		BorrowerType:     req.BorrowerType,
		SectionCourse:    req.SectionCourse,
		Purpose:          req.Purpose,
		QuantityBorrowed: qty,
		BorrowedAt:       now,
	}

	var name string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		e, err := s.store.GetByIDForUpdate(ctx, tx, req.EquipmentID)
		if err != nil {
			return err
		}
		name = e.Description
		return s.store.InsertBorrow(ctx, tx, b)
	})
	if err != nil {
		return BorrowResponse{}, err
	}
	return b.toDTO(name), nil
}

// BulkBorrow: 1件ずつ独立したトランザクションで処理し、失敗したらそこで止める
func (s *Service) BulkBorrow(ctx context.Context, req BulkBorrowRequest) ([]BorrowResponse, error) {
	if len(req.Items) == 0 {
		return nil, ErrInvalid("items must not be empty")
	}
	out := make([]BorrowResponse, 0, len(req.Items))
	for _, item := range req.Items {
		r, err := s.Borrow(ctx, item)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

// ReturnBorrow: 貸出ログ1件のクローズ。returned_at は1回しか立たない。
// 破損・紛失メモは同一トランザクションで student_note に残す。
func (s *Service) ReturnBorrow(ctx context.Context, borrowID int64, actor string, req ReturnBorrowRequest) (BorrowResponse, error) {
	if borrowID <= 0 {
		return BorrowResponse{}, ErrInvalid("borrow_id is required")
	}

	now := s.clock.Now()

	var resp BorrowResponse
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		b, err := s.store.GetBorrowForUpdate(ctx, tx, borrowID)
		if err != nil {
			return err
		}
		if b.ReturnedAt != nil {
			return ErrConflict("borrow already returned")
		}

		aff, err := s.store.CloseBorrow(ctx, tx, borrowID, now)
		if err != nil {
			return err
		}
		if aff == 0 {
			return ErrConflict("borrow already returned")
		}

		noteType := ""
		if req.NoteType != nil {
			noteType = strings.ToLower(strings.TrimSpace(*req.NoteType))
		}
		noteDesc := ""
		if req.NoteDescription != nil {
			noteDesc = strings.TrimSpace(*req.NoteDescription)
		}
		if noteType != "" && noteType != "none" && noteDesc != "" {
			if err := s.store.insertIncidentNote(ctx, tx, s.id.NewULID(now), b, noteType, noteDesc, actor, now); err != nil {
				return err
			}
		}

		b.ReturnedAt = &now
		resp = b.toDTO("")
		return nil
	})
	if err != nil {
		return BorrowResponse{}, err
	}
	return resp, nil
}

func (s *Service) ListBorrows(ctx context.Context, f BorrowFilter, p Page) ([]BorrowResponse, int64, error) {
	rows, total, err := s.store.ListBorrows(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]BorrowResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].BorrowLog.toDTO(rows[i].EquipmentName))
	}
	return out, total, nil
}

func (e *Equipment) toDTO(borrowedOut int) EquipmentResponse {
	return EquipmentResponse{
		EquipmentID:   e.EquipmentID,
		Description:   e.Description,
		Qty:           e.Qty,
		DatePurchased: e.DatePurchased,
		SerialNumber:  e.SerialNumber,
		BrandName:     e.BrandName,
		Model:         e.Model,
		Remarks:       e.Remarks,
		Location:      e.Location,
		Barcode:       e.Barcode,
		BorrowedOut:   borrowedOut,
	}
}

func (b *BorrowLog) toDTO(equipmentName string) BorrowResponse {
	return BorrowResponse{
		BorrowID:         b.BorrowID,
		BorrowULID:       b.BorrowULID,
		EquipmentID:      b.EquipmentID,
		Equipment:        equipmentName,
		BorrowerName:     b.BorrowerName,
		BorrowerType:     b.BorrowerType,
		SectionCourse:    b.SectionCourse,
		Purpose:          b.Purpose,
		QuantityBorrowed: b.QuantityBorrowed,
		BorrowedAt:       b.BorrowedAt,
		ReturnedAt:       b.ReturnedAt,
	}
}
