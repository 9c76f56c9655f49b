package notes

import (
	"context"
	"crypto/rand"
	"database/sql"
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
	store *Store
	clock Clock
	id    IDGen
}

func NewService(d *sql.DB) *Service {
	return &Service{store: NewStore(d), clock: realClock{}, id: ulidGen{}}
}

var validNoteTypes = map[string]bool{
	TypeDamaged:    true,
	TypeLost:       true,
	TypeUnreturned: true,
	TypeOther:      true,
}

func (s *Service) Create(ctx context.Context, actor string, req CreateNoteRequest) (NoteResponse, error) {
	nt := strings.ToLower(strings.TrimSpace(req.NoteType))
	if !validNoteTypes[nt] {
		return NoteResponse{}, ErrInvalid("note_type must be damaged, lost, unreturned or other")
	}
	if strings.TrimSpace(req.Description) == "" {
		return NoteResponse{}, ErrInvalid("description is required")
	}

	now := s.clock.Now()
	n := &StudentNote{
		NoteULID:      s.id.NewULID(now),
		PersonName:    req.PersonName,
		PersonNumber:  req.PersonNumber,
		PersonType:    req.PersonType,
		SectionCourse: req.SectionCourse,
		NoteType:      nt,
		Description:   req.Description,
		EquipmentID:   req.EquipmentID,
		ConsumableID:  req.ConsumableID,
		Status:        StatusPending,
		CreatedBy:     actor,
		CreatedAt:     now,
	}
	if err := s.store.Insert(ctx, n); err != nil {
		return NoteResponse{}, err
	}
	return n.toDTO(), nil
}

func (s *Service) Get(ctx context.Context, id int64) (NoteResponse, error) {
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		return NoteResponse{}, err
	}
	return n.toDTO(), nil
}

func (s *Service) List(ctx context.Context, f NoteFilter, p Page) ([]NoteResponse, int64, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]NoteResponse, 0, len(items))
	for i := range items {
		out = append(out, items[i].toDTO())
	}
	return out, total, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateNoteRequest) (NoteResponse, error) {
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		return NoteResponse{}, err
	}
	if n.Status == StatusResolved {
		return NoteResponse{}, ErrConflict("resolved note cannot be edited")
	}

	if req.PersonName != nil {
		n.PersonName = *req.PersonName
	}
	if req.PersonNumber != nil {
		n.PersonNumber = *req.PersonNumber
	}
	if req.PersonType != nil {
		n.PersonType = *req.PersonType
	}
	if req.SectionCourse != nil {
		n.SectionCourse = *req.SectionCourse
	}
	if req.NoteType != nil {
		nt := strings.ToLower(strings.TrimSpace(*req.NoteType))
		if !validNoteTypes[nt] {
			return NoteResponse{}, ErrInvalid("note_type must be damaged, lost, unreturned or other")
		}
		n.NoteType = nt
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return NoteResponse{}, ErrInvalid("description must not be empty")
		}
		n.Description = *req.Description
	}

	if err := s.store.Update(ctx, n); err != nil {
		return NoteResponse{}, err
	}
	return n.toDTO(), nil
}

// Resolve: pending → resolved は一方通行。resolved_at / resolved_by は1回だけ立つ。
func (s *Service) Resolve(ctx context.Context, id int64, actor string) (NoteResponse, error) {
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		return NoteResponse{}, err
	}
	if n.Status == StatusResolved {
		return NoteResponse{}, ErrConflict("note already resolved")
	}

	now := s.clock.Now()
	aff, err := s.store.Resolve(ctx, id, actor, now)
	if err != nil {
		return NoteResponse{}, err
	}
	if aff == 0 {
		return NoteResponse{}, ErrConflict("note already resolved")
	}

	n.Status = StatusResolved
	n.ResolvedAt = &now
	n.ResolvedBy = &actor
	return n.toDTO(), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

func (n *StudentNote) toDTO() NoteResponse {
	return NoteResponse{
		NoteID:        n.NoteID,
		NoteULID:      n.NoteULID,
		PersonName:    n.PersonName,
		PersonNumber:  n.PersonNumber,
		PersonType:    n.PersonType,
		SectionCourse: n.SectionCourse,
		NoteType:      n.NoteType,
		Description:   n.Description,
		EquipmentID:   n.EquipmentID,
		ConsumableID:  n.ConsumableID,
		Status:        n.Status,
		ResolvedAt:    n.ResolvedAt,
		ResolvedBy:    n.ResolvedBy,
		CreatedBy:     n.CreatedBy,
		CreatedAt:     n.CreatedAt,
	}
}
