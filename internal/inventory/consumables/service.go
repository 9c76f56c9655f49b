package consumables

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"
)

// ---- Clock & ID ----
type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// ---- Service ----

type Service struct {
	db     *sql.DB
	store  ConsumableStore
	clock  Clock
	id     IDGen
	policy ConsumptionPolicy
	withTx func(ctx context.Context, fn func(*sql.Tx) error) error
}

// NewService: policy は構成時に決める（group_fifo / single_row）。
// 呼び出し側は ConsumptionPolicy インターフェースにだけ依存する。
func NewService(d *sql.DB, policy ConsumptionPolicy) *Service {
	s := &Service{
		db:     d,
		store:  NewStore(d),
		clock:  realClock{},
		id:     ulidGen{},
		policy: policy,
	}
	s.withTx = func(ctx context.Context, fn func(*sql.Tx) error) error {
		tx, err := d.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	}
	return s
}

// ===== CRUD =====

func (s *Service) Create(ctx context.Context, req CreateConsumableRequest) (ConsumableResponse, error) {
	if strings.TrimSpace(req.Description) == "" {
		return ConsumableResponse{}, ErrInvalid("description is required")
	}

	c := &Consumable{
		Description:   req.Description,
		Unit:          req.Unit,
		Expiration:    req.Expiration,
		LotNumber:     req.LotNumber,
		DateReceived:  req.DateReceived,
		Barcode:       req.Barcode,
		ItemsOut:      ClampNonNeg(req.ItemsOut),
		ItemsOnStock:  ClampNonNeg(req.ItemsOnStock),
		UnitsConsumed: ClampNonNeg(req.UnitsConsumed),
		IsReturnable:  req.IsReturnable,
	}
	if req.UnitsExpired != nil {
		v := ClampNonNeg(req.UnitsExpired)
		c.UnitsExpired = &v
	}

	Recalculate(c)

	if err := s.store.Insert(ctx, c); err != nil {
		return ConsumableResponse{}, err
	}
	return c.toDTO(), nil
}

func (s *Service) Get(ctx context.Context, id int64) (ConsumableResponse, error) {
	c, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return ConsumableResponse{}, err
	}
	return c.toDTO(), nil
}

func (s *Service) List(ctx context.Context, f ConsumableFilter, p Page) ([]ConsumableResponse, int64, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ConsumableResponse, 0, len(items))
	for i := range items {
		out = append(out, items[i].toDTO())
	}
	return out, total, nil
}

// Update: 量フィールドの読み書きが消費トランザクションと交錯しないよう、
// 行ロックを取ってからマージ・再計算・書き戻しまでを1トランザクションで行う。
func (s *Service) Update(ctx context.Context, id int64, req UpdateConsumableRequest) (ConsumableResponse, error) {
	var c *Consumable
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		c, err = s.store.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if req.Description != nil {
			if strings.TrimSpace(*req.Description) == "" {
				return ErrInvalid("description must not be empty")
			}
			c.Description = *req.Description
		}
		if req.Unit != nil {
			c.Unit = *req.Unit
		}
		if req.Expiration != nil {
			c.Expiration = *req.Expiration
		}
		if req.LotNumber != nil {
			c.LotNumber = *req.LotNumber
		}
		if req.DateReceived != nil {
			c.DateReceived = *req.DateReceived
		}
		if req.Barcode != nil {
			c.Barcode = req.Barcode
		}
		if req.ItemsOut != nil {
			c.ItemsOut = ClampNonNeg(req.ItemsOut)
		}
		if req.ItemsOnStock != nil {
			c.ItemsOnStock = ClampNonNeg(req.ItemsOnStock)
		}
		if req.UnitsConsumed != nil {
			c.UnitsConsumed = ClampNonNeg(req.UnitsConsumed)
		}
		if req.UnitsExpired != nil {
			v := ClampNonNeg(req.UnitsExpired)
			c.UnitsExpired = &v
		}
		if req.IsReturnable != nil {
			c.IsReturnable = *req.IsReturnable
		}

		Recalculate(c)
		return s.store.Update(ctx, tx, c)
	})
	if err != nil {
		return ConsumableResponse{}, err
	}
	return c.toDTO(), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.store.Delete(ctx, tx, id)
	})
}

// ===== 消費 =====

// Use: 消費トランザクション。在庫減算・units_consumed 加算・消費ログ追記を
// 1トランザクションで行う。在庫が足りなくても失敗にはせず、残量を返して
// コミットする（欠品は呼び出し側への警告シグナル）。
func (s *Service) Use(ctx context.Context, req UseConsumableRequest) (UseConsumableResponse, error) {
	if req.ConsumableID <= 0 {
		return UseConsumableResponse{}, ErrInvalid("consumable_id is required")
	}

	qty := ClampNonNeg(req.Quantity)
	if qty == 0 {
		// 0以下の要求は在庫もログも触らない
		return UseConsumableResponse{ConsumableID: req.ConsumableID}, nil
	}

	now := s.clock.Now()
	uid := s.id.NewULID(now)

	var resp UseConsumableResponse
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		target, err := s.store.GetByIDForUpdate(ctx, tx, req.ConsumableID)
		if err != nil {
			return err
		}

		// 適用対象の行集合はポリシー次第:
		// group_fifo は description グループ全ロット、single_row は対象行のみ。
		rows := []*Consumable{target}
		if _, ok := s.policy.(GroupFifoConsumption); ok {
			group, err := s.store.ListByDescriptionForUpdate(ctx, tx, target.Description)
			if err != nil {
				return err
			}
			rows = group
			for _, r := range rows {
				if r.ConsumableID == target.ConsumableID {
					target = r
					break
				}
			}
		}

		// units_consumed は「要求量」を数える。充足できたかどうかは関係ない。
		target.UnitsConsumed = ClampNonNeg(target.UnitsConsumed) + qty

		remainder := s.policy.Consume(rows, qty)

		for _, r := range rows {
			Recalculate(r)
			if err := s.store.UpdateStock(ctx, tx, r); err != nil {
				return err
			}
		}

		u := &UsageLog{
			UsageULID:     uid,
			ConsumableID:  target.ConsumableID,
			UserName:      req.UserName,
			UserType:      req.UserType,
			SectionCourse: req.SectionCourse,
			Purpose:       req.Purpose,
			QuantityUsed:  qty,
			UsedAt:        now,
		}
		if err := s.store.InsertUsage(ctx, tx, u); err != nil {
			return err
		}

		resp = UseConsumableResponse{
			UsageID:      u.UsageID,
			UsageULID:    u.UsageULID,
			ConsumableID: target.ConsumableID,
			QuantityUsed: qty,
			Remainder:    remainder,
			UsedAt:       now,
		}
		return nil
	})
	if err != nil {
		return UseConsumableResponse{}, err
	}
	return resp, nil
}

// BulkUse: 複数品目の一括消費。1件ずつ独立したトランザクションで処理し、
// 途中で失敗してもそこで止める（処理済み分はコミット済み）。
func (s *Service) BulkUse(ctx context.Context, req BulkUseRequest) (BulkUseResponse, error) {
	if len(req.Items) == 0 {
		return BulkUseResponse{}, ErrInvalid("items must not be empty")
	}

	out := BulkUseResponse{Total: len(req.Items)}
	for _, item := range req.Items {
		r, err := s.Use(ctx, item)
		if err != nil {
			return out, err
		}
		out.Results = append(out.Results, r)
	}
	return out, nil
}

// ===== 返却 =====

// Return: 消費ログ1件の返却。返却可能品のみ、クローズ済みログは不可、
// 元の使用量を超える返却は拒否。返却量は items_out に戻す。
func (s *Service) Return(ctx context.Context, usageID int64, actor string, req ReturnConsumableRequest) (ReturnConsumableResponse, error) {
	if usageID <= 0 {
		return ReturnConsumableResponse{}, ErrInvalid("usage_id is required")
	}

	qty := ClampNonNeg(req.QuantityReturned)
	now := s.clock.Now()

	var resp ReturnConsumableResponse
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		u, err := s.store.GetUsageForUpdate(ctx, tx, usageID)
		if err != nil {
			return err
		}
		if u.ReturnedAt != nil {
			return ErrConflict("usage already returned")
		}

		c, err := s.store.GetByIDForUpdate(ctx, tx, u.ConsumableID)
		if err != nil {
			return err
		}
		if !c.IsReturnable {
			return ErrConflict("consumable is not returnable")
		}
		if qty > u.QuantityUsed {
			return ErrQuantityOverReturn()
		}

		c.ItemsOut = ClampNonNeg(c.ItemsOut) + qty
		Recalculate(c)
		if err := s.store.UpdateStock(ctx, tx, c); err != nil {
			return err
		}

		aff, err := s.store.CloseUsage(ctx, tx, usageID, now, qty)
		if err != nil {
			return err
		}
		if aff == 0 {
			return ErrConflict("usage already returned")
		}

		// 任意: 破損・紛失メモを同一トランザクションで残す
		noteType := ""
		if req.NoteType != nil {
			noteType = strings.ToLower(strings.TrimSpace(*req.NoteType))
		}
		noteDesc := ""
		if req.NoteDescription != nil {
			noteDesc = strings.TrimSpace(*req.NoteDescription)
		}
		if noteType != "" && noteType != "none" && noteDesc != "" {
			if err := s.store.insertIncidentNote(ctx, tx, s.id.NewULID(now), u, noteType, noteDesc, actor, now); err != nil {
				return err
			}
		}

		resp = ReturnConsumableResponse{
			UsageID:          usageID,
			ConsumableID:     c.ConsumableID,
			QuantityReturned: qty,
			ReturnedAt:       now,
		}
		return nil
	})
	if err != nil {
		return ReturnConsumableResponse{}, err
	}
	return resp, nil
}

// ===== 履歴 =====

func (s *Service) ListUsage(ctx context.Context, f UsageFilter, p Page) ([]UsageLogResponse, int64, error) {
	rows, total, err := s.store.ListUsage(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]UsageLogResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, UsageLogResponse{
			UsageID:          r.UsageID,
			UsageULID:        r.UsageULID,
			ConsumableID:     r.ConsumableID,
			Consumable:       r.ConsumableName,
			UserName:         r.UserName,
			UserType:         r.UserType,
			SectionCourse:    r.SectionCourse,
			Purpose:          r.Purpose,
			QuantityUsed:     r.QuantityUsed,
			UsedAt:           r.UsedAt,
			ReturnedAt:       r.ReturnedAt,
			QuantityReturned: r.QuantityReturned,
		})
	}
	return out, total, nil
}
