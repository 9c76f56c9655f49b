package analytics

import (
	"context"
	"database/sql"
	"time"

	"LABIS-backend/internal/platform/db"
)

// 集計はすべて読み取り専用。書き込みは各 inventory パッケージの責務。

const nearExpirationDays = 30

type LowStockItem struct {
	ConsumableID       int64  `json:"consumable_id"`
	Description        string `json:"description"`
	LotNumber          string `json:"lot_number"`
	BalanceStock       int    `json:"balance_stock"`
	PreviousMonthStock int    `json:"previous_month_stock"`
}

type NearExpirationItem struct {
	ConsumableID int64  `json:"consumable_id"`
	Description  string `json:"description"`
	LotNumber    string `json:"lot_number"`
	Expiration   string `json:"expiration"`
	BalanceStock int    `json:"balance_stock"`
	DaysLeft     int    `json:"days_left"`
}

type TopConsumedItem struct {
	ConsumableID  int64  `json:"consumable_id"`
	Description   string `json:"description"`
	TotalConsumed int    `json:"total_consumed"`
}

type TopBorrowedItem struct {
	EquipmentID   int64  `json:"equipment_id"`
	Description   string `json:"description"`
	TotalBorrowed int    `json:"total_borrowed"`
}

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type Service struct {
	db    *sql.DB
	clock Clock
}

func NewService(d *sql.DB) *Service {
	return &Service{db: d, clock: realClock{}}
}

// LowStock: 繰越在庫の1割を下回った品目。繰越在庫 0 の行は分母がないため除外。
func (s *Service) LowStock(ctx context.Context) ([]LowStockItem, error) {
	const q = `
SELECT consumable_id, description, lot_number, balance_stock, previous_month_stock
FROM consumable
WHERE previous_month_stock > 0 AND balance_stock * 10 < previous_month_stock
ORDER BY balance_stock ASC, description ASC`

	var out []LowStockItem
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		rows, err := tx.QueryContext(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var it LowStockItem
			if err := rows.Scan(&it.ConsumableID, &it.Description, &it.LotNumber, &it.BalanceStock, &it.PreviousMonthStock); err != nil {
				return err
			}
			out = append(out, it)
		}
		return rows.Err()
	})
	return out, err
}

// NearExpiration: 30日以内に切れる、または期限切れ済みの品目。
// expiration は自由書式のカラムなので判定は Go 側で行う。
func (s *Service) NearExpiration(ctx context.Context) ([]NearExpirationItem, error) {
	const q = `
SELECT consumable_id, description, lot_number, expiration, balance_stock
FROM consumable
WHERE balance_stock > 0
ORDER BY expiration ASC`

	today := s.clock.Now()
	var out []NearExpirationItem
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		rows, err := tx.QueryContext(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var it NearExpirationItem
			if err := rows.Scan(&it.ConsumableID, &it.Description, &it.LotNumber, &it.Expiration, &it.BalanceStock); err != nil {
				return err
			}
			days, ok := DaysUntilExpiration(it.Expiration, today)
			if !ok || days > nearExpirationDays {
				continue
			}
			it.DaysLeft = days
			out = append(out, it)
		}
		return rows.Err()
	})
	return out, err
}

// TopConsumed: 消費ログの集計で上位5品目
func (s *Service) TopConsumed(ctx context.Context) ([]TopConsumedItem, error) {
	const q = `
SELECT u.consumable_id, COALESCE(c.description, ''), SUM(u.quantity_used)
FROM usage_log u
LEFT JOIN consumable c ON c.consumable_id = u.consumable_id
GROUP BY u.consumable_id, c.description
ORDER BY SUM(u.quantity_used) DESC
LIMIT 5`

	var out []TopConsumedItem
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		rows, err := tx.QueryContext(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var it TopConsumedItem
			if err := rows.Scan(&it.ConsumableID, &it.Description, &it.TotalConsumed); err != nil {
				return err
			}
			out = append(out, it)
		}
		return rows.Err()
	})
	return out, err
}

// MostBorrowed: 貸出ログの集計で上位5機材
func (s *Service) MostBorrowed(ctx context.Context) ([]TopBorrowedItem, error) {
	const q = `
SELECT b.equipment_id, COALESCE(e.description, ''), SUM(b.quantity_borrowed)
FROM borrow_log b
LEFT JOIN equipment e ON e.equipment_id = b.equipment_id
GROUP BY b.equipment_id, e.description
ORDER BY SUM(b.quantity_borrowed) DESC
LIMIT 5`

	var out []TopBorrowedItem
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		rows, err := tx.QueryContext(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var it TopBorrowedItem
			if err := rows.Scan(&it.EquipmentID, &it.Description, &it.TotalBorrowed); err != nil {
				return err
			}
			out = append(out, it)
		}
		return rows.Err()
	})
	return out, err
}
