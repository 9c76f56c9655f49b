package consumables

import "time"

// Consumable は consumable テーブルの1行（= 1ロット）を表す。
// description は一意ではない。同一品目の別ロットが複数行になる。
// balance_stock と previous_month_stock は導出値で、Recalculate 以外で代入しない。
type Consumable struct {
	ConsumableID       int64
	Description        string
	Unit               string
	Expiration         string // "YYYY-MM-DD" または "N/A"
	LotNumber          string
	DateReceived       string
	Barcode            *string
	ItemsOut           int
	ItemsOnStock       int
	BalanceStock       int // = items_out + items_on_stock
	PreviousMonthStock int // = items_out + items_on_stock + units_consumed
	UnitsConsumed      int
	UnitsExpired       *int
	IsReturnable       bool
}

// UsageLog は usage_log テーブルの1行を表す。追記専用で、
// 変更は returned_at / quantity_returned を1回だけ立てるクローズのみ。
type UsageLog struct {
	UsageID          int64
	UsageULID        string
	ConsumableID     int64
	UserName         string
	UserType         string // student / faculty
	SectionCourse    string
	Purpose          string
	QuantityUsed     int
	UsedAt           time.Time
	ReturnedAt       *time.Time
	QuantityReturned *int
}

// 消費ログ検索条件
type UsageFilter struct {
	Q            string
	ConsumableID *int64
	OpenOnly     bool // returned_at IS NULL のみ
	Sort         string
	Dir          string
}

// 消耗品一覧の検索条件
type ConsumableFilter struct {
	Q    string
	Sort string
	Dir  string
}
