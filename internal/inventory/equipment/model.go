package equipment

import "time"

// Equipment は equipment テーブルの1行を表す
type Equipment struct {
	EquipmentID   int64
	Description   string
	Qty           int
	DatePurchased string
	SerialNumber  string
	BrandName     string
	Model         string
	Remarks       string
	Location      string
	Barcode       *string
}

// BorrowLog は borrow_log テーブルの1行を表す。
// 追記専用で、クローズは returned_at を1回立てるのみ。
// 機材に期限・ロットの概念はないため在庫台帳（consumable）とは独立。
type BorrowLog struct {
	BorrowID         int64
	BorrowULID       string
	EquipmentID      int64
	BorrowerName     string
	BorrowerType     string // student / faculty
	SectionCourse    string
	Purpose          string
	QuantityBorrowed int
	BorrowedAt       time.Time
	ReturnedAt       *time.Time
}

// 機材一覧の検索条件
type EquipmentFilter struct {
	Q    string
	Sort string
	Dir  string
}

// 貸出履歴の検索条件
type BorrowFilter struct {
	Q           string
	EquipmentID *int64
	OpenOnly    bool // returned_at IS NULL のみ
	Sort        string
	Dir         string
}
