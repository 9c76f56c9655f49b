package consumables

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type Page struct {
	Limit  int
	Offset int
}

// ===== Requests =====

// 量フィールドは any で受けて ToInt に通す。フロントのフォーム由来の
// 数値文字列・空文字・"N/A" をそのまま受けられるようにするため。
type CreateConsumableRequest struct {
	Description   string  `json:"description" binding:"required"`
	Unit          string  `json:"unit"`
	Expiration    string  `json:"expiration"`
	LotNumber     string  `json:"lot_number"`
	DateReceived  string  `json:"date_received"`
	Barcode       *string `json:"barcode,omitempty"`
	ItemsOut      any     `json:"items_out"`
	ItemsOnStock  any     `json:"items_on_stock"`
	UnitsConsumed any     `json:"units_consumed"`
	UnitsExpired  any     `json:"units_expired"`
	IsReturnable  bool    `json:"is_returnable"`
}

type UpdateConsumableRequest struct {
	Description   *string `json:"description,omitempty"`
	Unit          *string `json:"unit,omitempty"`
	Expiration    *string `json:"expiration,omitempty"`
	LotNumber     *string `json:"lot_number,omitempty"`
	DateReceived  *string `json:"date_received,omitempty"`
	Barcode       *string `json:"barcode,omitempty"`
	ItemsOut      any     `json:"items_out,omitempty"`
	ItemsOnStock  any     `json:"items_on_stock,omitempty"`
	UnitsConsumed any     `json:"units_consumed,omitempty"`
	UnitsExpired  any     `json:"units_expired,omitempty"`
	IsReturnable  *bool   `json:"is_returnable,omitempty"`
}

type UseConsumableRequest struct {
	ConsumableID  int64  `json:"consumable_id"`
	Quantity      any    `json:"quantity"`
	UserName      string `json:"user_name" binding:"required"`
	UserType      string `json:"user_type" binding:"required"`
	SectionCourse string `json:"section_course" binding:"required"`
	Purpose       string `json:"purpose" binding:"required"`
}

type BulkUseRequest struct {
	Items []UseConsumableRequest `json:"items" binding:"required"`
}

type ReturnConsumableRequest struct {
	QuantityReturned any     `json:"quantity_returned"`
	NoteType         *string `json:"note_type,omitempty"` // damaged / lost / other / none
	NoteDescription  *string `json:"note_description,omitempty"`
}

// ===== Responses =====

type ConsumableResponse struct {
	ConsumableID       int64   `json:"consumable_id"`
	Description        string  `json:"description"`
	Unit               string  `json:"unit"`
	Expiration         string  `json:"expiration"`
	LotNumber          string  `json:"lot_number"`
	DateReceived       string  `json:"date_received"`
	Barcode            *string `json:"barcode,omitempty"`
	ItemsOut           int     `json:"items_out"`
	ItemsOnStock       int     `json:"items_on_stock"`
	BalanceStock       int     `json:"balance_stock"`
	PreviousMonthStock int     `json:"previous_month_stock"`
	UnitsConsumed      int     `json:"units_consumed"`
	UnitsExpired       *int    `json:"units_expired,omitempty"`
	IsReturnable       bool    `json:"is_returnable"`
}

type UseConsumableResponse struct {
	UsageID      int64  `json:"usage_id"`
	UsageULID    string `json:"usage_ulid"`
	ConsumableID int64  `json:"consumable_id"`
	QuantityUsed int    `json:"quantity_used"`
	// 在庫から満たせなかった数量。0なら全量充足。>0 は欠品警告であって
	// エラーではない（トランザクションはコミット済み）。
	Remainder int       `json:"remainder"`
	UsedAt    time.Time `json:"used_at"`
}

type BulkUseResponse struct {
	Total   int                     `json:"total"`
	Results []UseConsumableResponse `json:"results"`
}

type ReturnConsumableResponse struct {
	UsageID          int64     `json:"usage_id"`
	ConsumableID     int64     `json:"consumable_id"`
	QuantityReturned int       `json:"quantity_returned"`
	ReturnedAt       time.Time `json:"returned_at"`
}

type UsageLogResponse struct {
	UsageID          int64      `json:"usage_id"`
	UsageULID        string     `json:"usage_ulid"`
	ConsumableID     int64      `json:"consumable_id"`
	Consumable       string     `json:"consumable"`
	UserName         string     `json:"user_name"`
	UserType         string     `json:"user_type"`
	SectionCourse    string     `json:"section_course"`
	Purpose          string     `json:"purpose"`
	QuantityUsed     int        `json:"quantity_used"`
	UsedAt           time.Time  `json:"used_at"`
	ReturnedAt       *time.Time `json:"returned_at,omitempty"`
	QuantityReturned *int       `json:"quantity_returned,omitempty"`
}

func (c *Consumable) toDTO() ConsumableResponse {
	return ConsumableResponse{
		ConsumableID:       c.ConsumableID,
		Description:        c.Description,
		Unit:               c.Unit,
		Expiration:         c.Expiration,
		LotNumber:          c.LotNumber,
		DateReceived:       c.DateReceived,
		Barcode:            c.Barcode,
		ItemsOut:           c.ItemsOut,
		ItemsOnStock:       c.ItemsOnStock,
		BalanceStock:       c.BalanceStock,
		PreviousMonthStock: c.PreviousMonthStock,
		UnitsConsumed:      c.UnitsConsumed,
		UnitsExpired:       c.UnitsExpired,
		IsReturnable:       c.IsReturnable,
	}
}
