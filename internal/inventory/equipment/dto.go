package equipment

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

type CreateEquipmentRequest struct {
	Description   string  `json:"description" binding:"required"`
	Qty           any     `json:"qty"`
	DatePurchased string  `json:"date_purchased"`
	SerialNumber  string  `json:"serial_number"`
	BrandName     string  `json:"brand_name"`
	Model         string  `json:"model"`
	Remarks       string  `json:"remarks"`
	Location      string  `json:"location"`
	Barcode       *string `json:"barcode,omitempty"`
}

type UpdateEquipmentRequest struct {
	Description   *string `json:"description,omitempty"`
	Qty           any     `json:"qty,omitempty"`
	DatePurchased *string `json:"date_purchased,omitempty"`
	SerialNumber  *string `json:"serial_number,omitempty"`
	BrandName     *string `json:"brand_name,omitempty"`
	Model         *string `json:"model,omitempty"`
	Remarks       *string `json:"remarks,omitempty"`
	Location      *string `json:"location,omitempty"`
	Barcode       *string `json:"barcode,omitempty"`
}

type BorrowRequest struct {
	EquipmentID      int64  `json:"equipment_id"`
	BorrowerName     string `json:"borrower_name" binding:"required"`
	BorrowerType     string `json:"borrower_type" binding:"required"`
	SectionCourse    string `json:"section_course" binding:"required"`
	Purpose          string `json:"purpose" binding:"required"`
	QuantityBorrowed any    `json:"quantity_borrowed"` // 未指定・不正は 1
}

type BulkBorrowRequest struct {
	Items []BorrowRequest `json:"items" binding:"required"`
}

type ReturnBorrowRequest struct {
	NoteType        *string `json:"note_type,omitempty"` // damaged / lost / other / none
	NoteDescription *string `json:"note_description,omitempty"`
}

// ===== Responses =====

type EquipmentResponse struct {
	EquipmentID   int64   `json:"equipment_id"`
	Description   string  `json:"description"`
	Qty           int     `json:"qty"`
	DatePurchased string  `json:"date_purchased"`
	SerialNumber  string  `json:"serial_number"`
	BrandName     string  `json:"brand_name"`
	Model         string  `json:"model"`
	Remarks       string  `json:"remarks"`
	Location      string  `json:"location"`
	Barcode       *string `json:"barcode,omitempty"`
	// 未返却の貸出数量の合計（一覧表示用の導出値）
	BorrowedOut int `json:"borrowed_out"`
}

type BorrowResponse struct {
	BorrowID         int64      `json:"borrow_id"`
	BorrowULID       string     `json:"borrow_ulid"`
	EquipmentID      int64      `json:"equipment_id"`
	Equipment        string     `json:"equipment"`
	BorrowerName     string     `json:"borrower_name"`
	BorrowerType     string     `json:"borrower_type"`
	SectionCourse    string     `json:"section_course"`
	Purpose          string     `json:"purpose"`
	QuantityBorrowed int        `json:"quantity_borrowed"`
	BorrowedAt       time.Time  `json:"borrowed_at"`
	ReturnedAt       *time.Time `json:"returned_at,omitempty"`
}
