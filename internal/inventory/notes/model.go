package notes

import "time"

const (
	StatusPending  = "pending"
	StatusResolved = "resolved"
)

// メモ種別（破損・紛失・未返却・その他）
const (
	TypeDamaged    = "damaged"
	TypeLost       = "lost"
	TypeUnreturned = "unreturned"
	TypeOther      = "other"
)

// StudentNote は利用者に紐づくインシデントメモ。
// equipment_id / consumable_id はどちらか片方、または両方 NULL。
type StudentNote struct {
	NoteID        int64
	NoteULID      string
	PersonName    string
	PersonNumber  string
	PersonType    string
	SectionCourse string
	NoteType      string
	Description   string
	EquipmentID   *int64
	ConsumableID  *int64
	Status        string
	ResolvedAt    *time.Time
	ResolvedBy    *string
	CreatedBy     string
	CreatedAt     time.Time
}

type NoteFilter struct {
	Q        string
	Status   string
	NoteType string
	Sort     string
	Dir      string
}
