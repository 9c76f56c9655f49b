package notes

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type Page struct {
	Limit  int
	Offset int
}

type CreateNoteRequest struct {
	PersonName    string `json:"person_name" binding:"required"`
	PersonNumber  string `json:"person_number"`
	PersonType    string `json:"person_type" binding:"required"`
	SectionCourse string `json:"section_course"`
	NoteType      string `json:"note_type" binding:"required"`
	Description   string `json:"description" binding:"required"`
	EquipmentID   *int64 `json:"equipment_id,omitempty"`
	ConsumableID  *int64 `json:"consumable_id,omitempty"`
}

type UpdateNoteRequest struct {
	PersonName    *string `json:"person_name,omitempty"`
	PersonNumber  *string `json:"person_number,omitempty"`
	PersonType    *string `json:"person_type,omitempty"`
	SectionCourse *string `json:"section_course,omitempty"`
	NoteType      *string `json:"note_type,omitempty"`
	Description   *string `json:"description,omitempty"`
}

type NoteResponse struct {
	NoteID        int64      `json:"note_id"`
	NoteULID      string     `json:"note_ulid"`
	PersonName    string     `json:"person_name"`
	PersonNumber  string     `json:"person_number"`
	PersonType    string     `json:"person_type"`
	SectionCourse string     `json:"section_course"`
	NoteType      string     `json:"note_type"`
	Description   string     `json:"description"`
	EquipmentID   *int64     `json:"equipment_id,omitempty"`
	ConsumableID  *int64     `json:"consumable_id,omitempty"`
	Status        string     `json:"status"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy    *string    `json:"resolved_by,omitempty"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}
