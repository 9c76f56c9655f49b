package maintenance

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type Page struct {
	Limit  int
	Offset int
}

type CreateMaintenanceRequest struct {
	EquipmentID     int64   `json:"equipment_id" binding:"required"`
	MaintenanceType string  `json:"maintenance_type" binding:"required"`
	ScheduledDate   string  `json:"scheduled_date" binding:"required"`
	CompletedDate   *string `json:"completed_date,omitempty"`
	Cost            any     `json:"cost,omitempty"`
	PerformedBy     string  `json:"performed_by"`
	Notes           string  `json:"notes"`
}

type UpdateMaintenanceRequest struct {
	MaintenanceType *string `json:"maintenance_type,omitempty"`
	ScheduledDate   *string `json:"scheduled_date,omitempty"`
	CompletedDate   *string `json:"completed_date,omitempty"`
	Cost            any     `json:"cost,omitempty"`
	PerformedBy     *string `json:"performed_by,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// CompleteMaintenanceRequest: completed_date 未指定なら当日扱い
type CompleteMaintenanceRequest struct {
	CompletedDate *string `json:"completed_date,omitempty"`
	Cost          any     `json:"cost,omitempty"`
	PerformedBy   *string `json:"performed_by,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

type MaintenanceResponse struct {
	MaintenanceID   int64     `json:"maintenance_id"`
	MaintenanceULID string    `json:"maintenance_ulid"`
	EquipmentID     int64     `json:"equipment_id"`
	Equipment       string    `json:"equipment"`
	MaintenanceType string    `json:"maintenance_type"`
	ScheduledDate   string    `json:"scheduled_date"`
	CompletedDate   *string   `json:"completed_date,omitempty"`
	Status          string    `json:"status"`
	Cost            float64   `json:"cost"`
	PerformedBy     string    `json:"performed_by"`
	Notes           string    `json:"notes"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}
