package maintenance

import "time"

// 整備記録の種別
const (
	TypeCalibration = "calibration"
	TypeRepair      = "repair"
	TypePreventive  = "preventive"
	TypeInspection  = "inspection"
)

// ステータスは日付からの導出値。カラムには読み取り時のキャッシュしか置かない。
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusOverdue   = "overdue"
)

type Maintenance struct {
	MaintenanceID   int64
	MaintenanceULID string
	EquipmentID     int64
	MaintenanceType string
	ScheduledDate   string // YYYY-MM-DD
	CompletedDate   *string
	Status          string
	Cost            float64
	PerformedBy     string
	Notes           string
	CreatedBy       string
	CreatedAt       time.Time
}

type MaintenanceFilter struct {
	Q           string
	EquipmentID *int64
	Status      string
	Sort        string
	Dir         string
}
