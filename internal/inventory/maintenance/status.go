package maintenance

import "time"

const dateLayout = "2006-01-02"

// DeriveStatus は日付からステータスを導出する純関数。
// completed_date があれば completed、予定日が today より前なら overdue、
// それ以外（予定日当日・未来・解釈不能）は scheduled。
func DeriveStatus(scheduledDate string, completedDate *string, today time.Time) string {
	if completedDate != nil && *completedDate != "" {
		return StatusCompleted
	}
	sd, err := time.Parse(dateLayout, scheduledDate)
	if err != nil {
		return StatusScheduled
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if sd.Before(day) {
		return StatusOverdue
	}
	return StatusScheduled
}
