package analytics

import "time"

const dateLayout = "2006-01-02"

// DaysUntilExpiration: 期限までの日数（過去なら負）。
// N/A や解釈不能な値は対象外として ok=false。
func DaysUntilExpiration(expiration string, today time.Time) (int, bool) {
	exp, err := time.Parse(dateLayout, expiration)
	if err != nil {
		return 0, false
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(exp.Sub(day).Hours() / 24), true
}

// IsNearExpiration: 期限切れ済み、または within 日以内に切れるか
func IsNearExpiration(expiration string, today time.Time, within int) bool {
	days, ok := DaysUntilExpiration(expiration, today)
	return ok && days <= within
}
