package analytics

import (
	"testing"
	"time"
)

func TestDaysUntilExpiration(t *testing.T) {
	today := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		expiration string
		wantDays   int
		wantOK     bool
	}{
		{"2026-02-11", 10, true},
		{"2026-02-01", 0, true},
		{"2026-01-22", -10, true},
		{"N/A", 0, false},
		{"", 0, false},
		{"2026/02/11", 0, false},
	}
	for _, tc := range cases {
		days, ok := DaysUntilExpiration(tc.expiration, today)
		if ok != tc.wantOK || days != tc.wantDays {
			t.Errorf("DaysUntilExpiration(%q) = (%d, %v), want (%d, %v)",
				tc.expiration, days, ok, tc.wantDays, tc.wantOK)
		}
	}
}

func TestIsNearExpiration(t *testing.T) {
	today := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		expiration string
		want       bool
	}{
		{"2026-02-15", true},  // 14日後
		{"2026-03-03", true},  // ちょうど30日後
		{"2026-03-04", false}, // 31日後
		{"2025-12-01", true},  // 期限切れ済み
		{"N/A", false},
		{"unknown", false},
	}
	for _, tc := range cases {
		if got := IsNearExpiration(tc.expiration, today, 30); got != tc.want {
			t.Errorf("IsNearExpiration(%q) = %v, want %v", tc.expiration, got, tc.want)
		}
	}
}
