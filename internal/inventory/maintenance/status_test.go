package maintenance

import (
	"testing"
	"time"
)

func TestDeriveStatus(t *testing.T) {
	today := time.Date(2026, 2, 1, 15, 30, 0, 0, time.UTC)
	done := "2026-01-20"
	empty := ""

	cases := []struct {
		name      string
		scheduled string
		completed *string
		want      string
	}{
		{"future date", "2026-03-01", nil, StatusScheduled},
		{"same day", "2026-02-01", nil, StatusScheduled},
		{"past date", "2026-01-15", nil, StatusOverdue},
		{"past but completed", "2026-01-15", &done, StatusCompleted},
		{"future and completed", "2026-03-01", &done, StatusCompleted},
		{"empty completed date is not completed", "2026-01-15", &empty, StatusOverdue},
		{"unparseable scheduled date", "soon", nil, StatusScheduled},
		{"empty scheduled date", "", nil, StatusScheduled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.scheduled, tc.completed, today); got != tc.want {
				t.Errorf("DeriveStatus(%q, %v) = %q, want %q", tc.scheduled, tc.completed, got, tc.want)
			}
		})
	}
}

func TestDeriveStatusIgnoresTimeOfDay(t *testing.T) {
	// 予定日当日は時刻に関係なく scheduled のまま
	for _, hour := range []int{0, 12, 23} {
		today := time.Date(2026, 2, 1, hour, 0, 0, 0, time.UTC)
		if got := DeriveStatus("2026-02-01", nil, today); got != StatusScheduled {
			t.Errorf("hour %d: got %q, want %q", hour, got, StatusScheduled)
		}
	}
}
