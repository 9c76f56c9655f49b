package consumables

import "testing"

func TestToInt(t *testing.T) {
	cases := []struct {
		name string
		in   any
		def  int
		want int
	}{
		{"int", 5, 0, 5},
		{"int64", int64(7), 0, 7},
		{"json number", float64(12), 0, 12},
		{"numeric string", "42", 0, 42},
		{"padded string", "  8 ", 0, 8},
		{"negative string", "-3", 0, -3},
		{"empty string", "", 9, 9},
		{"na sentinel", "N/A", 9, 9},
		{"na lowercase", "n/a", 9, 9},
		{"garbage", "abc", 9, 9},
		{"nil", nil, 9, 9},
		{"bool", true, 9, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ToInt(tc.in, tc.def); got != tc.want {
				t.Errorf("ToInt(%v, %d) = %d, want %d", tc.in, tc.def, got, tc.want)
			}
		})
	}
}

func TestClampNonNeg(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{5, 5},
		{0, 0},
		{-1, 0},
		{"-10", 0},
		{"3", 3},
		{"N/A", 0},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := ClampNonNeg(tc.in); got != tc.want {
			t.Errorf("ClampNonNeg(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestLessByExpiration(t *testing.T) {
	// ISO日付はそれ以外より先、日付同士は昇順、不明値同士は同順
	if !lessByExpiration("2025-01-01", "2029-01-01") {
		t.Error("earlier date should sort first")
	}
	if !lessByExpiration("2029-01-01", "N/A") {
		t.Error("date should sort before N/A")
	}
	if lessByExpiration("N/A", "2029-01-01") {
		t.Error("N/A should not sort before a date")
	}
	if lessByExpiration("N/A", "") || lessByExpiration("", "N/A") {
		t.Error("unknown values should compare equal to each other")
	}
	if lessByExpiration("2027-06-15", "2027-06-15") {
		t.Error("equal dates should not be less")
	}
	// 10文字・ハイフン2個を満たさないものは不明値扱い
	if lessByExpiration("2027/06/15", "2029-01-01") {
		t.Error("slash-formatted date is an unknown value and sorts last")
	}
}
