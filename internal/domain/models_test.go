package domain

import "testing"

func TestFormatClock(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{5, "00:05"},
		{59, "00:59"},
		{60, "01:00"},
		{119, "01:59"},
		{120, "02:00"},
		{-3, "00:00"},
	}
	for _, tc := range cases {
		if got := FormatClock(tc.seconds); got != tc.want {
			t.Fatalf("FormatClock(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
