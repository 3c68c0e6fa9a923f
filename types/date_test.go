package types

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-15")
	if err != nil {
		t.Fatal(err)
	}
	if d != (Date{Year: 2024, Month: time.January, Day: 15}) {
		t.Errorf("got %+v", d)
	}
	if d.String() != "2024-01-15" {
		t.Errorf("String: got %s", d.String())
	}

	for _, bad := range []string{"", "2024-13-01", "15/01/2024", "2024-02-30"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q): expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		from   string
		months int
		want   string
	}{
		{"2024-01-15", 1, "2024-02-15"},
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-12-10", 1, "2025-01-10"},
		{"2024-03-31", -1, "2024-02-29"},
		{"2024-01-15", -1, "2023-12-15"},
		{"2024-05-20", 0, "2024-05-20"},
		{"2024-01-15", 12, "2025-01-15"},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			got := MustParseDate(tt.from).AddMonths(tt.months)
			if got.String() != tt.want {
				t.Errorf("%s + %d months: got %s, want %s", tt.from, tt.months, got, tt.want)
			}
		})
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		from, to string
		want     int
	}{
		{"2024-01-15", "2024-01-31", 0},
		{"2024-01-15", "2024-02-14", 0},
		{"2024-01-15", "2024-02-15", 1},
		{"2024-01-31", "2024-02-29", 0},
		{"2024-01-15", "2025-01-15", 12},
		{"2024-03-15", "2024-01-20", -1},
	}

	for _, tt := range tests {
		if got := MonthsBetween(MustParseDate(tt.from), MustParseDate(tt.to)); got != tt.want {
			t.Errorf("MonthsBetween(%s, %s): got %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestDaysUntil(t *testing.T) {
	today := MustParseDate("2024-01-15")
	if got := today.DaysUntil(MustParseDate("2024-02-15")); got != 31 {
		t.Errorf("got %d, want 31", got)
	}
	if got := today.DaysUntil(MustParseDate("2024-01-10")); got != -5 {
		t.Errorf("got %d, want -5", got)
	}
	if got := today.DaysUntil(today); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestDateOrdering(t *testing.T) {
	a, b := MustParseDate("2024-01-15"), MustParseDate("2024-01-16")
	if !a.Before(b) || a.After(b) || !b.After(a) {
		t.Error("ordering mismatch")
	}
	if a.AddDays(1) != b {
		t.Error("AddDays mismatch")
	}
	if NewDate(2024, time.February, 30) != MustParseDate("2024-03-01") {
		t.Error("NewDate should normalize overflowing days")
	}
}

func TestDateText(t *testing.T) {
	var d Date
	if err := d.UnmarshalText([]byte("2024-06-01")); err != nil {
		t.Fatal(err)
	}
	out, err := d.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "2024-06-01" {
		t.Errorf("got %s", out)
	}
	if err := d.UnmarshalText(nil); err != nil || !d.IsZero() {
		t.Errorf("empty text should yield zero date, got %v %v", d, err)
	}
}
