package cronsched

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, expr string) Schedule {
	t.Helper()
	s, err := Parse(expr)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", expr, err)
	}
	return s
}

func TestParse_RejectsGarbage(t *testing.T) {
	if _, err := Parse("not-a-schedule"); err == nil {
		t.Fatal("Parse() error = nil, want error for garbage input")
	}
}

func TestNextRun_Daily(t *testing.T) {
	s := mustParse(t, "09:30")
	now := time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC)
	got := s.NextRun(now)
	want := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextRun() = %v, want %v", got, want)
	}
}

func TestNextRun_DailyRollsToTomorrowWhenPassed(t *testing.T) {
	s := mustParse(t, "09:30")
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	got := s.NextRun(now)
	want := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextRun() = %v, want %v", got, want)
	}
}

func TestNextRun_Weekly(t *testing.T) {
	s := mustParse(t, "@weekly")
	// 2026-07-31 is a Friday.
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	got := s.NextRun(now)
	if got.Weekday() != time.Sunday {
		t.Errorf("NextRun() weekday = %v, want Sunday", got.Weekday())
	}
	if !got.After(now) {
		t.Errorf("NextRun() = %v, want strictly after %v", got, now)
	}
}

func TestNextRun_Monthly(t *testing.T) {
	s := mustParse(t, "@monthly")
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	got := s.NextRun(now)
	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextRun() = %v, want %v", got, want)
	}
}

func TestNextRun_Yearly(t *testing.T) {
	s := mustParse(t, "@yearly")
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	got := s.NextRun(now)
	want := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextRun() = %v, want %v", got, want)
	}
}
