package domain

import (
	"testing"
	"time"
)

// helper: build a time in given tz and return its UTC
func mustLocalUTC(t *testing.T, tz string, y int, m time.Month, d, hh, mm int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	lt := time.Date(y, m, d, hh, mm, 0, 0, loc)
	return lt.UTC()
}

func TestNextDaily_LaterToday(t *testing.T) {
	// 06:30 local, reminder at 07:00 → today 07:00
	nowUTC := mustLocalUTC(t, "Europe/Paris", 2025, time.May, 5, 6, 30)
	next := NextDaily(nowUTC, 7*60, "Europe/Paris")
	got, err := LocalizeTime(next, "Europe/Paris")
	if err != nil {
		t.Fatalf("localize: %v", err)
	}
	if got != "07:00" {
		t.Fatalf("want 07:00, got %s", got)
	}
	if next.Sub(nowUTC) != 30*time.Minute {
		t.Fatalf("want 30m ahead, got %s", next.Sub(nowUTC))
	}
}

func TestNextDaily_Tomorrow(t *testing.T) {
	// 07:00 local exactly → tomorrow 07:00 (never fires twice at the same instant)
	nowUTC := mustLocalUTC(t, "Europe/Paris", 2025, time.May, 5, 7, 0)
	next := NextDaily(nowUTC, 7*60, "Europe/Paris")
	wantUTC := mustLocalUTC(t, "Europe/Paris", 2025, time.May, 6, 7, 0)
	if !next.Equal(wantUTC) {
		t.Fatalf("want %s, got %s", wantUTC, next)
	}
}

func TestNextDaily_DSTSpringForward(t *testing.T) {
	// Europe/Paris jumps 02:00→03:00 on 2025-03-30. A 22:00 reminder the
	// evening before must land on local 22:00 the next day regardless.
	nowUTC := mustLocalUTC(t, "Europe/Paris", 2025, time.March, 29, 23, 0)
	next := NextDaily(nowUTC, 22*60, "Europe/Paris")
	got, _ := LocalizeTime(next, "Europe/Paris")
	if got != "22:00" {
		t.Fatalf("want 22:00 local, got %s", got)
	}
	if d := next.In(time.UTC).Sub(nowUTC); d != 22*time.Hour {
		// 23h of wall time minus the lost hour.
		t.Fatalf("want 22h of real time, got %s", d)
	}
}

func TestNextDaily_BadTimezoneFallsBackToUTC(t *testing.T) {
	nowUTC := time.Date(2025, time.May, 5, 10, 0, 0, 0, time.UTC)
	next := NextDaily(nowUTC, 12*60, "Not/AZone")
	want := time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("want %s, got %s", want, next)
	}
}

func TestInWindow_Normal(t *testing.T) {
	if !InWindow(9*60, MorningWindowFromM, MorningWindowToM) {
		t.Fatal("09:00 should be inside the morning window")
	}
	if InWindow(12*60, MorningWindowFromM, MorningWindowToM) {
		t.Fatal("12:00 should be outside the morning window")
	}
	if InWindow(4*60+59, MorningWindowFromM, MorningWindowToM) {
		t.Fatal("04:59 should be outside the morning window")
	}
}

func TestInWindow_Wrap(t *testing.T) {
	cases := []struct {
		localM int
		want   bool
	}{
		{15 * 60, true},       // 15:00 opens the window
		{23*60 + 30, true},    // late evening
		{1 * 60, true},        // past midnight
		{5 * 60, false},       // 05:00 closes it
		{12 * 60, false},      // midday
	}
	for _, c := range cases {
		if got := InWindow(c.localM, EveningWindowFromM, EveningWindowToM); got != c.want {
			t.Errorf("InWindow(%s) = %v, want %v", FormatMinutes(c.localM), got, c.want)
		}
	}
}

func TestSessionDate_EveningAfterMidnight(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Paris")
	at := time.Date(2025, time.May, 6, 1, 30, 0, 0, loc)
	if got := SessionDate(KindEvening, at); got != "2025-05-05" {
		t.Fatalf("evening at 01:30 should belong to 2025-05-05, got %s", got)
	}
	if got := SessionDate(KindMorning, at); got != "2025-05-06" {
		t.Fatalf("morning date should be 2025-05-06, got %s", got)
	}
}

func TestCheckinAllowed(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Paris")
	morningOK := time.Date(2025, time.May, 5, 8, 0, 0, 0, loc)
	if !CheckinAllowed(KindMorning, morningOK) {
		t.Fatal("08:00 morning check-in should be allowed")
	}
	if CheckinAllowed(KindEvening, morningOK) {
		t.Fatal("08:00 evening check-in should be rejected")
	}
	lateNight := time.Date(2025, time.May, 5, 2, 0, 0, 0, loc)
	if !CheckinAllowed(KindEvening, lateNight) {
		t.Fatal("02:00 evening check-in should still be allowed")
	}
}
