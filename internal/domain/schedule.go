package domain

import "time"

// Check-in windows in minutes since local midnight. The evening window
// wraps past midnight: 15:00 today until 05:00 the next day.
const (
	MorningWindowFromM = 5 * 60
	MorningWindowToM   = 12 * 60
	EveningWindowFromM = 15 * 60
	EveningWindowToM   = 5 * 60
)

// InWindow returns true if local time (minutes since midnight) is inside the
// window. Supports wrap-around windows like 15:00–05:00 (fromM > toM).
func InWindow(localM, fromM, toM int) bool {
	if fromM == toM {
		return false // zero-length window
	}
	if fromM < toM {
		return localM >= fromM && localM < toM
	}
	// wrap: [from..1440) U [0..to)
	return localM >= fromM || localM < toM
}

// WindowFor returns the check-in window boundaries for a kind.
func WindowFor(k Kind) (fromM, toM int) {
	if k == KindMorning {
		return MorningWindowFromM, MorningWindowToM
	}
	return EveningWindowFromM, EveningWindowToM
}

// CheckinAllowed reports whether a check-in of the given kind may start at
// localNow (a time already in the user's location).
func CheckinAllowed(k Kind, localNow time.Time) bool {
	fromM, toM := WindowFor(k)
	return InWindow(localNow.Hour()*60+localNow.Minute(), fromM, toM)
}

// SessionDate returns the local calendar date a check-in at localNow belongs
// to. Evening check-ins finished after midnight (before 05:00) count toward
// the previous day.
func SessionDate(k Kind, localNow time.Time) string {
	if k == KindEvening && localNow.Hour()*60+localNow.Minute() < EveningWindowToM {
		return localNow.AddDate(0, 0, -1).Format(DateLayout)
	}
	return localNow.Format(DateLayout)
}

// NextDaily computes the next UTC instant at which the user's local clock in
// tz reads the given minute of day: later today if still ahead, otherwise
// tomorrow. Wall-clock construction keeps the local time stable across DST.
func NextDaily(nowUTC time.Time, minuteOfDay int, tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	localNow := nowUTC.In(loc)
	h, m := minuteOfDay/60, minuteOfDay%60
	next := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), h, m, 0, 0, loc)
	if !next.After(localNow) {
		next = time.Date(localNow.Year(), localNow.Month(), localNow.Day()+1, h, m, 0, 0, loc)
	}
	return next.UTC()
}
