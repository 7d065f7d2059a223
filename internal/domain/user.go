package domain

import "time"

// Kind distinguishes the two daily check-in types.
type Kind string

const (
	KindMorning Kind = "morning"
	KindEvening Kind = "evening"
)

// Valid reports whether k is a known check-in kind.
func (k Kind) Valid() bool {
	return k == KindMorning || k == KindEvening
}

// User is a registered Telegram user.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	FirstSeen time.Time // UTC
	IsAdmin   bool
}

// Prefs holds per-user reminder settings and denormalized schedule state.
type Prefs struct {
	UserID      int64
	Timezone    string // IANA name
	RemindersOn bool
	MorningM    int // reminder time, minutes since local midnight (0..1439)
	EveningM    int
	MorningOn   bool
	EveningOn   bool
	Onboarded   bool
	LastSetup   *time.Time // UTC, nullable
	LastExport  *time.Time // UTC, nullable

	// Next scheduled reminder instants, UTC, nullable while disabled.
	NextMorningAt *time.Time
	NextEveningAt *time.Time

	UpdatedAt time.Time // UTC
}

// ReminderTime returns the configured local reminder time for a kind.
func (p *Prefs) ReminderTime(k Kind) int {
	if k == KindMorning {
		return p.MorningM
	}
	return p.EveningM
}

// KindEnabled reports whether reminders for a kind are on (globally and per kind).
func (p *Prefs) KindEnabled(k Kind) bool {
	if !p.RemindersOn {
		return false
	}
	if k == KindMorning {
		return p.MorningOn
	}
	return p.EveningOn
}

// Session is one completed check-in. Scale answers are nullable because the
// morning and evening questionnaires populate different columns; the raw
// answer map is always kept alongside as a backup.
type Session struct {
	ID         string // <user>_<kind>_<YYYYMMDD_HHMMSS>
	UserID     int64
	Kind       Kind
	Date       string // local YYYY-MM-DD
	Time       string // local HH:MM:SS
	Timestamp  time.Time // UTC
	Energy     *int
	Mood       *int
	Stress     *int
	Intention  string
	DayWord    string
	Reflection string
	Answers    map[string]string
}

// Stats is the per-user aggregate exposed by the user_stats view.
type Stats struct {
	Total       int
	Morning     int
	Evening     int
	FirstDate   string
	LastDate    string
	UniqueDates int
}

// Report is an AI-generated weekly summary keyed by user and ISO week.
type Report struct {
	UserID      int64
	WeekKey     string // YYYY_week_NN
	WeekStart   string // Monday, YYYY-MM-DD
	WeekEnd     string
	Year        int
	WeekNumber  int
	Content     string
	InputData   string
	DaysCount   int
	Model       string
	Attempts    int
	GeneratedAt time.Time // UTC
}

// ReportFailure records one failed generation attempt with retry bookkeeping.
type ReportFailure struct {
	UserID    int64
	WeekStart string
	Error     string
	Model     string
	RetryAt   *time.Time // UTC, nullable when no retry is scheduled
	CreatedAt time.Time  // UTC
	Attempts  int        // aggregate count, populated by pending-retry queries
}

// AdminNote is a queued operational issue for the daily admin summary.
type AdminNote struct {
	ID        int64
	Type      string
	UserID    int64 // 0 for system-wide notes
	Message   string
	DataJSON  string
	CreatedAt time.Time // UTC
}
