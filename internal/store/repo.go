package store

import (
	"context"
	"errors"
	"time"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrUserCapReached is returned by RegisterUser once the registration
	// limit has been hit for a user not yet registered.
	ErrUserCapReached = errors.New("store: user capacity reached")
)

// Repo is the persistence surface used by the bot, scheduler and report
// pipeline. The only implementation is SQLite; the interface exists so tests
// of the higher layers can substitute fakes.
type Repo interface {
	// Users.
	RegisterUser(ctx context.Context, u domain.User, maxUsers int) error
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	IsRegistered(ctx context.Context, userID int64) (bool, error)
	UserCount(ctx context.Context) (int, error)
	// ListUserIDs returns users that have preferences stored, i.e. the
	// population the report runs iterate.
	ListUserIDs(ctx context.Context) ([]int64, error)

	// Reminder preferences.
	UpsertPrefs(ctx context.Context, p *domain.Prefs) error
	GetPrefs(ctx context.Context, userID int64) (*domain.Prefs, error)
	SetNextFire(ctx context.Context, userID int64, kind domain.Kind, next *time.Time) error
	ListDue(ctx context.Context, kind domain.Kind, now time.Time, limit int) ([]*domain.Prefs, error)
	SetLastExport(ctx context.Context, userID int64, at time.Time) error

	// Check-in sessions.
	SaveSession(ctx context.Context, s *domain.Session) error
	TodaySessions(ctx context.Context, userID int64, date string) (map[domain.Kind]*domain.Session, error)
	SessionsBetween(ctx context.Context, userID int64, fromDate, toDate string) ([]*domain.Session, error)
	AllSessions(ctx context.Context, userID int64) ([]*domain.Session, error)
	UserStats(ctx context.Context, userID int64) (*domain.Stats, error)

	// Weekly reports.
	SaveReport(ctx context.Context, r *domain.Report) error
	GetReport(ctx context.Context, userID int64, weekKey string) (*domain.Report, error)
	ListReports(ctx context.Context, userID int64, limit int) ([]*domain.Report, error)
	PreviousReportContents(ctx context.Context, userID int64, beforeWeekStart string, n int) ([]string, error)

	// Failure and retry bookkeeping.
	SaveFailure(ctx context.Context, f *domain.ReportFailure) error
	PendingRetries(ctx context.Context, now time.Time) ([]*domain.ReportFailure, error)
	ClearFailures(ctx context.Context, userID int64, weekStart string) error

	// Admin notification queue.
	AddAdminNote(ctx context.Context, n *domain.AdminNote) error
	PendingAdminNotes(ctx context.Context) ([]*domain.AdminNote, error)
	AdminNotifiedToday(ctx context.Context, date string) (bool, error)
	MarkAdminNotified(ctx context.Context, date string) error
	ClearPendingAdminNotes(ctx context.Context) error

	Close() error
}
