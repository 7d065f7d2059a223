package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/ai"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/store"
)

type fakeGenerator struct {
	content string
	err     error
	calls   int
}

func (f *fakeGenerator) Generate(ctx context.Context, weekData string, previous []string) (string, ai.Meta, error) {
	f.calls++
	meta := ai.Meta{Model: "test-model"}
	if f.err != nil {
		meta.ErrorType = "api_error"
		return "", meta, f.err
	}
	return f.content, meta, nil
}

func (f *fakeGenerator) Model() string { return "test-model" }

type fakeNotifier struct {
	messages map[int64][]string
}

func newFakeNotifier() *fakeNotifier { return &fakeNotifier{messages: map[int64][]string{}} }

func (f *fakeNotifier) NotifyUser(userID int64, text string) error {
	f.messages[userID] = append(f.messages[userID], text)
	return nil
}

type fakeAdminSender struct {
	sent []string
}

func (f *fakeAdminSender) NotifyAdmin(text string) error {
	f.sent = append(f.sent, text)
	return nil
}

type fixture struct {
	repo     store.Repo
	gen      *fakeGenerator
	notifier *fakeNotifier
	adminTx  *fakeAdminSender
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "report.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	gen := &fakeGenerator{content: strings.Repeat("A thoughtful weekly reflection. ", 5)}
	notifier := newFakeNotifier()
	adminTx := &fakeAdminSender{}
	admin := NewAdminNotifier(repo, adminTx, zap.NewNop())
	svc := NewService(repo, gen, notifier, admin, zap.NewNop())
	return &fixture{repo: repo, gen: gen, notifier: notifier, adminTx: adminTx, svc: svc}
}

// seedWeek creates an onboarded user with check-ins on n distinct days of
// the week.
func seedWeek(t *testing.T, repo store.Repo, userID int64, weekStart time.Time, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.RegisterUser(ctx, domain.User{ID: userID, FirstSeen: time.Now().UTC()}, 0))
	require.NoError(t, repo.UpsertPrefs(ctx, &domain.Prefs{
		UserID:      userID,
		Timezone:    "Europe/Paris",
		RemindersOn: true,
		MorningM:    7 * 60,
		EveningM:    22 * 60,
		MorningOn:   true,
		EveningOn:   true,
		Onboarded:   true,
	}))

	energy := 7
	for i := 0; i < n; i++ {
		date := weekStart.AddDate(0, 0, i).Format(domain.DateLayout)
		require.NoError(t, repo.SaveSession(ctx, &domain.Session{
			ID:        fmt.Sprintf("%d_morning_%s", userID, date),
			UserID:    userID,
			Kind:      domain.KindMorning,
			Date:      date,
			Time:      "07:30:00",
			Timestamp: weekStart.AddDate(0, 0, i).Add(7*time.Hour + 30*time.Minute),
			Energy:    &energy,
			Intention: "focus",
			Answers:   map[string]string{"energy_level": "7"},
		}))
	}
}

func TestGenerateSuccess(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	weekStart := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)
	seedWeek(t, fx.repo, 1, weekStart, 4)

	require.NoError(t, fx.svc.Generate(ctx, 1, weekStart, 1))

	rep, err := fx.repo.GetReport(ctx, 1, "2025_week_19")
	require.NoError(t, err)
	assert.Equal(t, fx.gen.content, rep.Content)
	assert.Equal(t, 4, rep.DaysCount)
	assert.Equal(t, "test-model", rep.Model)
	assert.Equal(t, 1, rep.Attempts)
	assert.Equal(t, "2025-05-05", rep.WeekStart)
	assert.Equal(t, "2025-05-11", rep.WeekEnd)

	require.Len(t, fx.notifier.messages[1], 1)
	assert.Contains(t, fx.notifier.messages[1][0], "Week of May 5-11, 2025")
	assert.Contains(t, fx.notifier.messages[1][0], fx.gen.content)
}

func TestGenerateInsufficientData(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	weekStart := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)
	seedWeek(t, fx.repo, 2, weekStart, 2)

	err := fx.svc.Generate(ctx, 2, weekStart, 1)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Zero(t, fx.gen.calls)

	// thin weeks never enter the retry cycle
	pending, err := fx.repo.PendingRetries(ctx, time.Now().UTC().Add(72*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestGenerateFailureSchedulesRetry(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.gen.err = errors.New("rate limited")
	weekStart := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)
	seedWeek(t, fx.repo, 3, weekStart, 3)

	err := fx.svc.Generate(ctx, 3, weekStart, 1)
	require.Error(t, err)

	pending, err := fx.repo.PendingRetries(ctx, time.Now().UTC().Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].RetryAt)
	assert.True(t, pending[0].RetryAt.After(time.Now().UTC().Add(24*time.Hour)))

	require.Len(t, fx.notifier.messages[3], 1)
	assert.Contains(t, fx.notifier.messages[3][0], "retry")

	notes, err := fx.repo.PendingAdminNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "report_failure", notes[0].Type)
}

func TestGenerateFinalFailureStopsRetrying(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.gen.err = errors.New("still broken")
	weekStart := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)
	seedWeek(t, fx.repo, 4, weekStart, 3)

	require.Error(t, fx.svc.Generate(ctx, 4, weekStart, maxAttempts))

	// last attempt gets no retry schedule
	pending, err := fx.repo.PendingRetries(ctx, time.Now().UTC().Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.Len(t, fx.notifier.messages[4], 1)
	assert.Contains(t, fx.notifier.messages[4][0], "skipped")
}

func TestProcessRetriesSucceeds(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	weekStart := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)
	seedWeek(t, fx.repo, 5, weekStart, 3)

	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, fx.repo.SaveFailure(ctx, &domain.ReportFailure{
		UserID: 5, WeekStart: "2025-05-05", Error: "timeout",
		RetryAt: &past, CreatedAt: past,
	}))

	fx.svc.ProcessRetries(ctx, time.Now().UTC())

	rep, err := fx.repo.GetReport(ctx, 5, "2025_week_19")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Attempts)

	pending, err := fx.repo.PendingRetries(ctx, time.Now().UTC().Add(72*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessRetriesGivesUpAfterMaxAttempts(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	weekStart := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)
	seedWeek(t, fx.repo, 6, weekStart, 3)

	past := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < maxAttempts; i++ {
		require.NoError(t, fx.repo.SaveFailure(ctx, &domain.ReportFailure{
			UserID: 6, WeekStart: "2025-05-05", Error: "timeout",
			RetryAt: &past, CreatedAt: past,
		}))
	}

	fx.svc.ProcessRetries(ctx, time.Now().UTC())

	assert.Zero(t, fx.gen.calls, "no further generation after the limit")
	pending, err := fx.repo.PendingRetries(ctx, time.Now().UTC().Add(72*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.Len(t, fx.notifier.messages[6], 1)
	assert.Contains(t, fx.notifier.messages[6][0], "skipped")
}

func TestProcessRetriesNotifiesSkippedWeekOnce(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.gen.err = errors.New("still broken")
	weekStart := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)
	seedWeek(t, fx.repo, 8, weekStart, 3)

	// two earlier attempts already on record
	past := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < maxAttempts-1; i++ {
		require.NoError(t, fx.repo.SaveFailure(ctx, &domain.ReportFailure{
			UserID: 8, WeekStart: "2025-05-05", Error: "timeout",
			RetryAt: &past, CreatedAt: past,
		}))
	}

	// the final attempt fails and closes the week
	fx.svc.ProcessRetries(ctx, time.Now().UTC())
	require.Len(t, fx.notifier.messages[8], 1)
	assert.Contains(t, fx.notifier.messages[8][0], "skipped")

	pending, err := fx.repo.PendingRetries(ctx, time.Now().UTC().Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, pending, "closed week must leave no retry rows behind")

	// the next sweep must not tell the user again
	fx.svc.ProcessRetries(ctx, time.Now().UTC().Add(6*time.Hour))
	assert.Len(t, fx.notifier.messages[8], 1)

	notes, err := fx.repo.PendingAdminNotes(ctx)
	require.NoError(t, err)
	var abandoned int
	for _, n := range notes {
		if n.Type == "report_abandoned" {
			abandoned++
		}
	}
	assert.Zero(t, abandoned, "closed weeks never reach the give-up path")
}

func TestRunWeeklyIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	// a Wednesday; the run targets the week before
	now := time.Date(2025, time.May, 14, 12, 0, 0, 0, time.UTC)
	weekStart := domain.PreviousWeekStart(now)
	seedWeek(t, fx.repo, 7, weekStart, 3)

	fx.svc.RunWeekly(ctx, now)
	assert.Equal(t, 1, fx.gen.calls)

	fx.svc.RunWeekly(ctx, now)
	assert.Equal(t, 1, fx.gen.calls, "existing report must be skipped")
}

func TestAdminNotifierImmediateThreshold(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	admin := NewAdminNotifier(fx.repo, fx.adminTx, zap.NewNop())

	for i := 0; i < immediateThreshold-1; i++ {
		admin.Record(ctx, &domain.AdminNote{Type: "report_failure", Message: "boom"})
	}
	assert.Empty(t, fx.adminTx.sent)

	admin.Record(ctx, &domain.AdminNote{Type: "report_failure", Message: "boom"})
	require.Len(t, fx.adminTx.sent, 1)
	assert.Contains(t, fx.adminTx.sent[0], "Immediate alert")

	// the queue was flushed
	notes, err := fx.repo.PendingAdminNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestAdminNotifierDailySummaryOncePerDay(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	admin := NewAdminNotifier(fx.repo, fx.adminTx, zap.NewNop())
	now := time.Date(2025, time.May, 7, 10, 0, 0, 0, time.UTC)

	// nothing queued, nothing sent
	admin.DailySummary(ctx, now)
	assert.Empty(t, fx.adminTx.sent)

	admin.Record(ctx, &domain.AdminNote{Type: "system", Message: "db slow"})
	admin.DailySummary(ctx, now)
	require.Len(t, fx.adminTx.sent, 1)
	assert.Contains(t, fx.adminTx.sent[0], "Daily summary")

	admin.Record(ctx, &domain.AdminNote{Type: "system", Message: "db slow again"})
	admin.DailySummary(ctx, now)
	assert.Len(t, fx.adminTx.sent, 1, "second summary on the same day is suppressed")
}
