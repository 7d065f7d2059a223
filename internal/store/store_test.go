package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func intPtr(v int) *int { return &v }

func TestRegisterUserCap(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.RegisterUser(ctx, domain.User{ID: 1, Username: "ann", FirstSeen: now}, 2))
	require.NoError(t, repo.RegisterUser(ctx, domain.User{ID: 2, Username: "bob", FirstSeen: now}, 2))

	err := repo.RegisterUser(ctx, domain.User{ID: 3, Username: "eve", FirstSeen: now}, 2)
	assert.ErrorIs(t, err, ErrUserCapReached)

	// existing users re-register without hitting the cap
	require.NoError(t, repo.RegisterUser(ctx, domain.User{ID: 1, Username: "ann2", FirstSeen: now}, 2))

	u, err := repo.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ann2", u.Username)

	n, err := repo.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := repo.IsRegistered(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrefsRoundTripAndListDue(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.RegisterUser(ctx, domain.User{ID: 10, FirstSeen: now}, 0))

	due := now.Add(-time.Minute)
	p := &domain.Prefs{
		UserID:        10,
		Timezone:      "Europe/Paris",
		RemindersOn:   true,
		MorningM:      7 * 60,
		EveningM:      22 * 60,
		MorningOn:     true,
		EveningOn:     true,
		Onboarded:     true,
		NextMorningAt: &due,
	}
	require.NoError(t, repo.UpsertPrefs(ctx, p))

	got, err := repo.GetPrefs(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", got.Timezone)
	assert.Equal(t, 7*60, got.MorningM)
	assert.True(t, got.Onboarded)
	require.NotNil(t, got.NextMorningAt)
	assert.True(t, got.NextMorningAt.Equal(due))
	assert.Nil(t, got.NextEveningAt)

	morning, err := repo.ListDue(ctx, domain.KindMorning, now, 50)
	require.NoError(t, err)
	require.Len(t, morning, 1)
	assert.Equal(t, int64(10), morning[0].UserID)

	evening, err := repo.ListDue(ctx, domain.KindEvening, now, 50)
	require.NoError(t, err)
	assert.Empty(t, evening)

	// clearing next fire removes the row from the scan
	require.NoError(t, repo.SetNextFire(ctx, 10, domain.KindMorning, nil))
	morning, err = repo.ListDue(ctx, domain.KindMorning, now, 50)
	require.NoError(t, err)
	assert.Empty(t, morning)

	// a future instant is not due yet
	future := now.Add(time.Hour)
	require.NoError(t, repo.SetNextFire(ctx, 10, domain.KindEvening, &future))
	evening, err = repo.ListDue(ctx, domain.KindEvening, now, 50)
	require.NoError(t, err)
	assert.Empty(t, evening)

	assert.ErrorIs(t, repo.SetNextFire(ctx, 99, domain.KindMorning, &future), ErrNotFound)
}

func TestListDueSkipsDisabled(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	due := now.Add(-time.Minute)

	require.NoError(t, repo.RegisterUser(ctx, domain.User{ID: 20, FirstSeen: now}, 0))
	p := &domain.Prefs{
		UserID: 20, Timezone: "UTC",
		RemindersOn: false, MorningOn: true, EveningOn: true,
		MorningM: 420, EveningM: 1320,
		NextMorningAt: &due,
	}
	require.NoError(t, repo.UpsertPrefs(ctx, p))

	got, err := repo.ListDue(ctx, domain.KindMorning, now, 50)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListUserIDsRequiresPrefs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.RegisterUser(ctx, domain.User{ID: 25, FirstSeen: now}, 0))
	require.NoError(t, repo.RegisterUser(ctx, domain.User{ID: 26, FirstSeen: now}, 0))
	require.NoError(t, repo.UpsertPrefs(ctx, &domain.Prefs{
		UserID: 26, Timezone: "UTC", MorningM: 420, EveningM: 1320,
	}))

	// only users that finished /start far enough to get preferences
	ids, err := repo.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{26}, ids)
}

func TestSessions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.RegisterUser(ctx, domain.User{ID: 30, FirstSeen: now}, 0))

	s := &domain.Session{
		ID:        "30_morning_20250505_073000",
		UserID:    30,
		Kind:      domain.KindMorning,
		Date:      "2025-05-05",
		Time:      "07:30:00",
		Timestamp: now,
		Energy:    intPtr(7),
		Mood:      intPtr(8),
		Intention: "focus",
		Answers:   map[string]string{"energy_level": "7", "mood": "8", "intention": "focus"},
	}
	require.NoError(t, repo.SaveSession(ctx, s))

	// same user, kind and date must be rejected
	dup := *s
	dup.ID = "30_morning_20250505_073001"
	assert.Error(t, repo.SaveSession(ctx, &dup))

	today, err := repo.TodaySessions(ctx, 30, "2025-05-05")
	require.NoError(t, err)
	require.Contains(t, today, domain.KindMorning)
	got := today[domain.KindMorning]
	require.NotNil(t, got.Energy)
	assert.Equal(t, 7, *got.Energy)
	assert.Nil(t, got.Stress)
	assert.Equal(t, "focus", got.Answers["intention"])

	eve := &domain.Session{
		ID: "30_evening_20250506_220000", UserID: 30, Kind: domain.KindEvening,
		Date: "2025-05-06", Time: "22:00:00", Timestamp: now.Add(24 * time.Hour),
		Mood: intPtr(6), Stress: intPtr(4), DayWord: "full",
		Reflection: "Long day but good progress.",
		Answers:    map[string]string{"mood": "6"},
	}
	require.NoError(t, repo.SaveSession(ctx, eve))

	between, err := repo.SessionsBetween(ctx, 30, "2025-05-05", "2025-05-11")
	require.NoError(t, err)
	require.Len(t, between, 2)
	assert.Equal(t, domain.KindMorning, between[0].Kind)

	all, err := repo.AllSessions(ctx, 30)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	st, err := repo.UserStats(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Morning)
	assert.Equal(t, 1, st.Evening)
	assert.Equal(t, 2, st.UniqueDates)
	assert.Equal(t, "2025-05-05", st.FirstDate)

	empty, err := repo.UserStats(ctx, 31)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
}

func TestReports(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.RegisterUser(ctx, domain.User{ID: 40, FirstSeen: now}, 0))

	mk := func(weekStart, key string, content string) *domain.Report {
		return &domain.Report{
			UserID: 40, WeekKey: key, WeekStart: weekStart,
			WeekEnd: weekStart, Year: 2025, WeekNumber: 1,
			Content: content, InputData: "{}", DaysCount: 4,
			Model: "openai/gpt-5", Attempts: 1, GeneratedAt: now,
		}
	}
	require.NoError(t, repo.SaveReport(ctx, mk("2025-04-28", "2025_week_18", "week 18 summary")))
	require.NoError(t, repo.SaveReport(ctx, mk("2025-05-05", "2025_week_19", "week 19 summary")))

	rep, err := repo.GetReport(ctx, 40, "2025_week_19")
	require.NoError(t, err)
	assert.Equal(t, "week 19 summary", rep.Content)
	assert.Equal(t, 4, rep.DaysCount)

	_, err = repo.GetReport(ctx, 40, "2025_week_20")
	assert.ErrorIs(t, err, ErrNotFound)

	// regeneration replaces content
	upd := mk("2025-05-05", "2025_week_19", "regenerated")
	upd.Attempts = 2
	require.NoError(t, repo.SaveReport(ctx, upd))
	rep, err = repo.GetReport(ctx, 40, "2025_week_19")
	require.NoError(t, err)
	assert.Equal(t, "regenerated", rep.Content)
	assert.Equal(t, 2, rep.Attempts)

	list, err := repo.ListReports(ctx, 40, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2025_week_19", list[0].WeekKey)

	prev, err := repo.PreviousReportContents(ctx, 40, "2025-05-05", 3)
	require.NoError(t, err)
	require.Len(t, prev, 1)
	assert.Equal(t, "week 18 summary", prev[0])
}

func TestFailuresAndRetries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.RegisterUser(ctx, domain.User{ID: 50, FirstSeen: now}, 0))

	past := now.Add(-time.Hour)
	require.NoError(t, repo.SaveFailure(ctx, &domain.ReportFailure{
		UserID: 50, WeekStart: "2025-05-05", Error: "timeout",
		Model: "openai/gpt-5", RetryAt: &past, CreatedAt: now.Add(-2 * time.Hour),
	}))
	require.NoError(t, repo.SaveFailure(ctx, &domain.ReportFailure{
		UserID: 50, WeekStart: "2025-05-05", Error: "timeout again",
		Model: "openai/gpt-5", RetryAt: &past, CreatedAt: now.Add(-time.Hour),
	}))

	pending, err := repo.PendingRetries(ctx, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(50), pending[0].UserID)
	assert.Equal(t, "2025-05-05", pending[0].WeekStart)
	assert.Equal(t, 2, pending[0].Attempts)

	// a retry scheduled in the future is not pending
	future := now.Add(48 * time.Hour)
	require.NoError(t, repo.SaveFailure(ctx, &domain.ReportFailure{
		UserID: 50, WeekStart: "2025-05-12", Error: "rate limited",
		RetryAt: &future, CreatedAt: now,
	}))
	pending, err = repo.PendingRetries(ctx, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.ClearFailures(ctx, 50, "2025-05-05"))
	pending, err = repo.PendingRetries(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAdminNotes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.AddAdminNote(ctx, &domain.AdminNote{
		Type: "report_failure", UserID: 50, Message: "generation failed", CreatedAt: now,
	}))
	require.NoError(t, repo.AddAdminNote(ctx, &domain.AdminNote{
		Type: "system", Message: "disk almost full", DataJSON: `{"free_mb":120}`, CreatedAt: now.Add(time.Second),
	}))

	notes, err := repo.PendingAdminNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "report_failure", notes[0].Type)
	assert.Equal(t, int64(50), notes[0].UserID)
	assert.Zero(t, notes[1].UserID)
	assert.Equal(t, `{"free_mb":120}`, notes[1].DataJSON)

	sent, err := repo.AdminNotifiedToday(ctx, "2025-05-07")
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, repo.MarkAdminNotified(ctx, "2025-05-07"))
	sent, err = repo.AdminNotifiedToday(ctx, "2025-05-07")
	require.NoError(t, err)
	assert.True(t, sent)

	require.NoError(t, repo.ClearPendingAdminNotes(ctx))
	notes, err = repo.PendingAdminNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}
