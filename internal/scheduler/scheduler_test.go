package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/store"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	calls int
}

func (r *recordingSender) SendReminder(userID int64, kind domain.Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail {
		return assert.AnError
	}
	r.sent = append(r.sent, string(kind))
	return nil
}

func setup(t *testing.T) (store.Repo, *recordingSender, *Scheduler) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sched.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	sender := &recordingSender{}
	return repo, sender, New(repo, sender, zap.NewNop())
}

func seedUser(t *testing.T, repo store.Repo, userID int64, nextMorning *time.Time) *domain.Prefs {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.RegisterUser(ctx, domain.User{ID: userID, FirstSeen: time.Now().UTC()}, 0))
	p := &domain.Prefs{
		UserID: userID, Timezone: "UTC",
		RemindersOn: true, MorningOn: true, EveningOn: true,
		MorningM: 7 * 60, EveningM: 22 * 60,
		Onboarded:     true,
		NextMorningAt: nextMorning,
	}
	require.NoError(t, repo.UpsertPrefs(ctx, p))
	return p
}

func TestTickSendsDueReminderAndAdvances(t *testing.T) {
	repo, sender, sched := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()
	due := now.Add(-time.Minute)
	seedUser(t, repo, 1, &due)

	sched.tick(ctx, now)

	assert.Equal(t, []string{"morning"}, sender.sent)

	p, err := repo.GetPrefs(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p.NextMorningAt)
	assert.True(t, p.NextMorningAt.After(now), "next fire must move into the future")

	// the same tick again finds nothing due
	sched.tick(ctx, now)
	assert.Len(t, sender.sent, 1)
}

func TestTickSkipsCompletedCheckin(t *testing.T) {
	repo, sender, sched := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()
	due := now.Add(-time.Minute)
	seedUser(t, repo, 2, &due)

	date := domain.SessionDate(domain.KindMorning, now)
	require.NoError(t, repo.SaveSession(ctx, &domain.Session{
		ID: "2_morning_test", UserID: 2, Kind: domain.KindMorning,
		Date: date, Time: "07:05:00", Timestamp: now,
		Answers: map[string]string{},
	}))

	sched.tick(ctx, now)

	assert.Empty(t, sender.sent)
	p, err := repo.GetPrefs(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, p.NextMorningAt)
	assert.True(t, p.NextMorningAt.After(now), "next fire advances even when skipped")
}

func TestTickAdvancesOnSendFailure(t *testing.T) {
	repo, sender, sched := setup(t)
	ctx := context.Background()
	sender.fail = true
	now := time.Now().UTC()
	due := now.Add(-time.Minute)
	seedUser(t, repo, 3, &due)

	sched.tick(ctx, now)
	assert.Equal(t, 1, sender.calls)

	// failed send does not leave the row due
	sched.tick(ctx, now)
	assert.Equal(t, 1, sender.calls)
}

func TestReschedule(t *testing.T) {
	repo, _, _ := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()
	p := seedUser(t, repo, 4, nil)

	require.NoError(t, Reschedule(ctx, repo, p, now))
	got, err := repo.GetPrefs(ctx, 4)
	require.NoError(t, err)
	require.NotNil(t, got.NextMorningAt)
	require.NotNil(t, got.NextEveningAt)
	assert.True(t, got.NextMorningAt.After(now))

	// disabling a kind clears its instant
	p.EveningOn = false
	require.NoError(t, repo.UpsertPrefs(ctx, p))
	require.NoError(t, Reschedule(ctx, repo, p, now))
	got, err = repo.GetPrefs(ctx, 4)
	require.NoError(t, err)
	assert.NotNil(t, got.NextMorningAt)
	assert.Nil(t, got.NextEveningAt)
}
