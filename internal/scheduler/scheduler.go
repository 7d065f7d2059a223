// Package scheduler delivers morning and evening check-in reminders.
//
// Due instants are precomputed per user and kind into the preferences table;
// the loop polls for rows whose instant has passed, sends the reminder and
// advances the instant to the next local occurrence. Restarts lose nothing
// because the state lives in the database.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/store"
)

const (
	pollInterval = 30 * time.Second
	dueBatchSize = 100
)

// Sender delivers one reminder message. Implemented by the telegram router.
type Sender interface {
	SendReminder(userID int64, kind domain.Kind) error
}

// Scheduler owns the reminder delivery loop.
type Scheduler struct {
	repo   store.Repo
	sender Sender
	log    *zap.Logger
}

// New builds a Scheduler. Call Run to start it.
func New(repo store.Repo, sender Sender, log *zap.Logger) *Scheduler {
	return &Scheduler{repo: repo, sender: sender, log: log.Named("scheduler")}
}

// Run polls for due reminders until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("reminder loop started", zap.Duration("poll_interval", pollInterval))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder loop stopped")
			return
		case <-ticker.C:
			s.tick(ctx, time.Now().UTC())
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	for _, kind := range []domain.Kind{domain.KindMorning, domain.KindEvening} {
		due, err := s.repo.ListDue(ctx, kind, now, dueBatchSize)
		if err != nil {
			s.log.Error("list due reminders", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		for _, prefs := range due {
			s.dispatch(ctx, prefs, kind, now)
		}
	}
}

// dispatch sends one reminder and advances the user's next fire instant.
// The instant moves forward even when sending fails, so a broken chat
// cannot wedge the loop into resending every tick.
func (s *Scheduler) dispatch(ctx context.Context, prefs *domain.Prefs, kind domain.Kind, now time.Time) {
	next := domain.NextDaily(now, prefs.ReminderTime(kind), prefs.Timezone)
	if err := s.repo.SetNextFire(ctx, prefs.UserID, kind, &next); err != nil {
		s.log.Error("advance next fire",
			zap.Int64("user_id", prefs.UserID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return
	}

	if s.alreadyCheckedIn(ctx, prefs, kind, now) {
		s.log.Debug("reminder skipped, check-in already done",
			zap.Int64("user_id", prefs.UserID),
			zap.String("kind", string(kind)))
		return
	}

	if err := s.sender.SendReminder(prefs.UserID, kind); err != nil {
		s.log.Warn("send reminder",
			zap.Int64("user_id", prefs.UserID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return
	}

	s.log.Info("reminder sent",
		zap.Int64("user_id", prefs.UserID),
		zap.String("kind", string(kind)),
		zap.Time("next", next))
}

func (s *Scheduler) alreadyCheckedIn(ctx context.Context, prefs *domain.Prefs, kind domain.Kind, now time.Time) bool {
	loc, err := time.LoadLocation(prefs.Timezone)
	if err != nil {
		loc = time.UTC
	}
	date := domain.SessionDate(kind, now.In(loc))

	sessions, err := s.repo.TodaySessions(ctx, prefs.UserID, date)
	if err != nil {
		s.log.Error("load today's sessions", zap.Int64("user_id", prefs.UserID), zap.Error(err))
		return false
	}
	_, done := sessions[kind]
	return done
}

// Reschedule recomputes and persists both next fire instants after a
// preference change. Disabled kinds get their instant cleared.
func Reschedule(ctx context.Context, repo store.Repo, prefs *domain.Prefs, now time.Time) error {
	for _, kind := range []domain.Kind{domain.KindMorning, domain.KindEvening} {
		var next *time.Time
		if prefs.KindEnabled(kind) {
			n := domain.NextDaily(now, prefs.ReminderTime(kind), prefs.Timezone)
			next = &n
		}
		if err := repo.SetNextFire(ctx, prefs.UserID, kind, next); err != nil {
			return err
		}
	}
	return nil
}
