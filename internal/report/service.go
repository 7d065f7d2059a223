// Package report orchestrates weekly report generation: gathering a week of
// check-ins, calling the model, persisting results and driving the retry
// cycle for failed attempts.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/ai"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/store"
)

const (
	maxAttempts = 3
	retryDelay  = 48 * time.Hour

	// previousReportsContext caps how many earlier reports feed the prompt.
	previousReportsContext = 3
)

// ErrInsufficientData is returned when a week has entries on fewer distinct
// days than required.
var ErrInsufficientData = errors.New("report: not enough days with entries")

// Generator is the model call surface, implemented by ai.Service.
type Generator interface {
	Generate(ctx context.Context, weekData string, previousReports []string) (string, ai.Meta, error)
	Model() string
}

// UserNotifier delivers report-related messages to a user's chat.
type UserNotifier interface {
	NotifyUser(userID int64, text string) error
}

// Service runs the report pipeline.
type Service struct {
	repo     store.Repo
	gen      Generator
	notifier UserNotifier
	admin    *AdminNotifier
	log      *zap.Logger
}

// NewService wires the report pipeline together.
func NewService(repo store.Repo, gen Generator, notifier UserNotifier, admin *AdminNotifier, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		gen:      gen,
		notifier: notifier,
		admin:    admin,
		log:      log.Named("report"),
	}
}

// HasReport reports whether the week already has a stored report.
func (s *Service) HasReport(ctx context.Context, userID int64, weekStart time.Time) (bool, error) {
	_, err := s.repo.GetReport(ctx, userID, domain.WeekKey(weekStart))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Generate produces and stores the report for one user and week. attempt is
// 1-based; failures past maxAttempts stop the retry cycle. Returns
// ErrInsufficientData without recording a failure when the week is too thin.
func (s *Service) Generate(ctx context.Context, userID int64, weekStart time.Time, attempt int) error {
	weekStartDate := weekStart.Format(domain.DateLayout)
	weekEnd := domain.WeekEnd(weekStart)
	weekEndDate := weekEnd.Format(domain.DateLayout)

	sessions, err := s.repo.SessionsBetween(ctx, userID, weekStartDate, weekEndDate)
	if err != nil {
		return fmt.Errorf("load week sessions: %w", err)
	}

	ok, days := ai.SufficientData(sessions)
	if !ok {
		s.log.Info("insufficient data for report",
			zap.Int64("user_id", userID),
			zap.String("week_start", weekStartDate),
			zap.Int("days", days))
		return ErrInsufficientData
	}

	weekData := ai.FormatSessions(sessions)
	previous, err := s.repo.PreviousReportContents(ctx, userID, weekStartDate, previousReportsContext)
	if err != nil {
		return fmt.Errorf("load previous reports: %w", err)
	}

	content, meta, err := s.gen.Generate(ctx, weekData, previous)
	if err != nil {
		s.recordFailure(ctx, userID, weekStartDate, err, meta, attempt)
		return fmt.Errorf("generate report: %w", err)
	}

	year, weekNumber := weekStart.ISOWeek()
	rep := &domain.Report{
		UserID:      userID,
		WeekKey:     domain.WeekKey(weekStart),
		WeekStart:   weekStartDate,
		WeekEnd:     weekEndDate,
		Year:        year,
		WeekNumber:  weekNumber,
		Content:     content,
		InputData:   marshalInput(weekData, previous),
		DaysCount:   days,
		Model:       meta.Model,
		Attempts:    attempt,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.repo.SaveReport(ctx, rep); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	if err := s.repo.ClearFailures(ctx, userID, weekStartDate); err != nil {
		s.log.Error("clear failures after success", zap.Int64("user_id", userID), zap.Error(err))
	}

	s.log.Info("weekly report stored",
		zap.Int64("user_id", userID),
		zap.String("week_key", rep.WeekKey),
		zap.Int("attempt", attempt))

	s.deliver(userID, rep)
	return nil
}

// RunWeekly generates the previous week's report for every user who does not
// have one yet. Safe to run more than once; existing reports are skipped, so
// the Monday fallback job reuses it unchanged.
func (s *Service) RunWeekly(ctx context.Context, now time.Time) {
	weekStart := domain.PreviousWeekStart(now.UTC())
	s.log.Info("weekly report run started", zap.String("week_start", weekStart.Format(domain.DateLayout)))

	userIDs, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		s.log.Error("list users for weekly run", zap.Error(err))
		return
	}

	var generated, skipped, failed int
	for _, userID := range userIDs {
		has, err := s.HasReport(ctx, userID, weekStart)
		if err != nil {
			s.log.Error("check existing report", zap.Int64("user_id", userID), zap.Error(err))
			failed++
			continue
		}
		if has {
			skipped++
			continue
		}

		switch err := s.Generate(ctx, userID, weekStart, 1); {
		case err == nil:
			generated++
		case errors.Is(err, ErrInsufficientData):
			skipped++
		default:
			failed++
		}
	}

	s.log.Info("weekly report run finished",
		zap.Int("generated", generated),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))
}

// ProcessRetries re-attempts failed weeks whose retry time has come. Weeks
// that exhausted their attempts get closed out with a final notice.
func (s *Service) ProcessRetries(ctx context.Context, now time.Time) {
	pending, err := s.repo.PendingRetries(ctx, now.UTC())
	if err != nil {
		s.log.Error("list pending retries", zap.Error(err))
		return
	}

	for _, f := range pending {
		weekStart, err := domain.ParseWeekStart(f.WeekStart)
		if err != nil {
			s.log.Error("bad week start in failure row",
				zap.Int64("user_id", f.UserID),
				zap.String("week_start", f.WeekStart),
				zap.Error(err))
			_ = s.repo.ClearFailures(ctx, f.UserID, f.WeekStart)
			continue
		}

		if f.Attempts >= maxAttempts {
			s.giveUp(ctx, f, weekStart)
			continue
		}

		err = s.Generate(ctx, f.UserID, weekStart, f.Attempts+1)
		if err != nil && !errors.Is(err, ErrInsufficientData) {
			s.log.Warn("retry attempt failed",
				zap.Int64("user_id", f.UserID),
				zap.String("week_start", f.WeekStart),
				zap.Int("attempt", f.Attempts+1),
				zap.Error(err))
			continue
		}
		if errors.Is(err, ErrInsufficientData) {
			// the week can never become sufficient after the fact
			_ = s.repo.ClearFailures(ctx, f.UserID, f.WeekStart)
		}
	}
}

func (s *Service) recordFailure(ctx context.Context, userID int64, weekStartDate string, genErr error, meta ai.Meta, attempt int) {
	willRetry := attempt < maxAttempts
	if willRetry {
		retryAt := time.Now().UTC().Add(retryDelay)
		failure := &domain.ReportFailure{
			UserID:    userID,
			WeekStart: weekStartDate,
			Error:     genErr.Error(),
			Model:     meta.Model,
			RetryAt:   &retryAt,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repo.SaveFailure(ctx, failure); err != nil {
			s.log.Error("record report failure", zap.Int64("user_id", userID), zap.Error(err))
		}
	} else {
		// the week is closed; earlier attempts' rows must not resurface
		// in the next retry sweep
		if err := s.repo.ClearFailures(ctx, userID, weekStartDate); err != nil {
			s.log.Error("clear failures for closed week", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	s.admin.Record(ctx, &domain.AdminNote{
		Type:    "report_failure",
		UserID:  userID,
		Message: fmt.Sprintf("week %s attempt %d/%d: %s", weekStartDate, attempt, maxAttempts, meta.ErrorType),
	})

	if s.notifier == nil {
		return
	}
	var text string
	if willRetry {
		text = "⏳ Your weekly report could not be generated right now. I'll retry automatically in 2 days."
	} else {
		text = "❌ Your weekly report could not be generated after several attempts. This week will be skipped."
	}
	if err := s.notifier.NotifyUser(userID, text); err != nil {
		s.log.Warn("notify user about failure", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *Service) giveUp(ctx context.Context, f *domain.ReportFailure, weekStart time.Time) {
	s.log.Warn("retry attempts exhausted",
		zap.Int64("user_id", f.UserID),
		zap.String("week_start", f.WeekStart),
		zap.Int("attempts", f.Attempts))

	if err := s.repo.ClearFailures(ctx, f.UserID, f.WeekStart); err != nil {
		s.log.Error("clear exhausted failures", zap.Int64("user_id", f.UserID), zap.Error(err))
	}
	s.admin.Record(ctx, &domain.AdminNote{
		Type:    "report_abandoned",
		UserID:  f.UserID,
		Message: fmt.Sprintf("week %s abandoned after %d attempts", f.WeekStart, f.Attempts),
	})
	if s.notifier != nil {
		text := fmt.Sprintf("❌ The report for %s could not be generated after %d attempts and was skipped.",
			domain.FormatWeekRange(weekStart), f.Attempts)
		if err := s.notifier.NotifyUser(f.UserID, text); err != nil {
			s.log.Warn("notify user about abandoned report", zap.Int64("user_id", f.UserID), zap.Error(err))
		}
	}
}

func (s *Service) deliver(userID int64, rep *domain.Report) {
	if s.notifier == nil {
		return
	}
	weekStart, err := domain.ParseWeekStart(rep.WeekStart)
	if err != nil {
		return
	}
	text := fmt.Sprintf("📊 <b>%s</b>\n\n%s", domain.FormatWeekRange(weekStart), rep.Content)
	if err := s.notifier.NotifyUser(userID, text); err != nil {
		s.log.Warn("deliver report", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func marshalInput(weekData string, previous []string) string {
	blob, err := json.Marshal(struct {
		WeekData        string   `json:"week_data"`
		PreviousReports []string `json:"previous_reports,omitempty"`
	}{weekData, previous})
	if err != nil {
		return weekData
	}
	return string(blob)
}
