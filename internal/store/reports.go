package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
)

const reportColumns = `user_id, week_key, week_start, week_end, year, week_number,
	report_content, input_data, data_days_count, llm_model, generation_attempts, generated_at`

// SaveReport inserts or replaces the report for (user, week). Regeneration
// overwrites the stored content while keeping the attempt counter honest.
func (r *SQLiteRepo) SaveReport(ctx context.Context, rep *domain.Report) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO weekly_reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, week_key) DO UPDATE SET
			report_content = excluded.report_content,
			input_data = excluded.input_data,
			data_days_count = excluded.data_days_count,
			llm_model = excluded.llm_model,
			generation_attempts = excluded.generation_attempts,
			generated_at = excluded.generated_at`,
		rep.UserID, rep.WeekKey, rep.WeekStart, rep.WeekEnd, rep.Year, rep.WeekNumber,
		rep.Content, rep.InputData, rep.DaysCount, rep.Model, rep.Attempts,
		rep.GeneratedAt.UTC().Unix(),
	)
	return err
}

func (r *SQLiteRepo) GetReport(ctx context.Context, userID int64, weekKey string) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM weekly_reports WHERE user_id = ? AND week_key = ?`,
		userID, weekKey)
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rep, err
}

// ListReports returns the newest reports first, at most limit of them.
func (r *SQLiteRepo) ListReports(ctx context.Context, userID int64, limit int) ([]*domain.Report, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reportColumns+` FROM weekly_reports
		WHERE user_id = ?
		ORDER BY week_start DESC
		LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// PreviousReportContents returns the content of up to n reports strictly
// before the given week start, newest first. Feeds prior context into the
// next generation prompt.
func (r *SQLiteRepo) PreviousReportContents(ctx context.Context, userID int64, beforeWeekStart string, n int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT report_content FROM weekly_reports
		WHERE user_id = ? AND week_start < ?
		ORDER BY week_start DESC
		LIMIT ?`,
		userID, beforeWeekStart, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveFailure records one failed generation attempt.
func (r *SQLiteRepo) SaveFailure(ctx context.Context, f *domain.ReportFailure) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO failed_reports (user_id, week_start, error_message, model, retry_scheduled, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.UserID, f.WeekStart, f.Error, f.Model,
		toNullInt64(f.RetryAt), f.CreatedAt.UTC().Unix(),
	)
	return err
}

// PendingRetries returns one row per (user, week) whose latest scheduled
// retry has come due, with the aggregate attempt count filled in.
func (r *SQLiteRepo) PendingRetries(ctx context.Context, now time.Time) ([]*domain.ReportFailure, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, week_start, MAX(error_message), MAX(model),
		       MAX(retry_scheduled), MAX(created_at), COUNT(*)
		FROM failed_reports
		GROUP BY user_id, week_start
		HAVING MAX(retry_scheduled) IS NOT NULL AND MAX(retry_scheduled) <= ?`,
		now.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ReportFailure
	for rows.Next() {
		var (
			f              domain.ReportFailure
			retry, created sql.NullInt64
		)
		if err := rows.Scan(&f.UserID, &f.WeekStart, &f.Error, &f.Model, &retry, &created, &f.Attempts); err != nil {
			return nil, err
		}
		f.RetryAt = fromNullInt64(retry)
		if created.Valid {
			f.CreatedAt = time.Unix(created.Int64, 0).UTC()
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// ClearFailures drops all failure rows for one (user, week), ending its retry cycle.
func (r *SQLiteRepo) ClearFailures(ctx context.Context, userID int64, weekStart string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM failed_reports WHERE user_id = ? AND week_start = ?`,
		userID, weekStart)
	return err
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var (
		rep domain.Report
		gen int64
	)
	err := row.Scan(
		&rep.UserID, &rep.WeekKey, &rep.WeekStart, &rep.WeekEnd, &rep.Year, &rep.WeekNumber,
		&rep.Content, &rep.InputData, &rep.DaysCount, &rep.Model, &rep.Attempts, &gen,
	)
	if err != nil {
		return nil, err
	}
	rep.GeneratedAt = time.Unix(gen, 0).UTC()
	return &rep, nil
}
