package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
)

const prefsColumns = `user_id, timezone, reminders_enabled,
	morning_reminder_m, evening_reminder_m, morning_enabled, evening_enabled,
	onboarding_completed, last_setup, last_data_export,
	next_morning_at, next_evening_at, last_updated`

// UpsertPrefs writes the full preference row, stamping last_updated.
func (r *SQLiteRepo) UpsertPrefs(ctx context.Context, p *domain.Prefs) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (`+prefsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			timezone = excluded.timezone,
			reminders_enabled = excluded.reminders_enabled,
			morning_reminder_m = excluded.morning_reminder_m,
			evening_reminder_m = excluded.evening_reminder_m,
			morning_enabled = excluded.morning_enabled,
			evening_enabled = excluded.evening_enabled,
			onboarding_completed = excluded.onboarding_completed,
			last_setup = excluded.last_setup,
			last_data_export = excluded.last_data_export,
			next_morning_at = excluded.next_morning_at,
			next_evening_at = excluded.next_evening_at,
			last_updated = excluded.last_updated`,
		p.UserID, p.Timezone, boolToInt(p.RemindersOn),
		p.MorningM, p.EveningM, boolToInt(p.MorningOn), boolToInt(p.EveningOn),
		boolToInt(p.Onboarded), toNullInt64(p.LastSetup), toNullInt64(p.LastExport),
		toNullInt64(p.NextMorningAt), toNullInt64(p.NextEveningAt), p.UpdatedAt.Unix(),
	)
	return err
}

func (r *SQLiteRepo) GetPrefs(ctx context.Context, userID int64) (*domain.Prefs, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+prefsColumns+` FROM user_preferences WHERE user_id = ?`, userID)
	p, err := scanPrefs(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// SetNextFire updates the denormalized next reminder instant for one kind.
// A nil next clears it, which takes the user out of the due scan.
func (r *SQLiteRepo) SetNextFire(ctx context.Context, userID int64, kind domain.Kind, next *time.Time) error {
	col := "next_morning_at"
	if kind == domain.KindEvening {
		col = "next_evening_at"
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_preferences SET `+col+` = ?, last_updated = ? WHERE user_id = ?`,
		toNullInt64(next), time.Now().UTC().Unix(), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDue returns preference rows whose next fire instant for the kind has
// passed. Rows with a cleared instant never match.
func (r *SQLiteRepo) ListDue(ctx context.Context, kind domain.Kind, now time.Time, limit int) ([]*domain.Prefs, error) {
	col, enabled := "next_morning_at", "morning_enabled"
	if kind == domain.KindEvening {
		col, enabled = "next_evening_at", "evening_enabled"
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+prefsColumns+` FROM user_preferences
		WHERE `+col+` IS NOT NULL AND `+col+` <= ?
		  AND reminders_enabled = 1 AND `+enabled+` = 1
		ORDER BY `+col+`
		LIMIT ?`,
		now.UTC().Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Prefs
	for rows.Next() {
		p, err := scanPrefs(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) SetLastExport(ctx context.Context, userID int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_preferences SET last_data_export = ?, last_updated = ? WHERE user_id = ?`,
		at.UTC().Unix(), time.Now().UTC().Unix(), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrefs(row rowScanner) (*domain.Prefs, error) {
	var (
		p                                   domain.Prefs
		remOn, mOn, eOn, onboarded          int
		lastSetup, lastExport, nextM, nextE sql.NullInt64
		updated                             int64
	)
	err := row.Scan(
		&p.UserID, &p.Timezone, &remOn,
		&p.MorningM, &p.EveningM, &mOn, &eOn,
		&onboarded, &lastSetup, &lastExport,
		&nextM, &nextE, &updated,
	)
	if err != nil {
		return nil, err
	}
	p.RemindersOn = remOn != 0
	p.MorningOn = mOn != 0
	p.EveningOn = eOn != 0
	p.Onboarded = onboarded != 0
	p.LastSetup = fromNullInt64(lastSetup)
	p.LastExport = fromNullInt64(lastExport)
	p.NextMorningAt = fromNullInt64(nextM)
	p.NextEveningAt = fromNullInt64(nextE)
	p.UpdatedAt = time.Unix(updated, 0).UTC()
	return &p, nil
}
