package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
)

const sessionColumns = `session_id, user_id, session_type, date, time, timestamp,
	energy_level, mood, stress_level, intention, day_word, reflection, responses_json`

// SaveSession persists a completed check-in. The raw answer map is stored as
// a JSON blob next to the typed columns. A second check-in of the same kind
// on the same local date violates the unique constraint and surfaces as an
// error to the caller.
func (r *SQLiteRepo) SaveSession(ctx context.Context, s *domain.Session) error {
	blob, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, string(s.Kind), s.Date, s.Time, s.Timestamp.UTC().Unix(),
		intToNull(s.Energy), intToNull(s.Mood), intToNull(s.Stress),
		s.Intention, s.DayWord, s.Reflection, string(blob),
	)
	return err
}

// TodaySessions returns the sessions recorded for one local date, keyed by kind.
func (r *SQLiteRepo) TodaySessions(ctx context.Context, userID int64, date string) (map[domain.Kind]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? AND date = ?`,
		userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.Kind]*domain.Session, 2)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out[s.Kind] = s
	}
	return out, rows.Err()
}

// SessionsBetween returns sessions with fromDate <= date <= toDate, oldest first.
func (r *SQLiteRepo) SessionsBetween(ctx context.Context, userID int64, fromDate, toDate string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date, timestamp`,
		userID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// AllSessions returns every session of a user, oldest first. Used by the CSV export.
func (r *SQLiteRepo) AllSessions(ctx context.Context, userID int64) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ?
		ORDER BY date, timestamp`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// UserStats reads the per-user aggregate from the user_stats view.
// A user with no sessions gets a zero-value Stats, not an error.
func (r *SQLiteRepo) UserStats(ctx context.Context, userID int64) (*domain.Stats, error) {
	var st domain.Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT total_sessions, morning_sessions, evening_sessions,
		       first_session_date, last_session_date, unique_dates
		FROM user_stats WHERE user_id = ?`, userID,
	).Scan(&st.Total, &st.Morning, &st.Evening, &st.FirstDate, &st.LastDate, &st.UniqueDates)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.Stats{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func collectSessions(rows *sql.Rows) ([]*domain.Session, error) {
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s                    domain.Session
		kind                 string
		ts                   int64
		energy, mood, stress sql.NullInt64
		blob                 string
	)
	err := row.Scan(
		&s.ID, &s.UserID, &kind, &s.Date, &s.Time, &ts,
		&energy, &mood, &stress, &s.Intention, &s.DayWord, &s.Reflection, &blob,
	)
	if err != nil {
		return nil, err
	}
	s.Kind = domain.Kind(kind)
	s.Timestamp = time.Unix(ts, 0).UTC()
	s.Energy = nullToInt(energy)
	s.Mood = nullToInt(mood)
	s.Stress = nullToInt(stress)
	if err := json.Unmarshal([]byte(blob), &s.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers for %s: %w", s.ID, err)
	}
	return &s, nil
}
