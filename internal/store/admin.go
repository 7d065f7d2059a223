package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
)

// AddAdminNote queues an operational issue for the admin summary.
func (r *SQLiteRepo) AddAdminNote(ctx context.Context, n *domain.AdminNote) error {
	var userID sql.NullInt64
	if n.UserID != 0 {
		userID = sql.NullInt64{Int64: n.UserID, Valid: true}
	}
	var data sql.NullString
	if n.DataJSON != "" {
		data = sql.NullString{String: n.DataJSON, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_notifications (notification_type, user_id, message, data_json, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.Type, userID, n.Message, data, n.CreatedAt.UTC().Unix(),
	)
	return err
}

// PendingAdminNotes returns the queued notes oldest first.
func (r *SQLiteRepo) PendingAdminNotes(ctx context.Context) ([]*domain.AdminNote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, notification_type, user_id, message, data_json, created_at
		FROM admin_notifications
		ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AdminNote
	for rows.Next() {
		var (
			n       domain.AdminNote
			userID  sql.NullInt64
			data    sql.NullString
			created int64
		)
		if err := rows.Scan(&n.ID, &n.Type, &userID, &n.Message, &data, &created); err != nil {
			return nil, err
		}
		n.UserID = userID.Int64
		n.DataJSON = data.String
		n.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, &n)
	}
	return out, rows.Err()
}

// AdminNotifiedToday reports whether a daily summary was already sent for the date.
func (r *SQLiteRepo) AdminNotifiedToday(ctx context.Context, date string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admin_summary_log WHERE date = ?`, date,
	).Scan(&n)
	return n > 0, err
}

// MarkAdminNotified records that the daily summary for the date went out.
func (r *SQLiteRepo) MarkAdminNotified(ctx context.Context, date string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_summary_log (date, sent_at) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET sent_at = excluded.sent_at`,
		date, time.Now().UTC().Unix())
	return err
}

// ClearPendingAdminNotes empties the queue after a summary was delivered.
func (r *SQLiteRepo) ClearPendingAdminNotes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM admin_notifications`)
	return err
}
