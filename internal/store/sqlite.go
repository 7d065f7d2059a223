package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
)

// SQLiteRepo implements Repo on a single SQLite database file.
type SQLiteRepo struct {
	db *sql.DB
}

var _ Repo = (*SQLiteRepo)(nil)

// OpenSQLite opens (creating if needed) the database at path, applies
// pragmas and runs migrations. The pool is pinned to one connection because
// modernc sqlite serializes writers anyway.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// Close releases the underlying database handle.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// RegisterUser inserts a user unless the registration cap is already met.
// Re-registering an existing user refreshes profile fields and never counts
// against the cap. maxUsers <= 0 disables the cap.
func (r *SQLiteRepo) RegisterUser(ctx context.Context, u domain.User, maxUsers int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE user_id = ?`, u.ID,
	).Scan(&exists); err != nil {
		return err
	}

	if exists == 0 && maxUsers > 0 {
		var total int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
			return err
		}
		if total >= maxUsers {
			return ErrUserCapReached
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, last_name, first_seen, is_admin)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name`,
		u.ID, u.Username, u.FirstName, u.LastName, u.FirstSeen.UTC().Unix(), boolToInt(u.IsAdmin),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepo) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	var (
		u       domain.User
		seen    int64
		isAdmin int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, username, first_name, last_name, first_seen, is_admin
		FROM users WHERE user_id = ?`, userID,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &seen, &isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.FirstSeen = time.Unix(seen, 0).UTC()
	u.IsAdmin = isAdmin != 0
	return &u, nil
}

func (r *SQLiteRepo) IsRegistered(ctx context.Context, userID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE user_id = ?`, userID,
	).Scan(&n)
	return n > 0, err
}

func (r *SQLiteRepo) UserCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *SQLiteRepo) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM user_preferences ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
