package sqlite

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ascend-hq/ascend/internal/domain"
)

// ─── Engagement Key-Value ───────────────────────────────────────────────────

// SetEngagement stores an engagement key-value pair.
func (d *DB) SetEngagement(key, value string) error {
	_, err := d.db.Exec(
		`INSERT INTO engagement (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	return err
}

// SetEngagementMany stores several pairs in one transaction.
func (d *DB) SetEngagementMany(kv map[string]string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for k, v := range kv {
		if _, err := tx.Exec(
			`INSERT INTO engagement (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
			k, v,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetEngagement retrieves an engagement value by key.
// Returns "" if key not found.
func (d *DB) GetEngagement(key string) (string, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM engagement WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// ─── Challenges ─────────────────────────────────────────────────────────────

const challengeColumns = `id, type, description, target, progress, reward_xp, reward_coins, expires_at, completed`

// InsertChallenge creates a new challenge.
func (d *DB) InsertChallenge(c domain.Challenge) error {
	_, err := d.db.Exec(
		`INSERT INTO challenges (`+challengeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.Type), c.Description, c.Target, c.Progress,
		c.RewardXP, c.RewardCoins, c.ExpiresAt.Unix(), c.Completed,
	)
	return err
}

// GetChallenge retrieves a challenge by ID. Returns nil if not found.
func (d *DB) GetChallenge(id string) (*domain.Challenge, error) {
	row := d.db.QueryRow(`SELECT `+challengeColumns+` FROM challenges WHERE id = ?`, id)
	return scanChallenge(row)
}

// ListActiveChallenges returns challenges that are neither expired at now
// nor completed.
func (d *DB) ListActiveChallenges(now time.Time) ([]domain.Challenge, error) {
	return d.queryChallenges(
		`SELECT `+challengeColumns+` FROM challenges
		 WHERE completed = 0 AND expires_at > ? ORDER BY expires_at ASC, id ASC`, now.Unix(),
	)
}

// ListChallengesExpiringAfter returns every challenge, completed or not,
// whose deadline is after t.
func (d *DB) ListChallengesExpiringAfter(t time.Time) ([]domain.Challenge, error) {
	return d.queryChallenges(
		`SELECT `+challengeColumns+` FROM challenges
		 WHERE expires_at > ? ORDER BY expires_at ASC, id ASC`, t.Unix(),
	)
}

func (d *DB) queryChallenges(query string, args ...any) ([]domain.Challenge, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateChallengeProgress increments challenge progress, capped at target.
// Returns the updated challenge.
func (d *DB) UpdateChallengeProgress(id string, delta int) (*domain.Challenge, error) {
	_, err := d.db.Exec(
		`UPDATE challenges SET progress = MIN(progress + ?, target) WHERE id = ? AND completed = 0`,
		delta, id,
	)
	if err != nil {
		return nil, err
	}
	return d.GetChallenge(id)
}

// CompleteChallenge marks a challenge completed. It reports false if the
// challenge was already completed, so rewards are paid once.
func (d *DB) CompleteChallenge(id string) (bool, error) {
	result, err := d.db.Exec(`UPDATE challenges SET completed = 1 WHERE id = ? AND completed = 0`, id)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// DeleteExpiredChallenges removes unfinished challenges that expired before
// the given time.
func (d *DB) DeleteExpiredChallenges(before time.Time) (int64, error) {
	result, err := d.db.Exec(
		`DELETE FROM challenges WHERE expires_at < ? AND completed = 0`, before.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanChallenge(s scanner) (*domain.Challenge, error) {
	var c domain.Challenge
	var expiresAt int64
	err := s.Scan(&c.ID, &c.Type, &c.Description, &c.Target, &c.Progress,
		&c.RewardXP, &c.RewardCoins, &expiresAt, &c.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &c, nil
}

// ─── Notifications ──────────────────────────────────────────────────────────

// InsertNotification creates a new notification.
func (d *DB) InsertNotification(n domain.Notification) (int64, error) {
	result, err := d.db.Exec(
		`INSERT INTO notifications (type, title, body, created_at, shown)
		 VALUES (?, ?, ?, ?, ?)`,
		string(n.Type), n.Title, n.Body, n.CreatedAt.Unix(), n.Shown,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// NotificationCountSince returns how many notifications were created at or
// after since.
func (d *DB) NotificationCountSince(since time.Time) (int, error) {
	var count int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE created_at >= ?`, since.Unix(),
	).Scan(&count)
	return count, err
}

// ListPendingNotifications returns unshown notifications, newest first.
func (d *DB) ListPendingNotifications(limit int) ([]domain.Notification, error) {
	return d.queryNotifications(
		`SELECT id, type, title, body, created_at, shown
		 FROM notifications WHERE shown = 0 ORDER BY id DESC LIMIT ?`, limit,
	)
}

// ListNotifications returns recent notifications, newest first.
func (d *DB) ListNotifications(limit int) ([]domain.Notification, error) {
	return d.queryNotifications(
		`SELECT id, type, title, body, created_at, shown
		 FROM notifications ORDER BY id DESC LIMIT ?`, limit,
	)
}

func (d *DB) queryNotifications(query string, args ...any) ([]domain.Notification, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifs []domain.Notification
	for rows.Next() {
		n, err := scanNotifRows(rows)
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, *n)
	}
	return notifs, rows.Err()
}

// MarkNotificationShown marks a notification as shown.
func (d *DB) MarkNotificationShown(id int64) error {
	result, err := d.db.Exec(`UPDATE notifications SET shown = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanNotifRows(rows *sql.Rows) (*domain.Notification, error) {
	var n domain.Notification
	var createdAt int64
	err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &createdAt, &n.Shown)
	if err != nil {
		return nil, err
	}
	n.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &n, nil
}

// ─── Coin Ledger ────────────────────────────────────────────────────────────

// InsertLedgerPair writes a matched debit and credit in one transaction.
func (d *DB) InsertLedgerPair(debit, credit domain.LedgerEntry) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range []domain.LedgerEntry{debit, credit} {
		if _, err := tx.Exec(
			`INSERT INTO coin_ledger (event_id, timestamp, type, entry_type, account, amount, description, balance)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.EventID, e.Timestamp.Unix(), string(e.Type), string(e.EntryType),
			e.Account, e.Amount, nullStr(e.Description), e.Balance,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LedgerBalance returns the last recorded balance for an account.
func (d *DB) LedgerBalance(account string) (int64, error) {
	var balance sql.NullInt64
	err := d.db.QueryRow(
		`SELECT balance FROM coin_ledger WHERE account = ? ORDER BY id DESC LIMIT 1`,
		account,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance.Int64, nil
}

// LedgerTotals sums all debit and credit amounts.
func (d *DB) LedgerTotals() (debits, credits int64, err error) {
	err = d.db.QueryRow(
		`SELECT
			COALESCE(SUM(CASE WHEN entry_type = 'DEBIT' THEN amount END), 0),
			COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount END), 0)
		 FROM coin_ledger`,
	).Scan(&debits, &credits)
	return debits, credits, err
}

// LedgerEntries returns recent ledger entries for an account, newest first.
func (d *DB) LedgerEntries(account string, limit int) ([]domain.LedgerEntry, error) {
	rows, err := d.db.Query(
		`SELECT id, event_id, timestamp, type, entry_type, account, amount, description, balance
		 FROM coin_ledger WHERE account = ? ORDER BY id DESC LIMIT ?`,
		account, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var ts int64
		var desc sql.NullString
		err := rows.Scan(&e.ID, &e.EventID, &ts, &e.Type, &e.EntryType, &e.Account,
			&e.Amount, &desc, &e.Balance)
		if err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		e.Description = desc.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
