package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
)

const createBruteforceTable = `
CREATE TABLE IF NOT EXISTS bruteforce_attempts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ip TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	is_blocked INTEGER NOT NULL DEFAULT 0,
	blocked_until DATETIME NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(ip, fingerprint)
);
CREATE INDEX IF NOT EXISTS idx_bruteforce_ip ON bruteforce_attempts(ip);
CREATE INDEX IF NOT EXISTS idx_bruteforce_fingerprint ON bruteforce_attempts(fingerprint);
`

// A failed attempt on a row whose block has lapsed restarts the counter.
// SET expressions see the pre-update row, so the new count is spelled out in
// each assignment that depends on it.
const recordFailure = `
INSERT INTO bruteforce_attempts (ip, fingerprint, attempts, is_blocked, blocked_until, created_at, updated_at)
VALUES (?, ?, 1, CASE WHEN 1 >= ? THEN 1 ELSE 0 END, CASE WHEN 1 >= ? THEN ? ELSE NULL END, ?, ?)
ON CONFLICT(ip, fingerprint) DO UPDATE SET
	attempts = CASE
		WHEN is_blocked = 1 AND blocked_until <= ? THEN 1
		ELSE attempts + 1 END,
	is_blocked = CASE
		WHEN (CASE WHEN is_blocked = 1 AND blocked_until <= ? THEN 1 ELSE attempts + 1 END) >= ? THEN 1
		ELSE 0 END,
	blocked_until = CASE
		WHEN is_blocked = 1 AND blocked_until > ? THEN blocked_until
		WHEN (CASE WHEN is_blocked = 1 AND blocked_until <= ? THEN 1 ELSE attempts + 1 END) >= ? THEN ?
		ELSE NULL END,
	updated_at = ?
RETURNING id`

const bruteforceColumns = `id, ip, fingerprint, attempts, is_blocked, blocked_until, created_at, updated_at`

type BruteforceRepository struct {
	db *sql.DB
}

func NewBruteforceRepository(db *sql.DB) repository.BruteforceRepository {
	return &BruteforceRepository{db: db}
}

var _ repository.BruteforceRepository = (*BruteforceRepository)(nil)

func (r *BruteforceRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createBruteforceTable); err != nil {
		return fmt.Errorf("create bruteforce table: %w", err)
	}
	return nil
}

func (r *BruteforceRepository) FindActiveBlock(ctx context.Context, ip, fingerprint string, now time.Time) (*domain.BruteforceAttempt, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+bruteforceColumns+`
FROM bruteforce_attempts
WHERE (ip = ? OR fingerprint = ?) AND is_blocked = 1 AND blocked_until > ?
ORDER BY blocked_until DESC
LIMIT 1`,
		ip,
		fingerprint,
		now.UTC(),
	)
	return scanAttempt(row)
}

func (r *BruteforceRepository) RecordFailure(ctx context.Context, ip, fingerprint string, now time.Time, maxAttempts int, lockout time.Duration) (*domain.BruteforceAttempt, error) {
	now = now.UTC()
	until := now.Add(lockout)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, recordFailure,
		ip, fingerprint, maxAttempts, maxAttempts, until, now, now,
		now,
		now, maxAttempts,
		now,
		now, maxAttempts, until,
		now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("record failed attempt: %w", err)
	}

	attempt, err := scanAttempt(tx.QueryRowContext(ctx, `SELECT `+bruteforceColumns+` FROM bruteforce_attempts WHERE id=?`, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit failed attempt: %w", err)
	}
	return attempt, nil
}

func (r *BruteforceRepository) Reset(ctx context.Context, ip, fingerprint string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM bruteforce_attempts WHERE ip=? AND fingerprint=?`, ip, fingerprint); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}

const unblock = `UPDATE bruteforce_attempts SET is_blocked=0, blocked_until=NULL, attempts=0, updated_at=? WHERE `

func (r *BruteforceRepository) UnblockByID(ctx context.Context, id int64) (int64, error) {
	return r.unblock(ctx, "id=?", id)
}

func (r *BruteforceRepository) UnblockByIP(ctx context.Context, ip string) (int64, error) {
	return r.unblock(ctx, "ip=?", ip)
}

func (r *BruteforceRepository) UnblockByFingerprint(ctx context.Context, fingerprint string) (int64, error) {
	return r.unblock(ctx, "fingerprint=?", fingerprint)
}

func (r *BruteforceRepository) unblock(ctx context.Context, where string, arg any) (int64, error) {
	res, err := r.db.ExecContext(ctx, unblock+where, time.Now().UTC(), arg)
	if err != nil {
		return 0, fmt.Errorf("unblock: %w", err)
	}
	return res.RowsAffected()
}

func (r *BruteforceRepository) ListBlocked(ctx context.Context, now time.Time) ([]domain.BruteforceAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+bruteforceColumns+`
FROM bruteforce_attempts
WHERE is_blocked = 1 AND blocked_until > ?
ORDER BY blocked_until DESC`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("query blocked: %w", err)
	}
	defer rows.Close()

	attempts := []domain.BruteforceAttempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

func (r *BruteforceRepository) DeleteStale(ctx context.Context, now, updatedBefore time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM bruteforce_attempts
WHERE updated_at < ? AND (is_blocked = 0 OR blocked_until IS NULL OR blocked_until <= ?)`,
		updatedBefore.UTC(),
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale attempts: %w", err)
	}
	return res.RowsAffected()
}

func scanAttempt(row rowScanner) (*domain.BruteforceAttempt, error) {
	var (
		a     domain.BruteforceAttempt
		until sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.IP, &a.Fingerprint, &a.Attempts, &a.IsBlocked, &until, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, notFound(err, "bruteforce attempt")
	}
	a.BlockedUntil = timePtr(until)
	return &a, nil
}

const createTwoFactorTables = `
CREATE TABLE IF NOT EXISTS two_factor_codes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	code TEXT NOT NULL,
	type TEXT NOT NULL,
	used INTEGER NOT NULL DEFAULT 0,
	expires_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_two_factor_codes_user ON two_factor_codes(user_id, type, used);
CREATE TABLE IF NOT EXISTS two_factor_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	session_id TEXT NOT NULL UNIQUE,
	fingerprint TEXT NOT NULL,
	expires_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE(user_id, fingerprint),
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
`

type TwoFactorRepository struct {
	db *sql.DB
}

func NewTwoFactorRepository(db *sql.DB) repository.TwoFactorRepository {
	return &TwoFactorRepository{db: db}
}

var _ repository.TwoFactorRepository = (*TwoFactorRepository)(nil)

func (r *TwoFactorRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTwoFactorTables); err != nil {
		return fmt.Errorf("create two factor tables: %w", err)
	}
	return nil
}

func (r *TwoFactorRepository) CreateCode(ctx context.Context, code *domain.TwoFactorCode) (int64, error) {
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
INSERT INTO two_factor_codes (user_id, code, type, used, expires_at, created_at)
VALUES (?, ?, ?, 0, ?, ?)`,
		code.UserID,
		code.Code,
		string(code.Type),
		code.ExpiresAt.UTC(),
		code.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert two factor code: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("two factor code last insert id: %w", err)
	}
	code.ID = id
	return id, nil
}

func (r *TwoFactorRepository) InvalidateCodes(ctx context.Context, userID int64, codeType domain.TwoFactorCodeType) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE two_factor_codes SET used=1 WHERE user_id=? AND type=? AND used=0`, userID, string(codeType))
	if err != nil {
		return fmt.Errorf("invalidate two factor codes: %w", err)
	}
	return nil
}

func (r *TwoFactorRepository) ConsumeCode(ctx context.Context, userID int64, code string, codeType domain.TwoFactorCodeType, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE two_factor_codes SET used=1
WHERE id = (
	SELECT id FROM two_factor_codes
	WHERE user_id=? AND code=? AND type=? AND used=0 AND expires_at > ?
	ORDER BY id DESC
	LIMIT 1
)`,
		userID,
		code,
		string(codeType),
		now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("consume two factor code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume two factor code rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *TwoFactorRepository) DeleteSpentCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM two_factor_codes WHERE used=1 OR expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete spent codes: %w", err)
	}
	return res.RowsAffected()
}

func (r *TwoFactorRepository) ReplaceSession(ctx context.Context, session *domain.TwoFactorSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
INSERT INTO two_factor_sessions (user_id, session_id, fingerprint, expires_at, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id, fingerprint) DO UPDATE SET
	session_id=excluded.session_id,
	expires_at=excluded.expires_at,
	created_at=excluded.created_at
RETURNING id`,
		session.UserID,
		session.SessionID,
		session.Fingerprint,
		session.ExpiresAt.UTC(),
		session.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("replace two factor session: %w", err)
	}
	session.ID = id
	return nil
}

func (r *TwoFactorRepository) GetSession(ctx context.Context, sessionID string, now time.Time) (*domain.TwoFactorSession, error) {
	var s domain.TwoFactorSession
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, session_id, fingerprint, expires_at, created_at
FROM two_factor_sessions
WHERE session_id=? AND expires_at > ?`,
		sessionID,
		now.UTC(),
	).Scan(&s.ID, &s.UserID, &s.SessionID, &s.Fingerprint, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, notFound(err, "two factor session")
	}
	return &s, nil
}

func (r *TwoFactorRepository) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM two_factor_sessions WHERE session_id=?`, sessionID); err != nil {
		return fmt.Errorf("delete two factor session: %w", err)
	}
	return nil
}

func (r *TwoFactorRepository) DeleteUserSessions(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM two_factor_sessions WHERE user_id=?`, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

func (r *TwoFactorRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM two_factor_sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
