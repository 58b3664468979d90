package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_admin INTEGER NOT NULL DEFAULT 0,
	is_super_admin INTEGER NOT NULL DEFAULT 0,
	two_factor_enabled INTEGER NOT NULL DEFAULT 0,
	reset_token TEXT NOT NULL DEFAULT '',
	reset_token_expires_at DATETIME NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_reset_token ON users(reset_token);
CREATE TABLE IF NOT EXISTS user_purchases (
	user_id INTEGER NOT NULL,
	article_id INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, article_id),
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
`

const userColumns = `id, email, username, password_hash, is_admin, is_super_admin, two_factor_enabled, reset_token, reset_token_expires_at, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Email = strings.ToLower(user.Email)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (email, username, password_hash, is_admin, is_super_admin, two_factor_enabled, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.IsAdmin,
		user.IsSuperAdmin,
		user.TwoFactorEnabled,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert user: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET email=?, username=?, is_admin=?, is_super_admin=?, two_factor_enabled=?, reset_token=?, reset_token_expires_at=?, updated_at=?
WHERE id=?`,
		strings.ToLower(user.Email),
		user.Username,
		user.IsAdmin,
		user.IsSuperAdmin,
		user.TwoFactorEnabled,
		user.ResetToken,
		nullTime(user.ResetTokenExpiresAt),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return affected(res, "update user")
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET password_hash=?, reset_token='', reset_token_expires_at=NULL, updated_at=?
WHERE id=?`,
		hash,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return affected(res, "update password")
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email))
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token = ?`, token)
	return scanUser(row)
}

func (r *UserRepository) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users SET reset_token=?, reset_token_expires_at=?, updated_at=? WHERE id=?`,
		token,
		expiresAt.UTC(),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return affected(res, "set reset token")
}

func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE users SET reset_token='', reset_token_expires_at=NULL
WHERE reset_token <> '' AND reset_token_expires_at IS NOT NULL AND reset_token_expires_at <= ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("clear reset tokens: %w", err)
	}
	return res.RowsAffected()
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) AddPurchase(ctx context.Context, userID, articleID int64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO user_purchases (user_id, article_id, created_at)
VALUES (?, ?, ?)
ON CONFLICT(user_id, article_id) DO NOTHING`,
		userID,
		articleID,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

func (r *UserRepository) HasPurchased(ctx context.Context, userID, articleID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM user_purchases WHERE user_id=? AND article_id=?`, userID, articleID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query purchase: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) ListPurchases(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT article_id FROM user_purchases WHERE user_id=? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user         domain.User
		resetExpires sql.NullTime
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.IsSuperAdmin,
		&user.TwoFactorEnabled,
		&user.ResetToken,
		&resetExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, notFound(err, "user")
	}
	user.ResetTokenExpiresAt = timePtr(resetExpires)
	return &user, nil
}
