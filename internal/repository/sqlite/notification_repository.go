package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
)

const createNotificationsTable = `
CREATE TABLE IF NOT EXISTS notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	link TEXT NOT NULL DEFAULT '',
	read INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, read);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);
CREATE TABLE IF NOT EXISTS notification_settings (
	user_id INTEGER PRIMARY KEY,
	email_new_articles INTEGER NOT NULL DEFAULT 1,
	email_comments INTEGER NOT NULL DEFAULT 1,
	email_payments INTEGER NOT NULL DEFAULT 1,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
`

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &NotificationRepository{db: db}
}

var _ repository.NotificationRepository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createNotificationsTable); err != nil {
		return fmt.Errorf("create notifications table: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (int64, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
INSERT INTO notifications (user_id, type, title, message, link, read, created_at)
VALUES (?, ?, ?, ?, ?, 0, ?)`,
		n.UserID,
		string(n.Type),
		n.Title,
		n.Message,
		n.Link,
		n.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("notification last insert id: %w", err)
	}
	n.ID = id
	return id, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]domain.Notification, error) {
	query := `
SELECT id, user_id, type, title, message, link, read, created_at
FROM notifications
WHERE user_id=?`
	if unreadOnly {
		query += ` AND read=0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []domain.Notification{}
	for rows.Next() {
		var (
			n   domain.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = domain.NotificationType(typ)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read=1 WHERE id=? AND user_id=?`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return affected(res, "mark notification read")
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read=1 WHERE user_id=? AND read=0`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

func (r *NotificationRepository) Delete(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id=? AND user_id=?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return affected(res, "delete notification")
}

func (r *NotificationRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old notifications: %w", err)
	}
	return res.RowsAffected()
}

func (r *NotificationRepository) GetSettings(ctx context.Context, userID int64) (*domain.NotificationSettings, error) {
	var s domain.NotificationSettings
	err := r.db.QueryRowContext(ctx, `
SELECT user_id, email_new_articles, email_comments, email_payments, updated_at
FROM notification_settings WHERE user_id=?`, userID).Scan(
		&s.UserID,
		&s.EmailNewArticles,
		&s.EmailComments,
		&s.EmailPayments,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "notification settings")
	}
	return &s, nil
}

func (r *NotificationRepository) SaveSettings(ctx context.Context, settings *domain.NotificationSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO notification_settings (user_id, email_new_articles, email_comments, email_payments, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	email_new_articles=excluded.email_new_articles,
	email_comments=excluded.email_comments,
	email_payments=excluded.email_payments,
	updated_at=excluded.updated_at`,
		settings.UserID,
		settings.EmailNewArticles,
		settings.EmailComments,
		settings.EmailPayments,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save notification settings: %w", err)
	}
	return nil
}

const createSubscriptionsTable = `
CREATE TABLE IF NOT EXISTS category_subscriptions (
	user_id INTEGER NOT NULL,
	category_id INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, category_id),
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY(category_id) REFERENCES categories(id) ON DELETE CASCADE
);
`

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) repository.SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

var _ repository.SubscriptionRepository = (*SubscriptionRepository)(nil)

func (r *SubscriptionRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSubscriptionsTable); err != nil {
		return fmt.Errorf("create subscriptions table: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) Subscribe(ctx context.Context, userID, categoryID int64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO category_subscriptions (user_id, category_id, created_at)
VALUES (?, ?, ?)
ON CONFLICT(user_id, category_id) DO NOTHING`,
		userID,
		categoryID,
		time.Now().UTC(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("subscribe: %w", repository.ErrNotFound)
		}
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) Unsubscribe(ctx context.Context, userID, categoryID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM category_subscriptions WHERE user_id=? AND category_id=?`, userID, categoryID)
	if err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return affected(res, "unsubscribe")
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID int64) ([]domain.CategorySubscription, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT s.user_id, s.category_id, c.name, c.slug, s.created_at
FROM category_subscriptions s JOIN categories c ON c.id = s.category_id
WHERE s.user_id=?
ORDER BY c.name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []domain.CategorySubscription{}
	for rows.Next() {
		var s domain.CategorySubscription
		if err := rows.Scan(&s.UserID, &s.CategoryID, &s.CategoryName, &s.CategorySlug, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *SubscriptionRepository) ListSubscriberIDs(ctx context.Context, categoryID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM category_subscriptions WHERE category_id=? ORDER BY user_id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
