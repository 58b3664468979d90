package domain

import "time"

type NotificationType string

const (
	NotificationNewArticle NotificationType = "NEW_ARTICLE"
	NotificationComment    NotificationType = "COMMENT"
	NotificationPayment    NotificationType = "PAYMENT"
	NotificationSystem     NotificationType = "SYSTEM"
)

type Notification struct {
	ID        int64
	UserID    int64
	Type      NotificationType
	Title     string
	Message   string
	Link      string
	Read      bool
	CreatedAt time.Time
}

// NotificationSettings controls which events are also sent by email.
type NotificationSettings struct {
	UserID           int64
	EmailNewArticles bool
	EmailComments    bool
	EmailPayments    bool
	UpdatedAt        time.Time
}

// DefaultNotificationSettings is what a new account starts with.
func DefaultNotificationSettings(userID int64) NotificationSettings {
	return NotificationSettings{
		UserID:           userID,
		EmailNewArticles: true,
		EmailComments:    true,
		EmailPayments:    true,
	}
}

type CategorySubscription struct {
	UserID       int64
	CategoryID   int64
	CategoryName string
	CategorySlug string
	CreatedAt    time.Time
}
