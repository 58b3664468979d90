package repository

import (
	"context"
	"time"

	"techanswers/internal/domain"
)

type NotificationRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, n *domain.Notification) (int64, error)
	ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, id, userID int64) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	GetSettings(ctx context.Context, userID int64) (*domain.NotificationSettings, error)
	SaveSettings(ctx context.Context, settings *domain.NotificationSettings) error
}

type SubscriptionRepository interface {
	Init(ctx context.Context) error
	Subscribe(ctx context.Context, userID, categoryID int64) error
	Unsubscribe(ctx context.Context, userID, categoryID int64) error
	ListByUser(ctx context.Context, userID int64) ([]domain.CategorySubscription, error)
	ListSubscriberIDs(ctx context.Context, categoryID int64) ([]int64, error)
}
