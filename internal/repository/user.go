package repository

import (
	"context"
	"time"

	"techanswers/internal/domain"
)

// UserRepository defines persistence operations for User entities and their purchases.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	Update(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByResetToken(ctx context.Context, token string) (*domain.User, error)
	SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)

	AddPurchase(ctx context.Context, userID, articleID int64) error
	HasPurchased(ctx context.Context, userID, articleID int64) (bool, error)
	ListPurchases(ctx context.Context, userID int64) ([]int64, error)
}
