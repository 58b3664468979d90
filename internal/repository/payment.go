package repository

import (
	"context"

	"techanswers/internal/domain"
)

type PaymentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, payment *domain.Payment) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error)
	GetByIntentID(ctx context.Context, intentID string) (*domain.Payment, error)
	SetSessionID(ctx context.Context, id int64, sessionID string) error
	UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus, intentID string) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error)
	// Totals returns the number of succeeded payments and their summed amount.
	Totals(ctx context.Context) (int64, int64, error)
}

type InvoiceRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, invoice *domain.Invoice) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Invoice, error)
	GetByPaymentID(ctx context.Context, paymentID int64) (*domain.Invoice, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Invoice, error)
}
