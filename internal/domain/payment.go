package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCanceled  PaymentStatus = "CANCELED"
)

// Payment tracks one checkout attempt for a premium article.
type Payment struct {
	ID              int64
	UserID          int64
	ArticleID       int64
	ArticleTitle    string
	AmountCents     int64
	Currency        string
	Status          PaymentStatus
	SessionID       string
	PaymentIntentID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Invoice is issued once a payment succeeds.
type Invoice struct {
	ID          int64
	Number      string
	PaymentID   int64
	UserID      int64
	AmountCents int64
	Currency    string
	StorageKey  string
	CreatedAt   time.Time
}
