package repository

import (
	"context"
	"time"

	"techanswers/internal/domain"
)

type AnalyticsRepository interface {
	Init(ctx context.Context) error
	RecordView(ctx context.Context, view *domain.PageView) error
	ViewsPerDay(ctx context.Context, since time.Time) ([]domain.DailyCount, error)
}
