package service

import (
	"context"
	"strings"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
)

type TrackInput struct {
	Path        string
	ArticleID   *int64
	UserID      *int64
	Fingerprint string
}

type AnalyticsService interface {
	Track(ctx context.Context, in TrackInput) error
}

type analyticsService struct {
	views repository.AnalyticsRepository
	now   clock
}

func NewAnalyticsService(views repository.AnalyticsRepository) AnalyticsService {
	return &analyticsService{views: views, now: utcNow}
}

func (s *analyticsService) Track(ctx context.Context, in TrackInput) error {
	path := strings.TrimSpace(in.Path)
	if path == "" {
		return invalid("path", "Le chemin est requis")
	}
	if len(path) > 500 {
		path = path[:500]
	}
	return s.views.RecordView(ctx, &domain.PageView{
		Path:        path,
		ArticleID:   in.ArticleID,
		UserID:      in.UserID,
		Fingerprint: in.Fingerprint,
		CreatedAt:   s.now(),
	})
}
