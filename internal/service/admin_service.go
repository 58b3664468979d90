package service

import (
	"context"
	"time"

	"techanswers/internal/domain"
	"techanswers/internal/pdf"
	"techanswers/internal/repository"
)

const (
	defaultStatsDays = 30
	maxStatsDays     = 365
	topArticleCount  = 5
)

type UserPage struct {
	Users []domain.User
	Total int64
	Page  int
	Limit int
}

// AdminService backs the dashboard and user administration.
type AdminService interface {
	Stats(ctx context.Context, days int) (*domain.DashboardStats, error)
	Report(ctx context.Context, days int) ([]byte, error)
	ListUsers(ctx context.Context, page, limit int) (*UserPage, error)
	SetAdmin(ctx context.Context, actor Actor, userID int64, isAdmin bool) (*domain.User, error)
}

type adminService struct {
	users    repository.UserRepository
	articles repository.ArticleRepository
	comments repository.CommentRepository
	payments repository.PaymentRepository
	views    repository.AnalyticsRepository
	currency string
	now      clock
}

func NewAdminService(
	users repository.UserRepository,
	articles repository.ArticleRepository,
	comments repository.CommentRepository,
	payments repository.PaymentRepository,
	views repository.AnalyticsRepository,
	currency string,
) AdminService {
	if currency == "" {
		currency = "eur"
	}
	return &adminService{
		users:    users,
		articles: articles,
		comments: comments,
		payments: payments,
		views:    views,
		currency: currency,
		now:      utcNow,
	}
}

func (s *adminService) Stats(ctx context.Context, days int) (*domain.DashboardStats, error) {
	if days <= 0 {
		days = defaultStatsDays
	}
	if days > maxStatsDays {
		days = maxStatsDays
	}
	now := s.now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	var (
		stats = &domain.DashboardStats{Since: since}
		err   error
	)
	if stats.Users, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Articles, err = s.articles.Count(ctx, false); err != nil {
		return nil, err
	}
	if stats.PublishedArticles, err = s.articles.Count(ctx, true); err != nil {
		return nil, err
	}
	if stats.Comments, err = s.comments.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Payments, stats.RevenueCents, err = s.payments.Totals(ctx); err != nil {
		return nil, err
	}
	if stats.ViewsPerDay, err = s.views.ViewsPerDay(ctx, since); err != nil {
		return nil, err
	}
	if stats.TopArticles, err = s.articles.TopByViews(ctx, topArticleCount); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *adminService) Report(ctx context.Context, days int) ([]byte, error) {
	stats, err := s.Stats(ctx, days)
	if err != nil {
		return nil, err
	}
	return pdf.Report(*stats, s.currency, s.now())
}

func (s *adminService) ListUsers(ctx context.Context, page, limit int) (*UserPage, error) {
	page, limit, offset := pageBounds(page, limit, 20, 100)
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
}

func (s *adminService) SetAdmin(ctx context.Context, actor Actor, userID int64, isAdmin bool) (*domain.User, error) {
	if !actor.IsSuperAdmin {
		return nil, newError(ErrForbidden, "Action réservée aux super administrateurs")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "Utilisateur introuvable")
	}
	if user.ID == actor.UserID && !isAdmin {
		return nil, newError(ErrForbidden, "Vous ne pouvez pas retirer vos propres droits")
	}
	if user.IsSuperAdmin && !isAdmin {
		return nil, newError(ErrForbidden, "Un super administrateur ne peut pas être rétrogradé")
	}
	user.IsAdmin = isAdmin
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
