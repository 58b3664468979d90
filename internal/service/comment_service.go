package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
)

const maxCommentLength = 2000

type CommentService interface {
	List(ctx context.Context, slug string) ([]domain.Comment, error)
	Create(ctx context.Context, userID int64, slug, content string) (*domain.Comment, error)
	// Delete removes a comment when actor wrote it or is an admin.
	Delete(ctx context.Context, actor Actor, id int64) error
	Rate(ctx context.Context, userID int64, slug string, value int) (domain.RatingSummary, error)
	Rating(ctx context.Context, slug string, userID int64) (domain.RatingSummary, error)
}

type commentService struct {
	comments      repository.CommentRepository
	ratings       repository.RatingRepository
	articles      ArticleService
	notifications NotificationService
}

func NewCommentService(comments repository.CommentRepository, ratings repository.RatingRepository, articles ArticleService, notifications NotificationService) CommentService {
	return &commentService{
		comments:      comments,
		ratings:       ratings,
		articles:      articles,
		notifications: notifications,
	}
}

func (s *commentService) List(ctx context.Context, slug string) ([]domain.Comment, error) {
	article, err := s.articles.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.comments.ListByArticle(ctx, article.ID)
}

func (s *commentService) Create(ctx context.Context, userID int64, slug, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n == 0 || n > maxCommentLength {
		return nil, invalid("content", "Le commentaire doit contenir entre 1 et 2000 caractères")
	}
	article, err := s.articles.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{ArticleID: article.ID, UserID: userID, Content: content}
	if _, err := s.comments.Create(ctx, comment); err != nil {
		return nil, translate(err, "Article introuvable")
	}
	saved, err := s.comments.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	s.notifications.NotifyComment(ctx, article, saved)
	return saved, nil
}

func (s *commentService) Delete(ctx context.Context, actor Actor, id int64) error {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return translate(err, "Commentaire introuvable")
	}
	if comment.UserID != actor.UserID && !actor.IsAdmin {
		return newError(ErrForbidden, "Vous ne pouvez supprimer que vos propres commentaires")
	}
	return translate(s.comments.Delete(ctx, id), "Commentaire introuvable")
}

func (s *commentService) Rate(ctx context.Context, userID int64, slug string, value int) (domain.RatingSummary, error) {
	if value < 1 || value > 5 {
		return domain.RatingSummary{}, invalid("value", "La note doit être comprise entre 1 et 5")
	}
	article, err := s.articles.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return domain.RatingSummary{}, err
	}
	if err := s.ratings.Upsert(ctx, &domain.Rating{ArticleID: article.ID, UserID: userID, Value: value}); err != nil {
		return domain.RatingSummary{}, err
	}
	return s.ratings.Summary(ctx, article.ID, userID)
}

func (s *commentService) Rating(ctx context.Context, slug string, userID int64) (domain.RatingSummary, error) {
	article, err := s.articles.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return domain.RatingSummary{}, err
	}
	return s.ratings.Summary(ctx, article.ID, userID)
}
