package repository

import (
	"context"

	"techanswers/internal/domain"
)

type CategoryRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, category *domain.Category) (int64, error)
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

// ArticleRepository manages articles. Reads join the category and author names.
type ArticleRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, article *domain.Article) (int64, error)
	Update(ctx context.Context, article *domain.Article) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Article, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Article, error)
	List(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, int, error)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	IncrementViews(ctx context.Context, id int64) error
	SetCoverImage(ctx context.Context, id int64, url string) error
	Count(ctx context.Context, publishedOnly bool) (int64, error)
	TopByViews(ctx context.Context, limit int) ([]domain.ArticleViews, error)
}

type CommentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, comment *domain.Comment) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Comment, error)
	ListByArticle(ctx context.Context, articleID int64) ([]domain.Comment, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// RatingRepository keeps one rating per (user, article).
type RatingRepository interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, rating *domain.Rating) error
	Summary(ctx context.Context, articleID, userID int64) (domain.RatingSummary, error)
}

type ContactRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, contact *domain.Contact) (int64, error)
	List(ctx context.Context) ([]domain.Contact, error)
	MarkRead(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
