package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
	"techanswers/internal/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
	// MaxCoverImageSize bounds cover uploads.
	MaxCoverImageSize = 5 << 20
	minPremiumPrice   = 50
)

var coverImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type ArticleInput struct {
	Title      string
	Excerpt    string
	Content    string
	CategoryID int64
	IsPremium  bool
	PriceCents int64
	Published  bool
}

type ArticleQuery struct {
	Category string
	Query    string
	Page     int
	Limit    int
	// IncludeDrafts lists unpublished articles too (admin listing).
	IncludeDrafts bool
}

type ArticlePage struct {
	Articles []domain.Article
	Total    int
	Page     int
	Limit    int
}

// ArticleView is an article as served to one reader.
type ArticleView struct {
	domain.Article
	Locked    bool
	Purchased bool
}

type CoverUpload struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

type ArticleService interface {
	List(ctx context.Context, q ArticleQuery) (*ArticlePage, error)
	// Read serves a published article to actor, counting the view and
	// locking premium content the actor has not bought.
	Read(ctx context.Context, slug string, actor Actor, fingerprint string) (*ArticleView, error)
	Get(ctx context.Context, id int64) (*domain.Article, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*domain.Article, error)
	Create(ctx context.Context, authorID int64, in ArticleInput) (*domain.Article, error)
	Update(ctx context.Context, id int64, in ArticleInput) (*domain.Article, error)
	Delete(ctx context.Context, id int64) error
	UploadCover(ctx context.Context, id int64, upload CoverUpload) (*domain.Article, error)
}

type articleService struct {
	articles      repository.ArticleRepository
	categories    repository.CategoryRepository
	users         repository.UserRepository
	notifications NotificationService
	analytics     AnalyticsService
	storage       storage.Service
	logger        *logrus.Logger
	now           clock
}

func NewArticleService(
	articles repository.ArticleRepository,
	categories repository.CategoryRepository,
	users repository.UserRepository,
	notifications NotificationService,
	analytics AnalyticsService,
	store storage.Service,
	logger *logrus.Logger,
) ArticleService {
	return &articleService{
		articles:      articles,
		categories:    categories,
		users:         users,
		notifications: notifications,
		analytics:     analytics,
		storage:       store,
		logger:        defaultLogger(logger),
		now:           utcNow,
	}
}

func (s *articleService) List(ctx context.Context, q ArticleQuery) (*ArticlePage, error) {
	page, limit, offset := pageBounds(q.Page, q.Limit, defaultPageSize, maxPageSize)
	articles, total, err := s.articles.List(ctx, domain.ArticleFilter{
		CategorySlug:  strings.TrimSpace(q.Category),
		Query:         q.Query,
		PublishedOnly: !q.IncludeDrafts,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return nil, err
	}
	// listings never carry the body
	for i := range articles {
		articles[i].Content = ""
	}
	return &ArticlePage{Articles: articles, Total: total, Page: page, Limit: limit}, nil
}

func (s *articleService) Read(ctx context.Context, slug string, actor Actor, fingerprint string) (*ArticleView, error) {
	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, translate(err, "Article introuvable")
	}
	if !article.Published && !actor.IsAdmin {
		return nil, newError(ErrNotFound, "Article introuvable")
	}

	view := &ArticleView{Article: *article}
	if article.IsPremium {
		switch {
		case actor.IsAdmin:
			view.Purchased = true
		case actor.Authenticated():
			bought, err := s.users.HasPurchased(ctx, actor.UserID, article.ID)
			if err != nil {
				return nil, err
			}
			view.Purchased = bought
		}
		if !view.Purchased {
			view.Locked = true
			view.Content = article.Excerpt
		}
	}

	if article.Published {
		if err := s.articles.IncrementViews(ctx, article.ID); err != nil {
			s.logger.WithField("article_id", article.ID).Warnf("increment views: %v", err)
		} else {
			view.Views++
		}
		in := TrackInput{Path: "/articles/" + article.Slug, ArticleID: &article.ID, Fingerprint: fingerprint}
		if actor.Authenticated() {
			in.UserID = &actor.UserID
		}
		if err := s.analytics.Track(ctx, in); err != nil {
			s.logger.WithField("article_id", article.ID).Warnf("record page view: %v", err)
		}
	}
	return view, nil
}

func (s *articleService) Get(ctx context.Context, id int64) (*domain.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Article introuvable")
	}
	return article, nil
}

func (s *articleService) GetPublishedBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, translate(err, "Article introuvable")
	}
	if !article.Published {
		return nil, newError(ErrNotFound, "Article introuvable")
	}
	return article, nil
}

func (s *articleService) Create(ctx context.Context, authorID int64, in ArticleInput) (*domain.Article, error) {
	article := &domain.Article{AuthorID: authorID}
	if err := s.apply(ctx, article, in); err != nil {
		return nil, err
	}
	if _, err := s.articles.Create(ctx, article); err != nil {
		return nil, translate(err, "Impossible de créer l'article")
	}

	created, err := s.articles.GetByID(ctx, article.ID)
	if err != nil {
		return nil, err
	}
	if created.Published {
		s.notifications.NotifyNewArticle(ctx, created)
	}
	return created, nil
}

func (s *articleService) Update(ctx context.Context, id int64, in ArticleInput) (*domain.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Article introuvable")
	}
	wasPublished := article.Published

	if err := s.apply(ctx, article, in); err != nil {
		return nil, err
	}
	if err := s.articles.Update(ctx, article); err != nil {
		return nil, translate(err, "Impossible de modifier l'article")
	}

	updated, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated.Published && !wasPublished {
		s.notifications.NotifyNewArticle(ctx, updated)
	}
	return updated, nil
}

func (s *articleService) Delete(ctx context.Context, id int64) error {
	if err := s.articles.Delete(ctx, id); err != nil {
		return translate(err, "Article introuvable")
	}
	if s.storage != nil {
		if err := s.storage.DeletePrefix(ctx, coverPrefix(id)); err != nil {
			s.logger.Warnf("delete media of article %d: %v", id, err)
		}
	}
	return nil
}

func coverPrefix(id int64) string {
	return fmt.Sprintf("articles/%d/", id)
}

// pruneCovers removes every stored cover of the article except keep.
func (s *articleService) pruneCovers(ctx context.Context, id int64, keep string) {
	objects, err := s.storage.ListObjects(ctx, coverPrefix(id))
	if err != nil {
		s.logger.Warnf("list covers of article %d: %v", id, err)
		return
	}
	for _, obj := range objects {
		if obj.Key == keep {
			continue
		}
		if err := s.storage.DeletePrefix(ctx, obj.Key); err != nil {
			s.logger.Warnf("delete old cover %s: %v", obj.Key, err)
		}
	}
}

func (s *articleService) UploadCover(ctx context.Context, id int64, upload CoverUpload) (*domain.Article, error) {
	if s.storage == nil {
		return nil, newError(ErrUnavailable, "Le stockage des images n'est pas configuré")
	}
	ext, ok := coverImageTypes[upload.ContentType]
	if !ok {
		return nil, invalid("image", "Format d'image non supporté (jpeg, png, webp ou gif)")
	}
	if upload.Size > MaxCoverImageSize {
		return nil, invalid("image", "L'image ne doit pas dépasser 5 Mo")
	}

	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key := coverPrefix(article.ID) + uuid.NewString() + ext
	url, err := s.storage.Upload(ctx, key, io.LimitReader(upload.Body, MaxCoverImageSize+1), upload.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload cover image: %w", err)
	}
	if err := s.articles.SetCoverImage(ctx, article.ID, url); err != nil {
		return nil, translate(err, "Article introuvable")
	}
	s.pruneCovers(ctx, article.ID, key)
	article.CoverImageURL = url
	return article, nil
}

func (s *articleService) apply(ctx context.Context, article *domain.Article, in ArticleInput) error {
	title := strings.TrimSpace(in.Title)
	if n := utf8.RuneCountInString(title); n < 3 || n > 200 {
		return invalid("title", "Le titre doit contenir entre 3 et 200 caractères")
	}
	if strings.TrimSpace(in.Content) == "" {
		return invalid("content", "Le contenu est requis")
	}
	if in.IsPremium && in.PriceCents < minPremiumPrice {
		return invalid("priceCents", "Un article premium doit coûter au moins 0,50 €")
	}
	if !in.IsPremium {
		in.PriceCents = 0
	}
	if _, err := s.categories.GetByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("categoryId", "Catégorie introuvable")
		}
		return err
	}

	if title != article.Title || article.Slug == "" {
		slug, err := s.uniqueSlug(ctx, title, article.ID)
		if err != nil {
			return err
		}
		article.Slug = slug
	}

	article.Title = title
	article.Excerpt = strings.TrimSpace(in.Excerpt)
	article.Content = in.Content
	article.CategoryID = in.CategoryID
	article.IsPremium = in.IsPremium
	article.PriceCents = in.PriceCents
	if in.Published && !article.Published {
		now := s.now()
		article.PublishedAt = &now
	}
	article.Published = in.Published
	return nil
}

func (s *articleService) uniqueSlug(ctx context.Context, title string, excludeID int64) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "article"
	}
	slug := base
	for i := 2; ; i++ {
		exists, err := s.articles.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
