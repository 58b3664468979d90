package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
)

const createArticlesTable = `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	excerpt TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	cover_image_url TEXT NOT NULL DEFAULT '',
	category_id INTEGER NOT NULL,
	author_id INTEGER NOT NULL,
	is_premium INTEGER NOT NULL DEFAULT 0,
	price_cents INTEGER NOT NULL DEFAULT 0,
	published INTEGER NOT NULL DEFAULT 0,
	published_at DATETIME NULL,
	views INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(category_id) REFERENCES categories(id) ON DELETE RESTRICT,
	FOREIGN KEY(author_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category_id);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published, published_at);
`

const articleSelect = `
SELECT a.id, a.title, a.slug, a.excerpt, a.content, a.cover_image_url, a.category_id, c.name, c.slug,
	a.author_id, u.username, a.is_premium, a.price_cents, a.published, a.published_at, a.views, a.created_at, a.updated_at
FROM articles a
JOIN categories c ON c.id = a.category_id
JOIN users u ON u.id = a.author_id`

type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepository{db: db}
}

var _ repository.ArticleRepository = (*ArticleRepository)(nil)

func (r *ArticleRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createArticlesTable); err != nil {
		return fmt.Errorf("create articles table: %w", err)
	}
	return nil
}

func (r *ArticleRepository) Create(ctx context.Context, article *domain.Article) (int64, error) {
	now := time.Now().UTC()
	article.CreatedAt = now
	article.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO articles (title, slug, excerpt, content, cover_image_url, category_id, author_id, is_premium, price_cents, published, published_at, views, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		article.Title,
		article.Slug,
		article.Excerpt,
		article.Content,
		article.CoverImageURL,
		article.CategoryID,
		article.AuthorID,
		article.IsPremium,
		article.PriceCents,
		article.Published,
		nullTime(article.PublishedAt),
		article.CreatedAt,
		article.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert article: %w", repository.ErrDuplicate)
		}
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("insert article: %w", repository.ErrNotFound)
		}
		return 0, fmt.Errorf("insert article: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("article last insert id: %w", err)
	}
	article.ID = id
	return id, nil
}

func (r *ArticleRepository) Update(ctx context.Context, article *domain.Article) error {
	article.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE articles
SET title=?, slug=?, excerpt=?, content=?, cover_image_url=?, category_id=?, is_premium=?, price_cents=?, published=?, published_at=?, updated_at=?
WHERE id=?`,
		article.Title,
		article.Slug,
		article.Excerpt,
		article.Content,
		article.CoverImageURL,
		article.CategoryID,
		article.IsPremium,
		article.PriceCents,
		article.Published,
		nullTime(article.PublishedAt),
		article.UpdatedAt,
		article.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update article: %w", repository.ErrDuplicate)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("update article: %w", repository.ErrNotFound)
		}
		return fmt.Errorf("update article: %w", err)
	}
	return affected(res, "update article")
}

func (r *ArticleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return affected(res, "delete article")
}

func (r *ArticleRepository) GetByID(ctx context.Context, id int64) (*domain.Article, error) {
	return scanArticle(r.db.QueryRowContext(ctx, articleSelect+` WHERE a.id = ?`, id))
}

func (r *ArticleRepository) GetBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	return scanArticle(r.db.QueryRowContext(ctx, articleSelect+` WHERE a.slug = ?`, slug))
}

func (r *ArticleRepository) List(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.PublishedOnly {
		where = append(where, "a.published = 1")
	}
	if filter.CategorySlug != "" {
		where = append(where, "c.slug = ?")
		args = append(args, filter.CategorySlug)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, "(a.title LIKE ? OR a.excerpt LIKE ?)")
		pattern := "%" + q + "%"
		args = append(args, pattern, pattern)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM articles a JOIN categories c ON c.id = a.category_id` + clause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query := articleSelect + clause + ` ORDER BY COALESCE(a.published_at, a.created_at) DESC, a.id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, *article)
	}
	return articles, total, rows.Err()
}

func (r *ArticleRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles WHERE slug=? AND id<>?`, slug, excludeID).Scan(&n); err != nil {
		return false, fmt.Errorf("query slug: %w", err)
	}
	return n > 0, nil
}

func (r *ArticleRepository) IncrementViews(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE articles SET views = views + 1 WHERE id=?`, id); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

func (r *ArticleRepository) SetCoverImage(ctx context.Context, id int64, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE articles SET cover_image_url=?, updated_at=? WHERE id=?`, url, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set cover image: %w", err)
	}
	return affected(res, "set cover image")
}

func (r *ArticleRepository) Count(ctx context.Context, publishedOnly bool) (int64, error) {
	query := `SELECT COUNT(*) FROM articles`
	if publishedOnly {
		query += ` WHERE published = 1`
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

func (r *ArticleRepository) TopByViews(ctx context.Context, limit int) ([]domain.ArticleViews, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, slug, views FROM articles
WHERE published = 1
ORDER BY views DESC, id ASC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top articles: %w", err)
	}
	defer rows.Close()

	top := []domain.ArticleViews{}
	for rows.Next() {
		var v domain.ArticleViews
		if err := rows.Scan(&v.ArticleID, &v.Title, &v.Slug, &v.Views); err != nil {
			return nil, fmt.Errorf("scan top article: %w", err)
		}
		top = append(top, v)
	}
	return top, rows.Err()
}

func scanArticle(row rowScanner) (*domain.Article, error) {
	var (
		a           domain.Article
		publishedAt sql.NullTime
	)
	if err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Slug,
		&a.Excerpt,
		&a.Content,
		&a.CoverImageURL,
		&a.CategoryID,
		&a.CategoryName,
		&a.CategorySlug,
		&a.AuthorID,
		&a.AuthorName,
		&a.IsPremium,
		&a.PriceCents,
		&a.Published,
		&publishedAt,
		&a.Views,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, notFound(err, "article")
	}
	a.PublishedAt = timePtr(publishedAt)
	return &a, nil
}
