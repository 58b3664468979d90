package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
)

const createCommentsTable = `
CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	article_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(article_id) REFERENCES articles(id) ON DELETE CASCADE,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_comments_article ON comments(article_id);
`

const createRatingsTable = `
CREATE TABLE IF NOT EXISTS ratings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	article_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	value INTEGER NOT NULL CHECK (value BETWEEN 1 AND 5),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(article_id, user_id),
	FOREIGN KEY(article_id) REFERENCES articles(id) ON DELETE CASCADE,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
`

type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) repository.CommentRepository {
	return &CommentRepository{db: db}
}

var _ repository.CommentRepository = (*CommentRepository)(nil)

func (r *CommentRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCommentsTable); err != nil {
		return fmt.Errorf("create comments table: %w", err)
	}
	return nil
}

func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (int64, error) {
	now := time.Now().UTC()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO comments (article_id, user_id, content, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`,
		comment.ArticleID,
		comment.UserID,
		comment.Content,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("comment last insert id: %w", err)
	}
	comment.ID = id
	return id, nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT c.id, c.article_id, c.user_id, u.username, c.content, c.created_at, c.updated_at
FROM comments c JOIN users u ON u.id = c.user_id
WHERE c.id = ?`, id)
	return scanComment(row)
}

func (r *CommentRepository) ListByArticle(ctx context.Context, articleID int64) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT c.id, c.article_id, c.user_id, u.username, c.content, c.created_at, c.updated_at
FROM comments c JOIN users u ON u.id = c.user_id
WHERE c.article_id = ?
ORDER BY c.created_at ASC, c.id ASC`, articleID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []domain.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *comment)
	}
	return comments, rows.Err()
}

func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return affected(res, "delete comment")
}

func (r *CommentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}

func scanComment(row rowScanner) (*domain.Comment, error) {
	var c domain.Comment
	if err := row.Scan(&c.ID, &c.ArticleID, &c.UserID, &c.Username, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, notFound(err, "comment")
	}
	return &c, nil
}

type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) repository.RatingRepository {
	return &RatingRepository{db: db}
}

var _ repository.RatingRepository = (*RatingRepository)(nil)

func (r *RatingRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRatingsTable); err != nil {
		return fmt.Errorf("create ratings table: %w", err)
	}
	return nil
}

func (r *RatingRepository) Upsert(ctx context.Context, rating *domain.Rating) error {
	now := time.Now().UTC()
	rating.UpdatedAt = now
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = now
	}
	err := r.db.QueryRowContext(ctx, `
INSERT INTO ratings (article_id, user_id, value, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(article_id, user_id) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
RETURNING id`,
		rating.ArticleID,
		rating.UserID,
		rating.Value,
		now,
		now,
	).Scan(&rating.ID)
	if err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

func (r *RatingRepository) Summary(ctx context.Context, articleID, userID int64) (domain.RatingSummary, error) {
	var (
		summary domain.RatingSummary
		avg     sql.NullFloat64
	)
	if err := r.db.QueryRowContext(ctx, `
SELECT AVG(value), COUNT(*) FROM ratings WHERE article_id=?`, articleID).Scan(&avg, &summary.Count); err != nil {
		return summary, fmt.Errorf("rating summary: %w", err)
	}
	if avg.Valid {
		summary.Average = avg.Float64
	}
	if userID > 0 {
		err := r.db.QueryRowContext(ctx, `
SELECT value FROM ratings WHERE article_id=? AND user_id=?`, articleID, userID).Scan(&summary.UserRating)
		if err != nil && err != sql.ErrNoRows {
			return summary, fmt.Errorf("user rating: %w", err)
		}
	}
	return summary, nil
}
