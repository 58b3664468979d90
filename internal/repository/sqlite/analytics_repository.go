package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
)

const createPageViewsTable = `
CREATE TABLE IF NOT EXISTS page_views (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	article_id INTEGER NULL,
	user_id INTEGER NULL,
	fingerprint TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_page_views_created ON page_views(created_at);
`

type AnalyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) repository.AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

var _ repository.AnalyticsRepository = (*AnalyticsRepository)(nil)

func (r *AnalyticsRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPageViewsTable); err != nil {
		return fmt.Errorf("create page_views table: %w", err)
	}
	return nil
}

func (r *AnalyticsRepository) RecordView(ctx context.Context, view *domain.PageView) error {
	if view.CreatedAt.IsZero() {
		view.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
INSERT INTO page_views (path, article_id, user_id, fingerprint, created_at)
VALUES (?, ?, ?, ?, ?)`,
		view.Path,
		nullInt(view.ArticleID),
		nullInt(view.UserID),
		view.Fingerprint,
		view.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert page view: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("page view last insert id: %w", err)
	}
	view.ID = id
	return nil
}

// ViewsPerDay groups on the date prefix of the stored timestamp, which is
// always written in UTC.
func (r *AnalyticsRepository) ViewsPerDay(ctx context.Context, since time.Time) ([]domain.DailyCount, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT substr(created_at, 1, 10) AS day, COUNT(*)
FROM page_views
WHERE created_at >= ?
GROUP BY day
ORDER BY day ASC`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query views per day: %w", err)
	}
	defer rows.Close()

	counts := []domain.DailyCount{}
	for rows.Next() {
		var c domain.DailyCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, fmt.Errorf("scan views per day: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
