package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
)

const createCategoriesTable = `
CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const categorySelect = `
SELECT c.id, c.name, c.slug, c.description, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM articles a WHERE a.category_id = c.id AND a.published = 1)
FROM categories c`

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) repository.CategoryRepository {
	return &CategoryRepository{db: db}
}

var _ repository.CategoryRepository = (*CategoryRepository)(nil)

func (r *CategoryRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCategoriesTable); err != nil {
		return fmt.Errorf("create categories table: %w", err)
	}
	return nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) (int64, error) {
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO categories (name, slug, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`,
		category.Name,
		category.Slug,
		category.Description,
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert category: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("category last insert id: %w", err)
	}
	category.ID = id
	return id, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	category.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE categories SET name=?, slug=?, description=?, updated_at=? WHERE id=?`,
		category.Name,
		category.Slug,
		category.Description,
		category.UpdatedAt,
		category.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update category: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("update category: %w", err)
	}
	return affected(res, "update category")
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id=?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("delete category: %w", repository.ErrReferenced)
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return affected(res, "delete category")
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	return scanCategory(r.db.QueryRowContext(ctx, categorySelect+` WHERE c.id = ?`, id))
}

func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return scanCategory(r.db.QueryRowContext(ctx, categorySelect+` WHERE c.slug = ?`, slug))
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, categorySelect+` ORDER BY c.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	return categories, rows.Err()
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.ArticleCount); err != nil {
		return nil, notFound(err, "category")
	}
	return &c, nil
}
