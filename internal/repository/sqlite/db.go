package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"techanswers/internal/repository"
)

// Open opens (or creates) a sqlite database at the given path and ensures directories exist.
func Open(path string) (*sql.DB, error) {
	dsn := path
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	if strings.Contains(dsn, "?") {
		dsn += "&_time_format=sqlite"
	} else {
		dsn += "?_time_format=sqlite"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// a single connection serialises writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return db, nil
}

// Repositories bundles every sqlite repository over one database handle.
type Repositories struct {
	Users         *UserRepository
	Categories    *CategoryRepository
	Articles      *ArticleRepository
	Comments      *CommentRepository
	Ratings       *RatingRepository
	Contacts      *ContactRepository
	Payments      *PaymentRepository
	Invoices      *InvoiceRepository
	Notifications *NotificationRepository
	Subscriptions *SubscriptionRepository
	Bruteforce    *BruteforceRepository
	TwoFactor     *TwoFactorRepository
	Analytics     *AnalyticsRepository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Users:         &UserRepository{db: db},
		Categories:    &CategoryRepository{db: db},
		Articles:      &ArticleRepository{db: db},
		Comments:      &CommentRepository{db: db},
		Ratings:       &RatingRepository{db: db},
		Contacts:      &ContactRepository{db: db},
		Payments:      &PaymentRepository{db: db},
		Invoices:      &InvoiceRepository{db: db},
		Notifications: &NotificationRepository{db: db},
		Subscriptions: &SubscriptionRepository{db: db},
		Bruteforce:    &BruteforceRepository{db: db},
		TwoFactor:     &TwoFactorRepository{db: db},
		Analytics:     &AnalyticsRepository{db: db},
	}
}

// Init creates every table. Order follows foreign key dependencies.
func (r *Repositories) Init(ctx context.Context) error {
	steps := []interface {
		Init(ctx context.Context) error
	}{
		r.Users,
		r.Categories,
		r.Articles,
		r.Comments,
		r.Ratings,
		r.Contacts,
		r.Payments,
		r.Invoices,
		r.Notifications,
		r.Subscriptions,
		r.Bruteforce,
		r.TwoFactor,
		r.Analytics,
	}
	for _, step := range steps {
		if err := step.Init(ctx); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return fmt.Errorf("scan %s: %w", what, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func affected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "foreign key")
}
