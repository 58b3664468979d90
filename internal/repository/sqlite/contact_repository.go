package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
)

const createContactsTable = `
CREATE TABLE IF NOT EXISTS contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	subject TEXT NOT NULL,
	message TEXT NOT NULL,
	read INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
`

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) repository.ContactRepository {
	return &ContactRepository{db: db}
}

var _ repository.ContactRepository = (*ContactRepository)(nil)

func (r *ContactRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createContactsTable); err != nil {
		return fmt.Errorf("create contacts table: %w", err)
	}
	return nil
}

func (r *ContactRepository) Create(ctx context.Context, contact *domain.Contact) (int64, error) {
	contact.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
INSERT INTO contacts (name, email, subject, message, read, created_at)
VALUES (?, ?, ?, ?, 0, ?)`,
		contact.Name,
		contact.Email,
		contact.Subject,
		contact.Message,
		contact.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert contact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("contact last insert id: %w", err)
	}
	contact.ID = id
	return id, nil
}

func (r *ContactRepository) List(ctx context.Context) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, email, subject, message, read, created_at
FROM contacts
ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	contacts := []domain.Contact{}
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Subject, &c.Message, &c.Read, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) MarkRead(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE contacts SET read=1 WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("mark contact read: %w", err)
	}
	return affected(res, "mark contact read")
}

func (r *ContactRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return affected(res, "delete contact")
}
