package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
)

const createPaymentsTable = `
CREATE TABLE IF NOT EXISTS payments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	article_id INTEGER NOT NULL,
	article_title TEXT NOT NULL DEFAULT '',
	amount_cents INTEGER NOT NULL,
	currency TEXT NOT NULL,
	status TEXT NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	payment_intent_id TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_payments_session ON payments(session_id);
CREATE INDEX IF NOT EXISTS idx_payments_user ON payments(user_id);
`

const createInvoicesTable = `
CREATE TABLE IF NOT EXISTS invoices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	number TEXT NOT NULL UNIQUE,
	payment_id INTEGER NOT NULL UNIQUE,
	user_id INTEGER NOT NULL,
	amount_cents INTEGER NOT NULL,
	currency TEXT NOT NULL,
	storage_key TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	FOREIGN KEY(payment_id) REFERENCES payments(id) ON DELETE CASCADE
);
`

const paymentColumns = `id, user_id, article_id, article_title, amount_cents, currency, status, session_id, payment_intent_id, created_at, updated_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &PaymentRepository{db: db}
}

var _ repository.PaymentRepository = (*PaymentRepository)(nil)

func (r *PaymentRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPaymentsTable); err != nil {
		return fmt.Errorf("create payments table: %w", err)
	}
	return nil
}

func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) (int64, error) {
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	if payment.Status == "" {
		payment.Status = domain.PaymentStatusPending
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO payments (user_id, article_id, article_title, amount_cents, currency, status, session_id, payment_intent_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.UserID,
		payment.ArticleID,
		payment.ArticleTitle,
		payment.AmountCents,
		payment.Currency,
		string(payment.Status),
		payment.SessionID,
		payment.PaymentIntentID,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("payment last insert id: %w", err)
	}
	payment.ID = id
	return id, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=?`, id))
}

func (r *PaymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("payment: %w", repository.ErrNotFound)
	}
	return scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE session_id=?`, sessionID))
}

func (r *PaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	if intentID == "" {
		return nil, fmt.Errorf("payment: %w", repository.ErrNotFound)
	}
	return scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE payment_intent_id=?`, intentID))
}

func (r *PaymentRepository) SetSessionID(ctx context.Context, id int64, sessionID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payments SET session_id=?, updated_at=? WHERE id=?`, sessionID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set payment session: %w", err)
	}
	return affected(res, "set payment session")
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus, intentID string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE payments
SET status=?, payment_intent_id=CASE WHEN ? <> '' THEN ? ELSE payment_intent_id END, updated_at=?
WHERE id=?`,
		string(status),
		intentID,
		intentID,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return affected(res, "update payment status")
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE user_id=? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) Totals(ctx context.Context) (int64, int64, error) {
	var count, revenue int64
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(amount_cents), 0) FROM payments WHERE status=?`,
		string(domain.PaymentStatusSucceeded),
	).Scan(&count, &revenue)
	if err != nil {
		return 0, 0, fmt.Errorf("payment totals: %w", err)
	}
	return count, revenue, nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		p      domain.Payment
		status string
	)
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.ArticleID,
		&p.ArticleTitle,
		&p.AmountCents,
		&p.Currency,
		&status,
		&p.SessionID,
		&p.PaymentIntentID,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, notFound(err, "payment")
	}
	p.Status = domain.PaymentStatus(status)
	return &p, nil
}

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) repository.InvoiceRepository {
	return &InvoiceRepository{db: db}
}

var _ repository.InvoiceRepository = (*InvoiceRepository)(nil)

func (r *InvoiceRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createInvoicesTable); err != nil {
		return fmt.Errorf("create invoices table: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) (int64, error) {
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
INSERT INTO invoices (number, payment_id, user_id, amount_cents, currency, storage_key, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		invoice.Number,
		invoice.PaymentID,
		invoice.UserID,
		invoice.AmountCents,
		invoice.Currency,
		invoice.StorageKey,
		invoice.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert invoice: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("invoice last insert id: %w", err)
	}
	invoice.ID = id
	return id, nil
}

const invoiceColumns = `id, number, payment_id, user_id, amount_cents, currency, storage_key, created_at`

func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	return scanInvoice(r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=?`, id))
}

func (r *InvoiceRepository) GetByPaymentID(ctx context.Context, paymentID int64) (*domain.Invoice, error) {
	return scanInvoice(r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE payment_id=?`, paymentID))
}

func (r *InvoiceRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE user_id=? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := row.Scan(&inv.ID, &inv.Number, &inv.PaymentID, &inv.UserID, &inv.AmountCents, &inv.Currency, &inv.StorageKey, &inv.CreatedAt); err != nil {
		return nil, notFound(err, "invoice")
	}
	return &inv, nil
}
