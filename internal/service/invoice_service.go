package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"techanswers/internal/domain"
	"techanswers/internal/pdf"
	"techanswers/internal/repository"
	"techanswers/internal/storage"
)

const invoiceURLTTL = 15 * time.Minute

// InvoiceDocument is either a redirect to stored bytes or the bytes themselves.
type InvoiceDocument struct {
	Filename    string
	RedirectURL string
	Data        []byte
}

type InvoiceService interface {
	// Issue creates the invoice of a succeeded payment; calling it again
	// returns the existing one.
	Issue(ctx context.Context, payment *domain.Payment) (*domain.Invoice, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Invoice, error)
	Document(ctx context.Context, actor Actor, id int64) (*InvoiceDocument, error)
}

type invoiceService struct {
	invoices repository.InvoiceRepository
	payments repository.PaymentRepository
	users    repository.UserRepository
	storage  storage.Service
	logger   *logrus.Logger
	now      clock
}

func NewInvoiceService(
	invoices repository.InvoiceRepository,
	payments repository.PaymentRepository,
	users repository.UserRepository,
	store storage.Service,
	logger *logrus.Logger,
) InvoiceService {
	return &invoiceService{
		invoices: invoices,
		payments: payments,
		users:    users,
		storage:  store,
		logger:   defaultLogger(logger),
		now:      utcNow,
	}
}

// InvoiceNumber formats TA-YYYYMM-<8 hex>.
func InvoiceNumber(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("TA-%s-%s", t.UTC().Format("200601"), suffix)
}

func (s *invoiceService) Issue(ctx context.Context, payment *domain.Payment) (*domain.Invoice, error) {
	existing, err := s.invoices.GetByPaymentID(ctx, payment.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	invoice := &domain.Invoice{
		Number:      InvoiceNumber(now),
		PaymentID:   payment.ID,
		UserID:      payment.UserID,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		CreatedAt:   now,
	}

	if s.storage != nil {
		data, err := s.render(ctx, invoice, payment)
		if err != nil {
			return nil, err
		}
		key := fmt.Sprintf("invoices/%s.pdf", invoice.Number)
		if _, err := s.storage.Upload(ctx, key, bytes.NewReader(data), "application/pdf"); err != nil {
			// the PDF can still be rendered on demand
			s.logger.WithField("payment_id", payment.ID).Warnf("upload invoice pdf: %v", err)
		} else {
			invoice.StorageKey = key
		}
	}

	if _, err := s.invoices.Create(ctx, invoice); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.invoices.GetByPaymentID(ctx, payment.ID)
		}
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) ListByUser(ctx context.Context, userID int64) ([]domain.Invoice, error) {
	return s.invoices.ListByUser(ctx, userID)
}

func (s *invoiceService) Document(ctx context.Context, actor Actor, id int64) (*InvoiceDocument, error) {
	invoice, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Facture introuvable")
	}
	if invoice.UserID != actor.UserID && !actor.IsAdmin {
		return nil, newError(ErrNotFound, "Facture introuvable")
	}

	doc := &InvoiceDocument{Filename: invoice.Number + ".pdf"}
	if invoice.StorageKey != "" && s.storage != nil {
		url, err := s.storage.GetObjectURL(ctx, invoice.StorageKey, invoiceURLTTL)
		if err == nil {
			doc.RedirectURL = url
			return doc, nil
		}
		s.logger.WithField("invoice_id", invoice.ID).Warnf("presign invoice: %v", err)
	}

	payment, err := s.payments.GetByID(ctx, invoice.PaymentID)
	if err != nil {
		return nil, err
	}
	data, err := s.render(ctx, invoice, payment)
	if err != nil {
		return nil, err
	}
	doc.Data = data
	return doc, nil
}

func (s *invoiceService) render(ctx context.Context, invoice *domain.Invoice, payment *domain.Payment) ([]byte, error) {
	user, err := s.users.GetByID(ctx, invoice.UserID)
	if err != nil {
		return nil, err
	}
	return pdf.Invoice(pdf.InvoiceData{
		Number:        invoice.Number,
		IssuedAt:      invoice.CreatedAt,
		CustomerName:  user.Username,
		CustomerEmail: user.Email,
		ArticleTitle:  payment.ArticleTitle,
		AmountCents:   invoice.AmountCents,
		Currency:      invoice.Currency,
		PaymentRef:    payment.PaymentIntentID,
	})
}
