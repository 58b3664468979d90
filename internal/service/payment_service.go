package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"techanswers/internal/domain"
	"techanswers/internal/payment"
	"techanswers/internal/repository"
)

type CheckoutResult struct {
	URL       string
	SessionID string
}

type PaymentService interface {
	Checkout(ctx context.Context, userID, articleID int64) (*CheckoutResult, error)
	// HandleWebhook authenticates and applies one provider event. Replays of
	// an already applied event are no-ops.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error)
}

type PaymentConfig struct {
	Currency  string
	PublicURL string
}

type paymentService struct {
	gateway       payment.Gateway
	payments      repository.PaymentRepository
	articles      repository.ArticleRepository
	users         repository.UserRepository
	invoices      InvoiceService
	notifications NotificationService
	logger        *logrus.Logger
	cfg           PaymentConfig
}

func NewPaymentService(
	gateway payment.Gateway,
	payments repository.PaymentRepository,
	articles repository.ArticleRepository,
	users repository.UserRepository,
	invoices InvoiceService,
	notifications NotificationService,
	logger *logrus.Logger,
	cfg PaymentConfig,
) PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "eur"
	}
	cfg.Currency = strings.ToLower(cfg.Currency)
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &paymentService{
		gateway:       gateway,
		payments:      payments,
		articles:      articles,
		users:         users,
		invoices:      invoices,
		notifications: notifications,
		logger:        defaultLogger(logger),
		cfg:           cfg,
	}
}

func (s *paymentService) Checkout(ctx context.Context, userID, articleID int64) (*CheckoutResult, error) {
	if s.gateway == nil {
		return nil, newError(ErrUnavailable, "Le paiement en ligne n'est pas configuré")
	}
	article, err := s.articles.GetByID(ctx, articleID)
	if err != nil {
		return nil, translate(err, "Article introuvable")
	}
	if !article.Published {
		return nil, newError(ErrNotFound, "Article introuvable")
	}
	if !article.IsPremium {
		return nil, invalid("articleId", "Cet article est gratuit")
	}
	bought, err := s.users.HasPurchased(ctx, userID, article.ID)
	if err != nil {
		return nil, err
	}
	if bought {
		return nil, newError(ErrConflict, "Vous avez déjà acheté cet article")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "Utilisateur introuvable")
	}

	p := &domain.Payment{
		UserID:       userID,
		ArticleID:    article.ID,
		ArticleTitle: article.Title,
		AmountCents:  article.PriceCents,
		Currency:     s.cfg.Currency,
		Status:       domain.PaymentStatusPending,
	}
	if _, err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	articleURL := fmt.Sprintf("%s/articles/%s", s.cfg.PublicURL, article.Slug)
	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		ProductName:   article.Title,
		AmountCents:   article.PriceCents,
		Currency:      s.cfg.Currency,
		CustomerEmail: user.Email,
		SuccessURL:    articleURL + "?payment=success&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     articleURL + "?payment=cancel",
		Metadata: map[string]string{
			"articleId": strconv.FormatInt(article.ID, 10),
			"userId":    strconv.FormatInt(userID, 10),
			"paymentId": strconv.FormatInt(p.ID, 10),
		},
	})
	if err != nil {
		if uerr := s.payments.UpdateStatus(ctx, p.ID, domain.PaymentStatusFailed, ""); uerr != nil {
			s.logger.WithField("payment_id", p.ID).Warnf("mark payment failed: %v", uerr)
		}
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if err := s.payments.SetSessionID(ctx, p.ID, session.ID); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"payment_id": p.ID, "article_id": article.ID, "user_id": userID}).Info("checkout session created")
	return &CheckoutResult{URL: session.URL, SessionID: session.ID}, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return newError(ErrUnavailable, "Le paiement en ligne n'est pas configuré")
	}
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return invalid("signature", "Signature du webhook invalide")
		}
		return invalid("payload", "Événement de paiement illisible")
	}

	logger := s.logger.WithFields(logrus.Fields{"event_id": event.ID, "event_type": event.Type})
	switch event.Type {
	case payment.EventCheckoutCompleted:
		return s.completed(ctx, logger, event)
	case payment.EventCheckoutExpired:
		return s.settle(ctx, logger, event, domain.PaymentStatusCanceled)
	case payment.EventPaymentIntentFailed:
		return s.settle(ctx, logger, event, domain.PaymentStatusFailed)
	default:
		logger.Debug("webhook event ignored")
		return nil
	}
}

func (s *paymentService) completed(ctx context.Context, logger *logrus.Entry, event *payment.WebhookEvent) error {
	p, err := s.lookup(ctx, event)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn("webhook for unknown payment")
			return nil
		}
		return err
	}
	if p.Status == domain.PaymentStatusSucceeded {
		logger.WithField("payment_id", p.ID).Debug("payment already succeeded")
		return nil
	}

	// The status flips last: purchase and invoice are idempotent, so a failed
	// step is retried whole when the provider redelivers the event.
	if event.PaymentIntentID != "" {
		p.PaymentIntentID = event.PaymentIntentID
	}
	if err := s.users.AddPurchase(ctx, p.UserID, p.ArticleID); err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}
	invoice, err := s.invoices.Issue(ctx, p)
	if err != nil {
		return fmt.Errorf("issue invoice: %w", err)
	}
	if err := s.payments.UpdateStatus(ctx, p.ID, domain.PaymentStatusSucceeded, event.PaymentIntentID); err != nil {
		return err
	}
	p.Status = domain.PaymentStatusSucceeded
	s.notifications.NotifyPayment(ctx, p, invoice)
	logger.WithFields(logrus.Fields{"payment_id": p.ID, "invoice": invoice.Number}).Info("payment succeeded")
	return nil
}

func (s *paymentService) settle(ctx context.Context, logger *logrus.Entry, event *payment.WebhookEvent, status domain.PaymentStatus) error {
	p, err := s.lookup(ctx, event)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn("webhook for unknown payment")
			return nil
		}
		return err
	}
	// a late failure must not undo a completed purchase
	if p.Status != domain.PaymentStatusPending {
		return nil
	}
	if err := s.payments.UpdateStatus(ctx, p.ID, status, event.PaymentIntentID); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"payment_id": p.ID, "status": status}).Info("payment settled")
	return nil
}

// lookup finds the payment by session, intent, then metadata.
func (s *paymentService) lookup(ctx context.Context, event *payment.WebhookEvent) (*domain.Payment, error) {
	if event.SessionID != "" {
		p, err := s.payments.GetBySessionID(ctx, event.SessionID)
		if err == nil || !errors.Is(err, repository.ErrNotFound) {
			return p, err
		}
	}
	if event.PaymentIntentID != "" {
		p, err := s.payments.GetByIntentID(ctx, event.PaymentIntentID)
		if err == nil || !errors.Is(err, repository.ErrNotFound) {
			return p, err
		}
	}
	if raw := event.Metadata["paymentId"]; raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return s.payments.GetByID(ctx, id)
		}
	}
	return nil, fmt.Errorf("payment: %w", repository.ErrNotFound)
}

func (s *paymentService) ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}
