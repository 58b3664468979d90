package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"techanswers/internal/domain"
	"techanswers/internal/mail"
	"techanswers/internal/pdf"
	"techanswers/internal/repository"
)

// NotificationService owns in-app notifications, the email preferences that
// gate their mail counterpart, and category subscriptions.
type NotificationService interface {
	List(ctx context.Context, userID int64, unreadOnly bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, userID, id int64) error
	GetSettings(ctx context.Context, userID int64) (*domain.NotificationSettings, error)
	UpdateSettings(ctx context.Context, settings domain.NotificationSettings) (*domain.NotificationSettings, error)

	ListSubscriptions(ctx context.Context, userID int64) ([]domain.CategorySubscription, error)
	Subscribe(ctx context.Context, userID, categoryID int64) error
	Unsubscribe(ctx context.Context, userID, categoryID int64) error

	NotifyNewArticle(ctx context.Context, article *domain.Article)
	NotifyComment(ctx context.Context, article *domain.Article, comment *domain.Comment)
	NotifyPayment(ctx context.Context, payment *domain.Payment, invoice *domain.Invoice)
}

type notificationService struct {
	notifications repository.NotificationRepository
	subscriptions repository.SubscriptionRepository
	users         repository.UserRepository
	categories    repository.CategoryRepository
	mail          MailQueue
	logger        *logrus.Logger
	publicURL     string
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	subscriptions repository.SubscriptionRepository,
	users repository.UserRepository,
	categories repository.CategoryRepository,
	queue MailQueue,
	logger *logrus.Logger,
	publicURL string,
) NotificationService {
	return &notificationService{
		notifications: notifications,
		subscriptions: subscriptions,
		users:         users,
		categories:    categories,
		mail:          queue,
		logger:        defaultLogger(logger),
		publicURL:     strings.TrimRight(publicURL, "/"),
	}
}

func (s *notificationService) List(ctx context.Context, userID int64, unreadOnly bool) ([]domain.Notification, error) {
	return s.notifications.ListByUser(ctx, userID, unreadOnly)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id int64) error {
	return translate(s.notifications.MarkRead(ctx, id, userID), "Notification introuvable")
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}

func (s *notificationService) Delete(ctx context.Context, userID, id int64) error {
	return translate(s.notifications.Delete(ctx, id, userID), "Notification introuvable")
}

func (s *notificationService) GetSettings(ctx context.Context, userID int64) (*domain.NotificationSettings, error) {
	settings, err := s.notifications.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			defaults := domain.DefaultNotificationSettings(userID)
			return &defaults, nil
		}
		return nil, err
	}
	return settings, nil
}

func (s *notificationService) UpdateSettings(ctx context.Context, settings domain.NotificationSettings) (*domain.NotificationSettings, error) {
	if err := s.notifications.SaveSettings(ctx, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *notificationService) ListSubscriptions(ctx context.Context, userID int64) ([]domain.CategorySubscription, error) {
	return s.subscriptions.ListByUser(ctx, userID)
}

func (s *notificationService) Subscribe(ctx context.Context, userID, categoryID int64) error {
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		return translate(err, "Catégorie introuvable")
	}
	return translate(s.subscriptions.Subscribe(ctx, userID, categoryID), "Catégorie introuvable")
}

func (s *notificationService) Unsubscribe(ctx context.Context, userID, categoryID int64) error {
	return translate(s.subscriptions.Unsubscribe(ctx, userID, categoryID), "Abonnement introuvable")
}

func (s *notificationService) articleLink(article *domain.Article) string {
	return fmt.Sprintf("%s/articles/%s", s.publicURL, article.Slug)
}

// NotifyNewArticle fans out to the category subscribers. Failures for one
// subscriber are logged and do not stop the others.
func (s *notificationService) NotifyNewArticle(ctx context.Context, article *domain.Article) {
	logger := s.logger.WithField("article_id", article.ID)
	ids, err := s.subscriptions.ListSubscriberIDs(ctx, article.CategoryID)
	if err != nil {
		logger.Errorf("list subscribers: %v", err)
		return
	}

	link := s.articleLink(article)
	for _, userID := range ids {
		if userID == article.AuthorID {
			continue
		}
		n := &domain.Notification{
			UserID:  userID,
			Type:    domain.NotificationNewArticle,
			Title:   "Nouvel article",
			Message: fmt.Sprintf("« %s » vient d'être publié dans %s", article.Title, article.CategoryName),
			Link:    "/articles/" + article.Slug,
		}
		if _, err := s.notifications.Create(ctx, n); err != nil {
			logger.WithField("user_id", userID).Warnf("create notification: %v", err)
			continue
		}
		s.mailIf(ctx, userID, func(st *domain.NotificationSettings) bool { return st.EmailNewArticles }, func(u *domain.User) (mail.Message, error) {
			return mail.NewArticle(u.Email, u.Username, article.Title, article.Excerpt, article.CategoryName, link)
		})
	}
	logger.Infof("new article notified to %d subscribers", len(ids))
}

func (s *notificationService) NotifyComment(ctx context.Context, article *domain.Article, comment *domain.Comment) {
	if article.AuthorID == comment.UserID {
		return
	}
	n := &domain.Notification{
		UserID:  article.AuthorID,
		Type:    domain.NotificationComment,
		Title:   "Nouveau commentaire",
		Message: fmt.Sprintf("%s a commenté « %s »", comment.Username, article.Title),
		Link:    "/articles/" + article.Slug,
	}
	if _, err := s.notifications.Create(ctx, n); err != nil {
		s.logger.WithField("article_id", article.ID).Warnf("create comment notification: %v", err)
		return
	}
	link := s.articleLink(article)
	s.mailIf(ctx, article.AuthorID, func(st *domain.NotificationSettings) bool { return st.EmailComments }, func(u *domain.User) (mail.Message, error) {
		return mail.NewComment(u.Email, u.Username, comment.Username, article.Title, comment.Content, link)
	})
}

func (s *notificationService) NotifyPayment(ctx context.Context, payment *domain.Payment, invoice *domain.Invoice) {
	amount := pdf.FormatAmount(payment.AmountCents, payment.Currency)
	n := &domain.Notification{
		UserID:  payment.UserID,
		Type:    domain.NotificationPayment,
		Title:   "Paiement confirmé",
		Message: fmt.Sprintf("Votre achat de « %s » (%s) est confirmé", payment.ArticleTitle, amount),
		Link:    fmt.Sprintf("/invoices/%d", invoice.ID),
	}
	if _, err := s.notifications.Create(ctx, n); err != nil {
		s.logger.WithField("payment_id", payment.ID).Warnf("create payment notification: %v", err)
	}
	s.mailIf(ctx, payment.UserID, func(st *domain.NotificationSettings) bool { return st.EmailPayments }, func(u *domain.User) (mail.Message, error) {
		return mail.PaymentReceipt(u.Email, u.Username, payment.ArticleTitle, amount, invoice.Number)
	})
}

func (s *notificationService) mailIf(ctx context.Context, userID int64, enabled func(*domain.NotificationSettings) bool, build func(*domain.User) (mail.Message, error)) {
	settings, err := s.GetSettings(ctx, userID)
	if err != nil {
		s.logger.WithField("user_id", userID).Warnf("load notification settings: %v", err)
		return
	}
	if !enabled(settings) {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.WithField("user_id", userID).Warnf("load user for mail: %v", err)
		return
	}
	msg, err := build(user)
	enqueueMail(s.logger, s.mail, msg, err)
}
