package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"techanswers/internal/domain"
	"techanswers/internal/mail"
	"techanswers/internal/repository"
)

type ContactInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

type ContactService interface {
	Submit(ctx context.Context, in ContactInput) (*domain.Contact, error)
	List(ctx context.Context) ([]domain.Contact, error)
	MarkRead(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type contactService struct {
	contacts   repository.ContactRepository
	mail       MailQueue
	logger     *logrus.Logger
	adminEmail string
}

func NewContactService(contacts repository.ContactRepository, queue MailQueue, logger *logrus.Logger, adminEmail string) ContactService {
	return &contactService{
		contacts:   contacts,
		mail:       queue,
		logger:     defaultLogger(logger),
		adminEmail: strings.TrimSpace(adminEmail),
	}
}

func (s *contactService) Submit(ctx context.Context, in ContactInput) (*domain.Contact, error) {
	contact := &domain.Contact{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Subject: strings.TrimSpace(in.Subject),
		Message: strings.TrimSpace(in.Message),
	}
	switch {
	case contact.Name == "" || utf8.RuneCountInString(contact.Name) > 100:
		return nil, invalid("name", "Le nom est requis (100 caractères maximum)")
	case !strings.Contains(contact.Email, "@"):
		return nil, invalid("email", "Adresse email invalide")
	case contact.Subject == "" || utf8.RuneCountInString(contact.Subject) > 200:
		return nil, invalid("subject", "Le sujet est requis (200 caractères maximum)")
	case contact.Message == "" || utf8.RuneCountInString(contact.Message) > 5000:
		return nil, invalid("message", "Le message est requis (5000 caractères maximum)")
	}

	if _, err := s.contacts.Create(ctx, contact); err != nil {
		return nil, err
	}
	if s.adminEmail != "" {
		msg, err := mail.ContactReceived(s.adminEmail, contact.Name, contact.Email, contact.Subject, contact.Message)
		enqueueMail(s.logger, s.mail, msg, err)
	}
	return contact, nil
}

func (s *contactService) List(ctx context.Context) ([]domain.Contact, error) {
	return s.contacts.List(ctx)
}

func (s *contactService) MarkRead(ctx context.Context, id int64) error {
	return translate(s.contacts.MarkRead(ctx, id), "Message introuvable")
}

func (s *contactService) Delete(ctx context.Context, id int64) error {
	return translate(s.contacts.Delete(ctx, id), "Message introuvable")
}
