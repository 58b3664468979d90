package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"techanswers/internal/auth"
	"techanswers/internal/domain"
	"techanswers/internal/mail"
	"techanswers/internal/repository"
)

// TwoFactorService issues and verifies emailed one-time codes and tracks
// trusted devices.
type TwoFactorService interface {
	SendLoginCode(ctx context.Context, user *domain.User) error
	// VerifyLogin consumes a LOGIN code and trusts the device fingerprint.
	VerifyLogin(ctx context.Context, userID int64, code, fingerprint string) (*domain.TwoFactorSession, error)
	IsTrustedDevice(ctx context.Context, userID int64, sessionID, fingerprint string) (bool, error)
	StartSetup(ctx context.Context, userID int64) error
	ConfirmSetup(ctx context.Context, userID int64, code string) error
	Disable(ctx context.Context, userID int64, password string) error
	RevokeSession(ctx context.Context, sessionID string) error
}

type TwoFactorConfig struct {
	CodeTTL    time.Duration
	CodeDigits int
	SessionTTL time.Duration
}

type twoFactorService struct {
	users  repository.UserRepository
	codes  repository.TwoFactorRepository
	mail   MailQueue
	logger *logrus.Logger
	cfg    TwoFactorConfig
	now    clock
}

func NewTwoFactorService(users repository.UserRepository, codes repository.TwoFactorRepository, queue MailQueue, logger *logrus.Logger, cfg TwoFactorConfig) TwoFactorService {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	if cfg.CodeDigits <= 0 {
		cfg.CodeDigits = 6
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	return &twoFactorService{
		users:  users,
		codes:  codes,
		mail:   queue,
		logger: defaultLogger(logger),
		cfg:    cfg,
		now:    utcNow,
	}
}

func (s *twoFactorService) SendLoginCode(ctx context.Context, user *domain.User) error {
	return s.issue(ctx, user, domain.TwoFactorLogin)
}

func (s *twoFactorService) issue(ctx context.Context, user *domain.User, codeType domain.TwoFactorCodeType) error {
	if err := s.codes.InvalidateCodes(ctx, user.ID, codeType); err != nil {
		return err
	}
	value, err := auth.NumericCode(s.cfg.CodeDigits)
	if err != nil {
		return err
	}
	now := s.now()
	code := &domain.TwoFactorCode{
		UserID:    user.ID,
		Code:      value,
		Type:      codeType,
		ExpiresAt: now.Add(s.cfg.CodeTTL),
		CreatedAt: now,
	}
	if _, err := s.codes.CreateCode(ctx, code); err != nil {
		return err
	}

	msg, err := mail.TwoFactorCode(user.Email, user.Username, value, int(s.cfg.CodeTTL.Minutes()), codeType == domain.TwoFactorSetup)
	enqueueMail(s.logger, s.mail, msg, err)
	return nil
}

func (s *twoFactorService) consume(ctx context.Context, userID int64, code string, codeType domain.TwoFactorCodeType) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return newError(ErrInvalidCode, "Code de vérification invalide ou expiré")
	}
	ok, err := s.codes.ConsumeCode(ctx, userID, code, codeType, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return newError(ErrInvalidCode, "Code de vérification invalide ou expiré")
	}
	return nil
}

func (s *twoFactorService) VerifyLogin(ctx context.Context, userID int64, code, fingerprint string) (*domain.TwoFactorSession, error) {
	if err := s.consume(ctx, userID, code, domain.TwoFactorLogin); err != nil {
		return nil, err
	}

	sessionID, err := auth.RandomHex(32)
	if err != nil {
		return nil, err
	}
	now := s.now()
	session := &domain.TwoFactorSession{
		UserID:      userID,
		SessionID:   sessionID,
		Fingerprint: fingerprint,
		ExpiresAt:   now.Add(s.cfg.SessionTTL),
		CreatedAt:   now,
	}
	if err := s.codes.ReplaceSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *twoFactorService) IsTrustedDevice(ctx context.Context, userID int64, sessionID, fingerprint string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	session, err := s.codes.GetSession(ctx, sessionID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return session.UserID == userID && session.Fingerprint == fingerprint, nil
}

func (s *twoFactorService) StartSetup(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return translate(err, "Utilisateur introuvable")
	}
	if user.TwoFactorEnabled {
		return newError(ErrConflict, "La double authentification est déjà activée")
	}
	return s.issue(ctx, user, domain.TwoFactorSetup)
}

func (s *twoFactorService) ConfirmSetup(ctx context.Context, userID int64, code string) error {
	if err := s.consume(ctx, userID, code, domain.TwoFactorSetup); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return translate(err, "Utilisateur introuvable")
	}
	user.TwoFactorEnabled = true
	return s.users.Update(ctx, user)
}

func (s *twoFactorService) Disable(ctx context.Context, userID int64, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return translate(err, "Utilisateur introuvable")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return newError(ErrInvalidCredentials, "Mot de passe incorrect")
	}
	user.TwoFactorEnabled = false
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	return s.codes.DeleteUserSessions(ctx, userID)
}

func (s *twoFactorService) RevokeSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.codes.DeleteSession(ctx, sessionID)
}
