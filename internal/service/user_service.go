package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"techanswers/internal/auth"
	"techanswers/internal/domain"
	"techanswers/internal/mail"
	"techanswers/internal/repository"
)

const minPasswordLength = 8

type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	// CreateAdmin registers an account with admin rights, used by the CLI.
	CreateAdmin(ctx context.Context, in RegisterInput, superAdmin bool) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ChangePassword(ctx context.Context, userID int64, current, next string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

type UserConfig struct {
	ResetTTL  time.Duration
	PublicURL string
}

type userService struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	twoFactor     repository.TwoFactorRepository
	mail          MailQueue
	logger        *logrus.Logger
	cfg           UserConfig
	now           clock
}

func NewUserService(
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	twoFactor repository.TwoFactorRepository,
	queue MailQueue,
	logger *logrus.Logger,
	cfg UserConfig,
) UserService {
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	return &userService{
		users:         users,
		notifications: notifications,
		twoFactor:     twoFactor,
		mail:          queue,
		logger:        defaultLogger(logger),
		cfg:           cfg,
		now:           utcNow,
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	return s.create(ctx, in, false, false)
}

func (s *userService) CreateAdmin(ctx context.Context, in RegisterInput, superAdmin bool) (*domain.User, error) {
	return s.create(ctx, in, true, superAdmin)
}

func (s *userService) create(ctx context.Context, in RegisterInput, admin, superAdmin bool) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)

	if email == "" || !strings.Contains(email, "@") {
		return nil, invalid("email", "Adresse email invalide")
	}
	if n := utf8.RuneCountInString(username); n < 3 || n > 30 {
		return nil, invalid("username", "Le nom d'utilisateur doit contenir entre 3 et 30 caractères")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      admin || superAdmin,
		IsSuperAdmin: superAdmin,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "Cet email ou ce nom d'utilisateur est déjà utilisé")
		}
		return nil, err
	}

	settings := domain.DefaultNotificationSettings(user.ID)
	if err := s.notifications.SaveSettings(ctx, &settings); err != nil {
		s.logger.WithField("user_id", user.ID).Warnf("create notification settings: %v", err)
	}
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Utilisateur introuvable")
	}
	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return newError(ErrInvalidCredentials, "Mot de passe actuel incorrect")
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// RequestPasswordReset never reports whether the email is known.
func (s *userService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := auth.RandomHex(32)
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, user.ID, token, s.now().Add(s.cfg.ResetTTL)); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.PublicURL, "/"), token)
	msg, err := mail.PasswordReset(user.Email, user.Username, link, int(s.cfg.ResetTTL.Minutes()))
	enqueueMail(s.logger, s.mail, msg, err)
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	user, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrInvalidToken, "Lien de réinitialisation invalide ou expiré")
		}
		return err
	}
	if user.ResetTokenExpiresAt == nil || !user.ResetTokenExpiresAt.After(s.now()) {
		return newError(ErrInvalidToken, "Lien de réinitialisation invalide ou expiré")
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	user.ResetToken = ""
	user.ResetTokenExpiresAt = nil
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	return s.twoFactor.DeleteUserSessions(ctx, user.ID)
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return invalid("password", fmt.Sprintf("Le mot de passe doit contenir au moins %d caractères", minPasswordLength))
	}
	// bcrypt rejects longer inputs
	if len(password) > 72 {
		return invalid("password", "Le mot de passe est trop long")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
