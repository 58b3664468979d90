package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"techanswers/internal/auth"
	"techanswers/internal/domain"
)

type LoginRequest struct {
	Email       string
	Password    string
	IP          string
	Fingerprint string
	// DeviceSession is the device-session cookie value, if any.
	DeviceSession string
	AdminOnly     bool
}

type VerifyRequest struct {
	UserID      int64
	Code        string
	IP          string
	Fingerprint string
	AdminOnly   bool
}

// LoginResult either carries a token or asks for a second factor.
type LoginResult struct {
	User              *domain.User
	RequiresTwoFactor bool
	Token             string
	ExpiresAt         time.Time
	// DeviceSession is set when a verification established a trusted device.
	DeviceSession        string
	DeviceSessionExpires time.Time
}

// AuthService runs the login flow: lockout check, password, second factor.
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	VerifyTwoFactor(ctx context.Context, req VerifyRequest) (*LoginResult, error)
	Logout(ctx context.Context, deviceSession string) error
}

type authService struct {
	users     UserService
	guard     GuardService
	twoFactor TwoFactorService
	tokens    *auth.TokenManager
	logger    *logrus.Logger
}

func NewAuthService(users UserService, guard GuardService, twoFactor TwoFactorService, tokens *auth.TokenManager, logger *logrus.Logger) AuthService {
	return &authService{
		users:     users,
		guard:     guard,
		twoFactor: twoFactor,
		tokens:    tokens,
		logger:    defaultLogger(logger),
	}
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if err := s.guard.Check(ctx, req.IP, req.Fingerprint); err != nil {
		return nil, err
	}

	user, err := s.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, s.fail(ctx, req.IP, req.Fingerprint, newError(ErrInvalidCredentials, "Email ou mot de passe incorrect"))
		}
		return nil, err
	}
	if req.AdminOnly && !user.IsAdmin {
		return nil, newError(ErrForbidden, "Accès réservé aux administrateurs")
	}

	// The counter is kept while a second factor is pending so wrong codes
	// keep adding up across logins.
	if user.TwoFactorEnabled {
		trusted, err := s.twoFactor.IsTrustedDevice(ctx, user.ID, req.DeviceSession, req.Fingerprint)
		if err != nil {
			return nil, err
		}
		if !trusted {
			if err := s.twoFactor.SendLoginCode(ctx, user); err != nil {
				return nil, err
			}
			return &LoginResult{User: user, RequiresTwoFactor: true}, nil
		}
	}
	s.resetGuard(ctx, req.IP, req.Fingerprint)
	return s.issue(user)
}

func (s *authService) VerifyTwoFactor(ctx context.Context, req VerifyRequest) (*LoginResult, error) {
	if err := s.guard.Check(ctx, req.IP, req.Fingerprint); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, s.fail(ctx, req.IP, req.Fingerprint, newError(ErrInvalidCode, "Code de vérification invalide ou expiré"))
		}
		return nil, err
	}
	// checked before the code is consumed so a refused caller leaves no device session
	if req.AdminOnly && !user.IsAdmin {
		return nil, newError(ErrForbidden, "Accès réservé aux administrateurs")
	}

	session, err := s.twoFactor.VerifyLogin(ctx, user.ID, req.Code, req.Fingerprint)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return nil, s.fail(ctx, req.IP, req.Fingerprint, err)
		}
		return nil, err
	}
	s.resetGuard(ctx, req.IP, req.Fingerprint)

	res, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	res.DeviceSession = session.SessionID
	res.DeviceSessionExpires = session.ExpiresAt
	return res, nil
}

func (s *authService) Logout(ctx context.Context, deviceSession string) error {
	return s.twoFactor.RevokeSession(ctx, deviceSession)
}

// fail records a failed attempt and returns a *BlockedError instead of cause
// once the attempt tipped the counter over the limit.
func (s *authService) fail(ctx context.Context, ip, fingerprint string, cause error) error {
	row, err := s.guard.RecordFailure(ctx, ip, fingerprint)
	if err != nil {
		return err
	}
	if row.IsBlocked && row.BlockedUntil != nil {
		return &BlockedError{Until: *row.BlockedUntil}
	}
	return cause
}

func (s *authService) resetGuard(ctx context.Context, ip, fingerprint string) {
	if err := s.guard.Reset(ctx, ip, fingerprint); err != nil {
		s.logger.Warnf("reset bruteforce counter: %v", err)
	}
}

func (s *authService) issue(user *domain.User) (*LoginResult, error) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expires}, nil
}
