// Package auth owns account lifecycle: registration, email verification,
// login, session refresh, and password reset.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/captionly/captionly-backend/internal/users"
	pkgauth "github.com/captionly/captionly-backend/pkg/auth"
	"github.com/captionly/captionly-backend/pkg/auth/session"
	"github.com/captionly/captionly-backend/pkg/clock"
	"github.com/captionly/captionly-backend/pkg/config"
	"github.com/captionly/captionly-backend/pkg/db/models"
	pkgerrors "github.com/captionly/captionly-backend/pkg/errors"
	"github.com/captionly/captionly-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	emailNotVerifiedMessage   = "email address is not verified"
	minPasswordLength         = 6
	resetTokenTTL             = time.Hour
)

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.User, error)
	FindByResetToken(ctx context.Context, token string) (*models.User, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	SetVerificationToken(ctx context.Context, id uuid.UUID, token string, sentAt time.Time) error
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdatePaidFlag(ctx context.Context, id uuid.UUID, paid bool) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type entitlementChecker interface {
	IsActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

type mailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error)
	Logout(ctx context.Context, accessID string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	Entitlements   entitlementChecker
	Mailer         mailSender
	Clock          clock.Clock
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	AppBaseURL     string
}

type service struct {
	users        userRepository
	session      sessionManager
	entitlements entitlementChecker
	mailer       mailSender
	clock        clock.Clock
	jwtCfg       config.JWTConfig
	passwordCfg  config.PasswordConfig
	baseURL      string
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Entitlements == nil {
		return nil, fmt.Errorf("entitlement checker is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	return &service{
		users:        params.UserRepo,
		session:      params.SessionManager,
		entitlements: params.Entitlements,
		mailer:       params.Mailer,
		clock:        params.Clock,
		jwtCfg:       params.JWTConfig,
		passwordCfg:  params.PasswordConfig,
		baseURL:      strings.TrimRight(params.AppBaseURL, "/"),
	}, nil
}

// Register creates an unverified account and emails the verification link.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	token, err := security.GenerateToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification token")
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "trusted time unavailable")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:              email,
		PasswordHash:       passwordHash,
		VerificationToken:  &token,
		VerificationSentAt: &now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	s.sendVerificationMail(ctx, email, token)
	return users.FromModel(user), nil
}

// VerifyEmail confirms the emailed token and marks the account verified.
func (s *service) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "verification token is required")
	}
	user, err := s.users.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "verification token is invalid or already used")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup verification token")
	}
	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark email verified")
	}
	return nil
}

// ResendVerification issues a fresh token for an unverified account. Unknown
// addresses succeed silently so the endpoint cannot enumerate accounts.
func (s *service) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if user.EmailVerified {
		return pkgerrors.New(pkgerrors.CodeConflict, "email is already verified")
	}

	token, err := security.GenerateToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification token")
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "trusted time unavailable")
	}
	if err := s.users.SetVerificationToken(ctx, user.ID, token, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store verification token")
	}
	s.sendVerificationMail(ctx, email, token)
	return nil
}

// Login authenticates the credentials, requires a verified email, refreshes
// the denormalized paid flag from the entitlement source of truth, and mints
// a token pair.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if !user.EmailVerified {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, emailNotVerifiedMessage)
	}

	active, err := s.entitlements.IsActive(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if active != user.SubscriptionPaid {
		if err := s.users.UpdatePaidFlag(ctx, user.ID, active); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refresh paid flag")
		}
		user.SubscriptionPaid = active
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "trusted time unavailable")
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	accessID := session.NewAccessID()
	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID:        user.ID,
		EmailVerified: user.EmailVerified,
		JTI:           accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

// Refresh rotates the refresh token and mints a replacement access token.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "trusted time unavailable")
	}
	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID:        claims.UserID,
		EmailVerified: claims.EmailVerified,
		JTI:           newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &RefreshResponse{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

// Logout revokes the session behind the presented access token.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

// ForgotPassword emails a reset link. Unknown addresses succeed silently.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	token, err := security.GenerateToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "trusted time unavailable")
	}
	if err := s.users.SetResetToken(ctx, user.ID, token, now.Add(resetTokenTTL)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store reset token")
	}

	body := fmt.Sprintf("Reset your Captionly password: %s/reset-password?token=%s\n\nThe link expires in one hour.", s.baseURL, token)
	_ = s.mailer.Send(ctx, email, "Reset your Captionly password", body)
	return nil
}

// ResetPassword replaces the password behind a valid, unexpired reset token.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if len(req.Password) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	user, err := s.users.FindByResetToken(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reset token is invalid or already used")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reset token")
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "trusted time unavailable")
	}
	if user.ResetTokenExpires == nil || !user.ResetTokenExpires.After(now) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "reset token has expired")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.ToLower(strings.TrimSpace(email))
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// Mail delivery is best effort: a bounced send should not roll back the
// account write, the user can always ask for a resend.
func (s *service) sendVerificationMail(ctx context.Context, email, token string) {
	body := fmt.Sprintf("Confirm your Captionly account: %s/verify-email?token=%s", s.baseURL, token)
	_ = s.mailer.Send(ctx, email, "Verify your Captionly email", body)
}
