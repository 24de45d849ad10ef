package session

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MinPasswordLength is the shortest password the client submits.
const MinPasswordLength = 6

var (
	ErrInvalidEmail     = errors.New("enter a valid email address")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrMissingToken     = errors.New("verification token is required")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail checks the address shape only.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword checks the length rule.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// AuthAPI is the part of the backend that handles accounts. *api.Client
// implements it.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password string) error
	VerifyEmail(ctx context.Context, token string) error
}

// Authenticator runs the account flows and keeps the Store in step.
type Authenticator struct {
	api    AuthAPI
	store  *Store
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator. A nil logger discards output.
func NewAuthenticator(backend AuthAPI, store *Store, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{api: backend, store: store, logger: logger, now: time.Now}
}

// Login exchanges credentials for a token and persists the new session.
// Every failure is returned; there is no fallback session.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*Context, error) {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	token, err := a.api.Login(ctx, email, password)
	if err != nil {
		a.logger.Info("login failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	sess := &Context{AccessToken: token, Email: email, CreatedAt: a.now().UTC()}
	if err := a.store.Save(sess); err != nil {
		return nil, err
	}
	a.logger.Info("logged in", zap.String("email", email))
	return sess, nil
}

// Register validates the form and submits it. The backend's answer always
// arrives by email, so a failed request is logged and not returned; only
// local validation errors are.
func (a *Authenticator) Register(ctx context.Context, email, password, confirm string) error {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if password != confirm {
		return ErrPasswordMismatch
	}

	if err := a.api.Register(ctx, email, password); err != nil {
		a.logger.Warn("registration request failed", zap.String("email", email), zap.Error(err))
		return nil
	}
	a.logger.Info("registration submitted", zap.String("email", email))
	return nil
}

// Verify confirms an email address with the token from the activation link.
func (a *Authenticator) Verify(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingToken
	}
	if err := a.api.VerifyEmail(ctx, token); err != nil {
		a.logger.Info("email verification failed", zap.Error(err))
		return err
	}
	return nil
}

// Logout destroys the stored session.
func (a *Authenticator) Logout() error {
	if err := a.store.Clear(); err != nil {
		return err
	}
	a.logger.Info("logged out")
	return nil
}
