package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/givetrack/givetrack/internal/identity"
	"github.com/givetrack/givetrack/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrDuplicateEmail is the single structured conflict exposed across all
	// duplicate-detection layers.
	ErrDuplicateEmail = errors.New("email already registered")

	ErrInvalidOTP = errors.New("invalid or expired verification code")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the address looks like local@domain with at
// least one dot in the domain.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// DuplicateCheck is the outcome of one duplicate-detection layer. Callers
// decide policy for CheckUnavailable; registration fails open.
type DuplicateCheck int

const (
	NotDuplicate DuplicateCheck = iota
	Duplicate
	CheckUnavailable
)

// UserStore is the document-store side of registration.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type RegistrationService struct {
	provider identity.Provider
	users    UserStore
	otp      *OTPService
	logger   *logrus.Logger
}

func NewRegistrationService(provider identity.Provider, users UserStore, otp *OTPService, logger *logrus.Logger) *RegistrationService {
	return &RegistrationService{
		provider: provider,
		users:    users,
		otp:      otp,
		logger:   logger,
	}
}

type RegistrationInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// RequestOTP runs the duplicate checks and, if the address is free, issues a
// verification code to it. Duplicates fail before any code is sent.
func (s *RegistrationService) RequestOTP(ctx context.Context, email string) error {
	email = models.NormalizeRecipient(email)

	if err := s.ensureNotRegistered(ctx, email); err != nil {
		return err
	}

	return s.otp.Issue(ctx, email)
}

// VerifyOTP re-checks duplicates (to close the check/use race against a
// concurrent registration) and then validates the submitted code.
func (s *RegistrationService) VerifyOTP(ctx context.Context, email, code string) error {
	email = models.NormalizeRecipient(email)

	if err := s.ensureNotRegistered(ctx, email); err != nil {
		return err
	}

	ok, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOTP
	}

	return nil
}

// Register finalizes account creation: duplicate re-check, identity-provider
// account, then the document-store profile.
func (s *RegistrationService) Register(ctx context.Context, input RegistrationInput) (string, error) {
	email := models.NormalizeRecipient(input.Email)

	if err := s.ensureNotRegistered(ctx, email); err != nil {
		return "", err
	}

	uid, err := s.provider.CreateUser(ctx, email, input.Password, input.Name)
	if err != nil {
		// A duplicate at this final step means we lost a race with another
		// concurrent registration for the same address.
		if errors.Is(err, identity.ErrEmailAlreadyInUse) {
			return "", ErrDuplicateEmail
		}
		s.logger.WithError(err).Error("Failed to create identity-provider account")
		return "", fmt.Errorf("failed to create account: %w", err)
	}

	user := &models.User{
		ID:                  uid,
		Name:                input.Name,
		Email:               email,
		Role:                input.Role,
		AvatarURL:           avatarURL(input.Name),
		OnboardingCompleted: false,
	}

	if err := s.users.Create(ctx, user); err != nil {
		s.logger.WithError(err).Error("Failed to create user profile")
		return "", fmt.Errorf("failed to create user profile: %w", err)
	}

	return uid, nil
}

// ensureNotRegistered runs both duplicate layers. The identity provider is
// authoritative; the document-store cross-check is belt and suspenders since
// the two must stay in sync.
func (s *RegistrationService) ensureNotRegistered(ctx context.Context, email string) error {
	switch s.checkProvider(ctx, email) {
	case Duplicate:
		return ErrDuplicateEmail
	case CheckUnavailable:
		s.logger.WithField("email", email).Warn("Identity-provider duplicate check unavailable, proceeding")
	}

	switch s.checkStore(ctx, email) {
	case Duplicate:
		return ErrDuplicateEmail
	case CheckUnavailable:
		s.logger.WithField("email", email).Warn("Document-store duplicate check unavailable, proceeding")
	}

	return nil
}

func (s *RegistrationService) checkProvider(ctx context.Context, email string) DuplicateCheck {
	methods, err := s.provider.SignInMethods(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrEmailAlreadyInUse) {
			return Duplicate
		}
		s.logger.WithError(err).Warn("Sign-in-method lookup failed")
		return CheckUnavailable
	}
	if len(methods) > 0 {
		return Duplicate
	}
	return NotDuplicate
}

func (s *RegistrationService) checkStore(ctx context.Context, email string) DuplicateCheck {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.logger.WithError(err).Warn("User profile lookup failed")
		return CheckUnavailable
	}
	if user != nil {
		return Duplicate
	}
	return NotDuplicate
}

func avatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}
