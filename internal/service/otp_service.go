package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/givetrack/givetrack/internal/config"
	"github.com/givetrack/givetrack/internal/email"
	"github.com/givetrack/givetrack/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrRateLimited = errors.New("too many verification code requests")

// OTPStore is the document-store adapter for verification codes.
type OTPStore interface {
	// Create purges prior records for the recipient, then inserts rec.
	Create(ctx context.Context, rec models.OTPRecord) error
	// FindMatching returns every record matching (recipient, code) exactly.
	FindMatching(ctx context.Context, recipient, code string) ([]models.OTPRecord, error)
	Delete(ctx context.Context, rec models.OTPRecord) error
	PurgeRecipient(ctx context.Context, recipient string) error
}

// RateLimiter bounds how often codes may be requested per recipient.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type OTPService struct {
	store   OTPStore
	sender  email.Sender
	limiter RateLimiter
	cfg     *config.OTPConfig
	logger  *logrus.Logger
}

func NewOTPService(store OTPStore, sender email.Sender, limiter RateLimiter, cfg *config.OTPConfig, logger *logrus.Logger) *OTPService {
	return &OTPService{
		store:   store,
		sender:  sender,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

// Issue generates a 6-digit code for the recipient, persists it, and sends
// it by email. A send failure rolls back the just-created record. Exactly one
// active record per recipient survives a successful call.
func (s *OTPService) Issue(ctx context.Context, recipient string) error {
	recipient = models.NormalizeRecipient(recipient)

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, recipient)
		if err != nil {
			// Limiter outage must not block issuance; fail open.
			s.logger.WithError(err).Warn("OTP rate limiter unavailable")
		} else if !allowed {
			return ErrRateLimited
		}
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	now := time.Now()
	rec := models.OTPRecord{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.Expiry),
	}

	if err := s.store.Create(ctx, rec); err != nil {
		s.logger.WithError(err).Error("Failed to persist verification code")
		return fmt.Errorf("failed to persist verification code: %w", err)
	}

	// Give the eventually consistent store a moment before the code can be
	// looked up by a fast-fingered verify call.
	if s.cfg.SettleDelay > 0 {
		time.Sleep(s.cfg.SettleDelay)
	}

	if err := s.sender.SendOTP(ctx, recipient, code, rec.ExpiresAt); err != nil {
		s.logger.WithError(err).WithField("recipient", recipient).Error("Failed to send verification code")
		if delErr := s.store.Delete(ctx, rec); delErr != nil {
			s.logger.WithError(delErr).Warn("Failed to roll back verification code after send failure")
		}
		return fmt.Errorf("failed to send verification code: %w", err)
	}

	return nil
}

// Verify checks a submitted code. Codes are single-use: every matched record
// is deleted regardless of how it classifies. A code within the grace window
// past its nominal expiry is still accepted; callers must not assume the
// expiry boundary is exact.
func (s *OTPService) Verify(ctx context.Context, recipient, code string) (bool, error) {
	recipient = models.NormalizeRecipient(recipient)
	code = strings.TrimSpace(code)

	matches, err := s.store.FindMatching(ctx, recipient, code)
	if err != nil {
		return false, fmt.Errorf("failed to look up verification code: %w", err)
	}

	if len(matches) == 0 {
		return false, nil
	}

	now := time.Now()
	accepted := false
	for _, rec := range matches {
		switch {
		case rec.ExpiresAt.After(now):
			accepted = true
		case rec.ExpiresAt.After(now.Add(-s.cfg.GraceWindow)):
			// Just expired; accept to absorb clock skew and typing delay.
			accepted = true
		}
	}

	// Each delete targets a distinct document, so fan out.
	var wg sync.WaitGroup
	for _, rec := range matches {
		wg.Add(1)
		go func(rec models.OTPRecord) {
			defer wg.Done()
			if err := s.store.Delete(ctx, rec); err != nil {
				s.logger.WithError(err).Warn("Failed to delete consumed verification code")
			}
		}(rec)
	}
	wg.Wait()

	return accepted, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
