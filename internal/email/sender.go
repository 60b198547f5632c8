package email

import (
	"context"
	"errors"
	"time"
)

// Sender is the outbound mail transport.
type Sender interface {
	SendOTP(ctx context.Context, to, code string, expiresAt time.Time) error
	SendPasswordReset(ctx context.Context, to, resetLink string) error
}

type disabledSender struct {
	reason string
}

// NewDisabledSender returns a Sender that fails every send. Used when SMTP
// is not configured so the failure surfaces at send time, not at startup.
func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendOTP(_ context.Context, _, _ string, _ time.Time) error {
	return s.err()
}

func (s *disabledSender) SendPasswordReset(_ context.Context, _, _ string) error {
	return s.err()
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
