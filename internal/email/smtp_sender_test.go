package email

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/givetrack/givetrack/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPSenderValidation(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	_, err := NewSMTPSender(&config.SMTPConfig{From: "noreply@example.com"}, logger)
	assert.Error(t, err, "missing host must be rejected")

	_, err = NewSMTPSender(&config.SMTPConfig{Host: "smtp.example.com"}, logger)
	assert.Error(t, err, "missing from must be rejected")

	sender, err := NewSMTPSender(&config.SMTPConfig{Host: "smtp.example.com", From: "noreply@example.com"}, logger)
	require.NoError(t, err)
	assert.NotNil(t, sender)
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("noreply@example.com", "GiveTrack", "a@b.com", "Your code", "123456\n")

	assert.True(t, strings.HasPrefix(msg, "From: GiveTrack <noreply@example.com>\r\n"))
	assert.Contains(t, msg, "To: a@b.com\r\n")
	assert.Contains(t, msg, "Subject: Your code\r\n")
	assert.Contains(t, msg, "\r\n\r\n123456\n")
}

func TestBuildMessageWithoutFromName(t *testing.T) {
	msg := buildMessage("noreply@example.com", "", "a@b.com", "Hi", "body")
	assert.True(t, strings.HasPrefix(msg, "From: noreply@example.com\r\n"))
}

func TestDisabledSender(t *testing.T) {
	sender := NewDisabledSender("smtp not configured")

	err := sender.SendOTP(context.Background(), "a@b.com", "123456", time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp not configured")

	assert.Error(t, sender.SendPasswordReset(context.Background(), "a@b.com", "https://example.com/reset"))
}
