package models

import (
	"strings"
	"time"
)

type OTPRecord struct {
	ID        string    `json:"id" dynamodbav:"ID"`
	Recipient string    `json:"recipient" dynamodbav:"Recipient"`
	Code      string    `json:"code" dynamodbav:"Code"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"CreatedAt"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"ExpiresAt"`
}

// NormalizeRecipient is the canonical form used as the OTP lookup key.
func NormalizeRecipient(recipient string) string {
	return strings.ToLower(strings.TrimSpace(recipient))
}
