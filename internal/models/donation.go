package models

import "time"

// Amounts are stored in minor currency units (cents).
type Donation struct {
	ID         string    `json:"id" dynamodbav:"ID"`
	ProgramID  string    `json:"program_id" dynamodbav:"ProgramID"`
	DonorEmail string    `json:"donor_email" dynamodbav:"DonorEmail"`
	Amount     int64     `json:"amount" dynamodbav:"Amount"`
	Message    string    `json:"message,omitempty" dynamodbav:"Message,omitempty"`
	CreatedAt  time.Time `json:"created_at" dynamodbav:"CreatedAt"`
}
