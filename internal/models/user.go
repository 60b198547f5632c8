package models

import (
	"time"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDonor     Role = "donor"
	RoleVolunteer Role = "volunteer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDonor, RoleVolunteer:
		return true
	}
	return false
}

type User struct {
	ID                  string    `json:"id" dynamodbav:"ID"`
	Name                string    `json:"name" dynamodbav:"Name"`
	Email               string    `json:"email" dynamodbav:"Email"`
	Role                Role      `json:"role" dynamodbav:"Role"`
	AvatarURL           string    `json:"avatar_url,omitempty" dynamodbav:"AvatarURL,omitempty"`
	OnboardingCompleted bool      `json:"onboarding_completed" dynamodbav:"OnboardingCompleted"`
	CreatedAt           time.Time `json:"created_at" dynamodbav:"CreatedAt"`
	UpdatedAt           time.Time `json:"updated_at" dynamodbav:"UpdatedAt"`
}

func (u *User) GetPK() string {
	return "USER#" + NormalizeRecipient(u.Email)
}

func (u *User) GetSK() string {
	return "METADATA"
}
