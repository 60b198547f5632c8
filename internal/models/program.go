package models

import "time"

type Program struct {
	ID          string    `json:"id" dynamodbav:"ID"`
	Title       string    `json:"title" dynamodbav:"Title"`
	Description string    `json:"description" dynamodbav:"Description"`
	GoalAmount  int64     `json:"goal_amount" dynamodbav:"GoalAmount"`
	ImageURL    string    `json:"image_url,omitempty" dynamodbav:"ImageURL,omitempty"`
	Public      bool      `json:"public" dynamodbav:"Public"`
	CreatedBy   string    `json:"created_by" dynamodbav:"CreatedBy"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"CreatedAt"`
	UpdatedAt   time.Time `json:"updated_at" dynamodbav:"UpdatedAt"`
}

func (p *Program) GetPK() string {
	return "PROGRAM#" + p.ID
}

func (p *Program) GetSK() string {
	return "METADATA"
}
