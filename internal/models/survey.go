package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Survey struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Questions   json.RawMessage `json:"questions"`
	CoinReward  int64           `json:"coin_reward"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

type SurveyResponse struct {
	ID          uuid.UUID       `json:"id"`
	SurveyID    uuid.UUID       `json:"survey_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Answers     json.RawMessage `json:"answers"`
	CompletedAt time.Time       `json:"completed_at"`
}
