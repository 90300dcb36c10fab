package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	WithdrawStatusPending  = "pending"
	WithdrawStatusApproved = "approved"
	WithdrawStatusRejected = "rejected"
)

type WithdrawRequest struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Amount        int64     `json:"amount"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	Country       string    `json:"country"`
	CountryCode   string    `json:"country_code"`
	Currency      string    `json:"currency"`
	PhoneNumber   string    `json:"phone_number"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
