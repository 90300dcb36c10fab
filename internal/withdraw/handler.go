package withdraw

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/opinioncoins/backend/internal/middleware"
	"github.com/opinioncoins/backend/internal/models"
)

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

type createRequest struct {
	Amount        int64  `json:"amount"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	Country       string `json:"country"`
	CountryCode   string `json:"country_code"`
	Currency      string `json:"currency"`
	PhoneNumber   string `json:"phone_number"`
}

// CreateRequest handles POST /v1/withdrawals.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.BankName == "" || req.AccountNumber == "" {
		http.Error(w, `{"error":"bank_name and account_number are required"}`, http.StatusBadRequest)
		return
	}

	wr := &models.WithdrawRequest{
		UserID:        userID,
		Amount:        req.Amount,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		Country:       req.Country,
		CountryCode:   req.CountryCode,
		Currency:      req.Currency,
		PhoneNumber:   req.PhoneNumber,
	}
	if err := h.svc.Create(r.Context(), wr); err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			http.Error(w, `{"error":"invalid amount"}`, http.StatusBadRequest)
		case errors.Is(err, ErrBelowMinimum), errors.Is(err, ErrInsufficientBalance):
			writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": err.Error()})
		default:
			h.log.Error("create withdraw request", "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, wr)
}

// ListRequests handles GET /v1/withdrawals.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		h.log.Error("list withdraw requests", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.WithdrawRequest{}
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
