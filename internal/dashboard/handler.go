// Package dashboard serves the read-side endpoints the app's account
// screens use: profile, balance, transaction history, and stats.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/opinioncoins/backend/internal/models"
)

// TokenValidator resolves a bearer token to a user ID.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

// ProfileStore loads registered users.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// Ledger is the read slice of the coin ledger the dashboard needs.
type Ledger interface {
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	TotalEarned(ctx context.Context, userID uuid.UUID) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEntry, error)
	ListRewards(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEntry, error)
}

// ResponseCounter reports how many surveys a user has completed in-app.
type ResponseCounter interface {
	CountResponsesByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type Handler struct {
	authSvc   TokenValidator
	profiles  ProfileStore
	ledger    Ledger
	responses ResponseCounter
	log       *slog.Logger
}

func NewHandler(authSvc TokenValidator, profiles ProfileStore, ledger Ledger, responses ResponseCounter, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		authSvc:   authSvc,
		profiles:  profiles,
		ledger:    ledger,
		responses: responses,
		log:       log,
	}
}

func (h *Handler) userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return uuid.Nil, fmt.Errorf("missing authorization")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return uuid.Nil, fmt.Errorf("bad authorization format")
	}
	token := strings.TrimSpace(authz[len(prefix):])
	if token == "" {
		return uuid.Nil, fmt.Errorf("empty token")
	}
	return h.authSvc.ValidateToken(r.Context(), token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /api/v1/account/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userIDFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	p, err := h.profiles.GetByID(r.Context(), userID)
	if err != nil {
		h.log.Error("get profile failed", "error", err)
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}
	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		h.log.Error("get balance failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         p.ID,
		"email":      p.Email,
		"full_name":  p.FullName,
		"balance":    balance,
		"created_at": p.CreatedAt,
	})
}

// GET /api/v1/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userIDFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	entries, err := h.ledger.ListByUser(r.Context(), userID)
	if err != nil {
		h.log.Error("list transactions failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GET /api/v1/rewards
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userIDFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	entries, err := h.ledger.ListRewards(r.Context(), userID)
	if err != nil {
		h.log.Error("list rewards failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GET /api/v1/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userIDFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		h.log.Error("get balance failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	earned, err := h.ledger.TotalEarned(r.Context(), userID)
	if err != nil {
		h.log.Error("get total earned failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	completed, err := h.responses.CountResponsesByUser(r.Context(), userID)
	if err != nil {
		h.log.Error("count responses failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":           balance,
		"total_earned":      earned,
		"surveys_completed": completed,
	})
}
