package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/opinioncoins/backend/internal/models"
)

type fakeValidator struct {
	userID uuid.UUID
}

func (f *fakeValidator) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	if token != "good-token" {
		return uuid.Nil, errors.New("invalid token")
	}
	return f.userID, nil
}

type fakeProfiles struct {
	profile *models.Profile
}

func (f *fakeProfiles) GetByID(context.Context, uuid.UUID) (*models.Profile, error) {
	if f.profile == nil {
		return nil, errors.New("not found")
	}
	return f.profile, nil
}

type fakeLedger struct {
	balance int64
	earned  int64
	entries []*models.LedgerEntry
	rewards []*models.LedgerEntry
}

func (f *fakeLedger) Balance(context.Context, uuid.UUID) (int64, error)     { return f.balance, nil }
func (f *fakeLedger) TotalEarned(context.Context, uuid.UUID) (int64, error) { return f.earned, nil }
func (f *fakeLedger) ListByUser(context.Context, uuid.UUID) ([]*models.LedgerEntry, error) {
	return f.entries, nil
}
func (f *fakeLedger) ListRewards(context.Context, uuid.UUID) ([]*models.LedgerEntry, error) {
	return f.rewards, nil
}

type fakeCounter struct {
	n int64
}

func (f *fakeCounter) CountResponsesByUser(context.Context, uuid.UUID) (int64, error) {
	return f.n, nil
}

func newTestHandler(userID uuid.UUID, lg *fakeLedger, counter *fakeCounter) *Handler {
	return NewHandler(
		&fakeValidator{userID: userID},
		&fakeProfiles{profile: &models.Profile{ID: userID, Email: "ada@example.com", FullName: "Ada"}},
		lg,
		counter,
		nil,
	)
}

func authedGet(path string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.Header.Set("Authorization", "Bearer good-token")
	return r
}

func TestGetMe_IncludesBalance(t *testing.T) {
	userID := uuid.New()
	h := newTestHandler(userID, &fakeLedger{balance: 325}, &fakeCounter{})

	rec := httptest.NewRecorder()
	h.GetMe(rec, authedGet("/api/v1/account/me"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["email"] != "ada@example.com" {
		t.Errorf("email = %v", body["email"])
	}
	if body["balance"] != float64(325) {
		t.Errorf("balance = %v, want 325", body["balance"])
	}
}

func TestGetMe_Unauthorized(t *testing.T) {
	h := newTestHandler(uuid.New(), &fakeLedger{}, &fakeCounter{})

	for _, header := range []string{"", "Bearer ", "Bearer bad-token", "Basic good-token"} {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/account/me", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.GetMe(rec, r)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestListTransactions_EmptyHistory(t *testing.T) {
	h := newTestHandler(uuid.New(), &fakeLedger{}, &fakeCounter{})

	rec := httptest.NewRecorder()
	h.ListTransactions(rec, authedGet("/api/v1/transactions"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var entries []*models.LedgerEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entries == nil {
		t.Error("expected empty array, got null")
	}
}

func TestGetStats(t *testing.T) {
	h := newTestHandler(uuid.New(), &fakeLedger{balance: 200, earned: 800}, &fakeCounter{n: 4})

	rec := httptest.NewRecorder()
	h.GetStats(rec, authedGet("/api/v1/stats"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["balance"] != 200 || body["total_earned"] != 800 || body["surveys_completed"] != 4 {
		t.Errorf("stats = %+v", body)
	}
}
