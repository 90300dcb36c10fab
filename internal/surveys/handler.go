package surveys

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

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

// ListSurveys handles GET /v1/surveys.
func (h *Handler) ListSurveys(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListActive(r.Context())
	if err != nil {
		h.log.Error("list surveys", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Survey{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetSurvey handles GET /v1/surveys/{id}.
func (h *Handler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID, ok := extractSurveyID(r)
	if !ok {
		http.Error(w, `{"error":"invalid survey id"}`, http.StatusBadRequest)
		return
	}
	survey, err := h.svc.Get(r.Context(), surveyID)
	if err != nil {
		if errors.Is(err, ErrSurveyNotFound) {
			http.Error(w, `{"error":"survey not found"}`, http.StatusNotFound)
			return
		}
		h.log.Error("get survey", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, survey)
}

type submitResponseRequest struct {
	Answers json.RawMessage `json:"answers"`
}

type submitResponseResponse struct {
	CoinsAwarded int64 `json:"coins_awarded"`
}

// SubmitResponse handles POST /v1/surveys/{id}/responses.
func (h *Handler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	surveyID, ok := extractSurveyID(r)
	if !ok {
		http.Error(w, `{"error":"invalid survey id"}`, http.StatusBadRequest)
		return
	}
	var req submitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if len(req.Answers) == 0 {
		http.Error(w, `{"error":"answers are required"}`, http.StatusBadRequest)
		return
	}

	coins, err := h.svc.SubmitResponse(r.Context(), userID, surveyID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, ErrSurveyNotFound):
			http.Error(w, `{"error":"survey not found"}`, http.StatusNotFound)
		case errors.Is(err, ErrAlreadyResponded):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "survey already completed"})
		default:
			h.log.Error("submit response", "survey_id", surveyID, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, submitResponseResponse{CoinsAwarded: coins})
}

// extractSurveyID parses the survey UUID from the URL path. Supports paths
// like /v1/surveys/{id} and /v1/surveys/{id}/responses.
func extractSurveyID(r *http.Request) (uuid.UUID, bool) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/surveys/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
