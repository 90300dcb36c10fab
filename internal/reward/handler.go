package reward

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Handler serves the TheoremReach reward callback endpoint.
type Handler struct {
	processor *Processor
	log       *slog.Logger
}

func NewHandler(processor *Processor, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{processor: processor, log: log}
}

type callbackResponse struct {
	Success      bool  `json:"success"`
	CoinsAwarded int64 `json:"coins_awarded"`
}

// HandleCallback processes one provider delivery. The provider retries on
// any non-2xx response, so every terminal outcome (including duplicates and
// non-completed surveys) answers 200.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Correlation id so a single delivery can be traced end-to-end.
	log := h.log.With("delivery_id", uuid.New().String())

	n, err := parseNotification(r)
	if err != nil {
		log.Info("callback rejected: unreadable payload", "error", err)
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	log.Info("callback received",
		"transaction_id", n.TransactionID, "user_id", n.UserID, "status", n.Status)

	out, err := h.processor.Process(r.Context(), n)
	if err != nil {
		switch {
		case errors.Is(err, ErrMalformedPayload):
			log.Info("callback rejected: malformed", "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrUnauthenticated):
			log.Warn("callback rejected: invalid hash", "transaction_id", n.TransactionID)
			writeError(w, http.StatusForbidden, "invalid hash")
		case errors.Is(err, ErrNotConfigured):
			log.Error("callback failed: provider secret not configured")
			writeError(w, http.StatusInternalServerError, "configuration error")
		default:
			log.Error("callback failed", "transaction_id", n.TransactionID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	log.Info("callback acknowledged",
		"transaction_id", n.TransactionID, "coins_awarded", out.Coins, "duplicate", out.Duplicate)
	writeJSON(w, http.StatusOK, callbackResponse{Success: true, CoinsAwarded: out.Coins})
}

// parseNotification normalizes the provider's transport variants (JSON
// body, urlencoded form, or bare query parameters) into one Notification.
// Field aliases (uid, tx_id) are folded in here so the processor only ever
// sees canonical names.
func parseNotification(r *http.Request) (Notification, error) {
	values := map[string]string{}

	if r.Method == http.MethodPost && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber() // keep the provider's decimal text intact
		var body map[string]any
		if err := dec.Decode(&body); err != nil {
			return Notification{}, err
		}
		for k, v := range body {
			values[k] = stringify(v)
		}
	} else if err := r.ParseForm(); err == nil {
		// ParseForm merges the urlencoded body (POST) with query params.
		for k, vs := range r.Form {
			if len(vs) > 0 {
				values[k] = vs[0]
			}
		}
	}
	// Query params still apply to JSON posts.
	for k, vs := range r.URL.Query() {
		if _, ok := values[k]; !ok && len(vs) > 0 {
			values[k] = vs[0]
		}
	}

	return Notification{
		UserID:        firstOf(values, "user_id", "uid"),
		TransactionID: firstOf(values, "transaction_id", "tx_id", "trans_id"),
		Revenue:       firstOf(values, "revenue"),
		Status:        firstOf(values, "status"),
		Hash:          firstOf(values, "hash"),
	}, nil
}

func firstOf(values map[string]string, names ...string) string {
	for _, name := range names {
		if v, ok := values[name]; ok && v != "" {
			return v
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
