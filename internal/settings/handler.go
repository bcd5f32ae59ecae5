package settings

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
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

// Get handles GET /api/v1/admin/settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Get(r.Context())
	if err != nil {
		h.log.Error("load settings failed", "error", err)
		http.Error(w, "failed to load settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Update handles PATCH /api/v1/admin/settings.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var params UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	cfg, err := h.svc.Update(r.Context(), params)
	if err != nil {
		if errors.Is(err, ErrInvalidSettings) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error("update settings failed", "error", err)
		http.Error(w, "failed to update settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
