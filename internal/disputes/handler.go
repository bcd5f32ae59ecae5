package disputes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/pixeltask/backend/internal/ledger"
	"github.com/pixeltask/backend/internal/middleware"
	"github.com/pixeltask/backend/internal/models"
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

type openDisputeRequest struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
	Description   string `json:"description"`
}

// Open handles POST /api/v1/disputes.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req openDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	txID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		http.Error(w, "invalid transaction ID", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		http.Error(w, "reason is required", http.StatusBadRequest)
		return
	}

	d, err := h.svc.Open(r.Context(), txID, p.AccountID, req.Reason, req.Description)
	if err != nil {
		h.log.Error("open dispute failed", "error", err)
		http.Error(w, "failed to open dispute", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// AdminList handles GET /api/v1/admin/disputes?status= (admin).
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "all" {
		status = ""
	}
	list, err := h.svc.List(r.Context(), status)
	if err != nil {
		h.log.Error("list disputes failed", "error", err)
		http.Error(w, "failed to list disputes", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Dispute{}
	}
	writeJSON(w, http.StatusOK, list)
}

type resolveDisputeRequest struct {
	Status     string `json:"status"`
	Resolution string `json:"resolution"`
}

// AdminResolve handles PATCH /api/v1/admin/disputes/{id} (admin).
func (h *Handler) AdminResolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid dispute ID", http.StatusBadRequest)
		return
	}
	var req resolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	d, err := h.svc.Resolve(r.Context(), id, req.Status, req.Resolution)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "dispute not found", http.StatusNotFound)
		case errors.Is(err, ErrBadResolution):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrDisputeClosed):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ledger.ErrInsufficientFunds):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ledger.ErrNotFound):
			http.Error(w, "disputed transaction not found", http.StatusNotFound)
		default:
			h.log.Error("resolve dispute failed", "error", err)
			http.Error(w, "failed to resolve dispute", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
