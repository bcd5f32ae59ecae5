package reports

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pixeltask/backend/internal/middleware"
	"github.com/pixeltask/backend/internal/models"
)

type Handler struct {
	repo *Repository
	log  *slog.Logger
}

func NewHandler(repo *Repository, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, log: log}
}

// Stats handles GET /api/v1/admin/stats (admin).
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats(r.Context())
	if err != nil {
		h.log.Error("load stats failed", "error", err)
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListMyTransactions handles GET /api/v1/transactions/mine.
func (h *Handler) ListMyTransactions(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.repo.ListTransactionsByAccount(r.Context(), p.AccountID)
	if err != nil {
		h.log.Error("list transactions failed", "error", err)
		http.Error(w, "failed to list transactions", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, list)
}

// AdminListTransactions handles GET /api/v1/admin/transactions?status=&kind= (admin).
func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "all" {
		status = ""
	}
	kind := r.URL.Query().Get("kind")
	if kind == "all" {
		kind = ""
	}
	list, err := h.repo.ListTransactions(r.Context(), status, kind)
	if err != nil {
		h.log.Error("list transactions failed", "error", err)
		http.Error(w, "failed to list transactions", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
