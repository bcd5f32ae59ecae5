package payouts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/pixeltask/backend/internal/ledger"
	"github.com/pixeltask/backend/internal/middleware"
	"github.com/pixeltask/backend/internal/models"
	"github.com/pixeltask/backend/internal/money"
)

// Lister is the read side of the payouts handler.
type Lister interface {
	ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Payout, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Payout, error)
}

// EnqueueProcessPendingFunc enqueues the process-pending river job.
// Provided by main as a closure over river.Client.Insert.
type EnqueueProcessPendingFunc func(ctx context.Context, requestedBy uuid.UUID) error

type Handler struct {
	svc     Service
	lister  Lister
	enqueue EnqueueProcessPendingFunc
	log     *slog.Logger
}

func NewHandler(svc Service, lister Lister, enqueue EnqueueProcessPendingFunc, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, lister: lister, enqueue: enqueue, log: log}
}

type requestPayoutRequest struct {
	Amount         string `json:"amount"`
	PaymentMethod  string `json:"payment_method"`
	PaymentDetails string `json:"payment_details"`
}

// Request handles POST /api/v1/payouts (worker).
func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req requestPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.PaymentMethod == "" || req.PaymentDetails == "" {
		http.Error(w, "missing payment method or details", http.StatusBadRequest)
		return
	}
	amountCents, err := money.ParseCents(req.Amount)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	payout, err := h.svc.Request(r.Context(), p.AccountID, amountCents, req.PaymentMethod, req.PaymentDetails)
	if err != nil {
		switch {
		case errors.Is(err, ErrBelowMinimum), errors.Is(err, ErrBadPaymentMethod), errors.Is(err, ledger.ErrInsufficientFunds):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.log.Error("payout request failed", "error", err)
			http.Error(w, "payout request failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, payout)
}

// ListMine handles GET /api/v1/payouts/mine (worker).
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.lister.ListByWorker(r.Context(), p.AccountID)
	if err != nil {
		h.log.Error("list payouts failed", "error", err)
		http.Error(w, "list payouts failed", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Payout{}
	}
	writeJSON(w, http.StatusOK, list)
}

// AdminList handles GET /api/v1/admin/payouts?status= (admin).
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "all" {
		status = ""
	}
	list, err := h.lister.ListByStatus(r.Context(), status)
	if err != nil {
		h.log.Error("list payouts failed", "error", err)
		http.Error(w, "list payouts failed", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Payout{}
	}
	writeJSON(w, http.StatusOK, list)
}

type updatePayoutRequest struct {
	Status     string  `json:"status"`
	AdminNotes *string `json:"admin_notes"`
}

// AdminUpdate handles PATCH /api/v1/admin/payouts/{id} (admin).
func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	payoutID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid payout ID", http.StatusBadRequest)
		return
	}
	var req updatePayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	status := req.Status
	if status == "rejected" {
		// The admin UI calls a declined payout "rejected"; the state machine
		// knows it as failed.
		status = models.PayoutStatusFailed
	}

	payout, err := h.svc.UpdateStatus(r.Context(), payoutID, status, req.AdminNotes)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "payout not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidStateTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error("update payout failed", "error", err)
			http.Error(w, "update payout failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, payout)
}

// AdminProcessAll handles POST /api/v1/admin/payouts/process-all (admin).
// Enqueues the promotion job and returns immediately.
func (h *Handler) AdminProcessAll(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.enqueue(r.Context(), p.AccountID); err != nil {
		h.log.Error("enqueue process-pending failed", "error", err)
		http.Error(w, "failed to queue payout processing", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
