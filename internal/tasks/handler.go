package tasks

import (
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

type createTaskRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	Price          string `json:"price"`
	EstimatedTime  string `json:"estimated_time"`
	SpotsAvailable int    `json:"spots_available"`
}

// Create handles POST /api/v1/tasks (client or admin).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Description == "" {
		http.Error(w, "title and description are required", http.StatusBadRequest)
		return
	}
	priceCents, err := money.ParseCents(req.Price)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	task, err := h.svc.CreateTask(r.Context(), p.AccountID, CreateTaskParams{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		PriceCents:     priceCents,
		EstimatedTime:  req.EstimatedTime,
		SpotsAvailable: req.SpotsAvailable,
	})
	if err != nil {
		if errors.Is(err, ErrBelowMinPrice) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error("create task failed", "error", err)
		http.Error(w, "failed to create task", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// List handles GET /api/v1/tasks?status=&category=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.TaskStatusActive
	} else if status == "all" {
		status = ""
	}
	list, err := h.svc.ListTasks(r.Context(), status, r.URL.Query().Get("category"))
	if err != nil {
		h.log.Error("list tasks failed", "error", err)
		http.Error(w, "failed to list tasks", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ListMyTasks handles GET /api/v1/tasks/mine (client).
func (h *Handler) ListMyTasks(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.svc.ListTasksByClient(r.Context(), p.AccountID)
	if err != nil {
		h.log.Error("list tasks failed", "error", err)
		http.Error(w, "failed to list tasks", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/v1/tasks/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid task ID", http.StatusBadRequest)
		return
	}
	task, err := h.svc.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		h.log.Error("get task failed", "error", err)
		http.Error(w, "failed to load task", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type submitProofRequest struct {
	TaskID       string `json:"task_id"`
	ProofText    string `json:"proof_text"`
	ProofFileURL string `json:"proof_file_url"`
}

// Submit handles POST /api/v1/submissions (worker).
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req submitProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		http.Error(w, "invalid task ID", http.StatusBadRequest)
		return
	}
	if req.ProofText == "" && req.ProofFileURL == "" {
		http.Error(w, "proof text or file is required", http.StatusBadRequest)
		return
	}

	sub, err := h.svc.SubmitProof(r.Context(), taskID, p.AccountID, req.ProofText, req.ProofFileURL)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "task not found", http.StatusNotFound)
		case errors.Is(err, ErrAlreadySubmitted):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrNoSpots), errors.Is(err, ErrTaskNotOpen):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error("submit proof failed", "error", err)
			http.Error(w, "failed to submit proof", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// ListMine handles GET /api/v1/submissions/mine (worker).
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.svc.ListSubmissionsByWorker(r.Context(), p.AccountID)
	if err != nil {
		h.log.Error("list submissions failed", "error", err)
		http.Error(w, "failed to list submissions", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Submission{}
	}
	writeJSON(w, http.StatusOK, list)
}

// AdminListPending handles GET /api/v1/admin/submissions/pending (admin).
// The review queue, oldest first.
func (h *Handler) AdminListPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListSubmissionsByStatus(r.Context(), models.SubmissionStatusPending)
	if err != nil {
		h.log.Error("list submissions failed", "error", err)
		http.Error(w, "failed to list submissions", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Submission{}
	}
	writeJSON(w, http.StatusOK, list)
}

type reviewRequest struct {
	Status     string  `json:"status"`
	AdminNotes *string `json:"admin_notes"`
}

// Review handles PATCH /api/v1/admin/submissions/{id} (admin). Approving
// settles the worker's earning atomically with the status flip.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid submission ID", http.StatusBadRequest)
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	var approve bool
	switch req.Status {
	case models.SubmissionStatusApproved:
		approve = true
	case models.SubmissionStatusRejected:
		approve = false
	default:
		http.Error(w, "status must be approved or rejected", http.StatusBadRequest)
		return
	}

	sub, err := h.svc.Review(r.Context(), id, approve, req.AdminNotes)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "submission not found", http.StatusNotFound)
		case errors.Is(err, ErrAlreadyReviewed), errors.Is(err, ledger.ErrDuplicateSettlement):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ledger.ErrInvalidSettlement):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			h.log.Error("review submission failed", "error", err)
			http.Error(w, "failed to review submission", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
