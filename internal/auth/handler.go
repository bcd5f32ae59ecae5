package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/pixeltask/backend/internal/middleware"
	"github.com/pixeltask/backend/internal/models"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

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

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" || req.Role == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}
	u, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name, models.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrInvalidRole):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.log.Error("register failed", "error", err)
			http.Error(w, "registration failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "missing email or password", http.StatusBadRequest)
		return
	}
	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		h.log.Error("login failed", "error", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: u})
}

// Me handles GET /api/v1/account/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	u, err := h.svc.GetUser(r.Context(), p.AccountID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.log.Error("load account failed", "error", err)
		http.Error(w, "failed to load account", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// AdminListUsers handles GET /api/v1/admin/users?role= (admin).
func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "all" {
		role = ""
	}
	list, err := h.svc.ListUsers(r.Context(), role)
	if err != nil {
		h.log.Error("list users failed", "error", err)
		http.Error(w, "failed to list users", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.User{}
	}
	writeJSON(w, http.StatusOK, list)
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

// AdminSetActive handles PATCH /api/v1/admin/users/{id} (admin).
func (h *Handler) AdminSetActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.IsActive == nil {
		http.Error(w, "is_active is required", http.StatusBadRequest)
		return
	}
	u, err := h.svc.SetUserActive(r.Context(), id, *req.IsActive)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.log.Error("update user failed", "error", err)
		http.Error(w, "failed to update user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
