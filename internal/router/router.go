package router

import (
	"net/http"

	"github.com/pixeltask/backend/internal/auth"
	"github.com/pixeltask/backend/internal/disputes"
	"github.com/pixeltask/backend/internal/middleware"
	"github.com/pixeltask/backend/internal/models"
	"github.com/pixeltask/backend/internal/payouts"
	"github.com/pixeltask/backend/internal/reports"
	"github.com/pixeltask/backend/internal/settings"
	"github.com/pixeltask/backend/internal/tasks"
)

// Handlers bundles every feature handler the router mounts.
type Handlers struct {
	Auth     *auth.Handler
	Tasks    *tasks.Handler
	Payouts  *payouts.Handler
	Disputes *disputes.Handler
	Settings *settings.Handler
	Reports  *reports.Handler
}

// New returns the API handler. Everything lives under /api/v1; routes past
// the auth endpoints require a valid JWT, admin routes additionally require
// the admin role.
func New(h Handlers, validator middleware.TokenValidator) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	authed := middleware.Authenticate(validator)
	admin := func(next http.HandlerFunc) http.Handler {
		return authed(middleware.RequireRole(models.RoleAdmin)(next))
	}
	worker := func(next http.HandlerFunc) http.Handler {
		return authed(middleware.RequireRole(models.RoleWorker)(next))
	}

	// Public.
	mux.HandleFunc("POST "+base+"/auth/register", h.Auth.Register)
	mux.HandleFunc("POST "+base+"/auth/login", h.Auth.Login)
	mux.HandleFunc("GET "+base+"/tasks", h.Tasks.List)

	// Any authenticated role.
	mux.Handle("GET "+base+"/account/me", authed(http.HandlerFunc(h.Auth.Me)))
	mux.Handle("GET "+base+"/transactions/mine", authed(http.HandlerFunc(h.Reports.ListMyTransactions)))
	mux.Handle("POST "+base+"/disputes", authed(http.HandlerFunc(h.Disputes.Open)))
	mux.Handle("GET "+base+"/tasks/{id}", authed(http.HandlerFunc(h.Tasks.Get)))

	// Clients post work; admins may post on a client's behalf.
	mux.Handle("POST "+base+"/tasks", authed(middleware.RequireRole(models.RoleClient, models.RoleAdmin)(http.HandlerFunc(h.Tasks.Create))))
	mux.Handle("GET "+base+"/tasks/mine", authed(middleware.RequireRole(models.RoleClient, models.RoleAdmin)(http.HandlerFunc(h.Tasks.ListMyTasks))))

	// Workers earn and withdraw.
	mux.Handle("POST "+base+"/submissions", worker(h.Tasks.Submit))
	mux.Handle("GET "+base+"/submissions/mine", worker(h.Tasks.ListMine))
	mux.Handle("POST "+base+"/payouts", worker(h.Payouts.Request))
	mux.Handle("GET "+base+"/payouts/mine", worker(h.Payouts.ListMine))

	// Admin.
	mux.Handle("GET "+base+"/admin/submissions/pending", admin(h.Tasks.AdminListPending))
	mux.Handle("PATCH "+base+"/admin/submissions/{id}/review", admin(h.Tasks.Review))
	mux.Handle("GET "+base+"/admin/payouts", admin(h.Payouts.AdminList))
	mux.Handle("PATCH "+base+"/admin/payouts/{id}", admin(h.Payouts.AdminUpdate))
	mux.Handle("POST "+base+"/admin/payouts/process-all", admin(h.Payouts.AdminProcessAll))
	mux.Handle("GET "+base+"/admin/transactions", admin(h.Reports.AdminListTransactions))
	mux.Handle("GET "+base+"/admin/disputes", admin(h.Disputes.AdminList))
	mux.Handle("PATCH "+base+"/admin/disputes/{id}", admin(h.Disputes.AdminResolve))
	mux.Handle("GET "+base+"/admin/settings", admin(h.Settings.Get))
	mux.Handle("PATCH "+base+"/admin/settings", admin(h.Settings.Update))
	mux.Handle("GET "+base+"/admin/stats", admin(h.Reports.Stats))
	mux.Handle("GET "+base+"/admin/users", admin(h.Auth.AdminListUsers))
	mux.Handle("PATCH "+base+"/admin/users/{id}", admin(h.Auth.AdminSetActive))

	return mux
}
