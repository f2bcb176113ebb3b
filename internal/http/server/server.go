// Package server assembles the route table and the middleware stack.
package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aanand-mishra/students-form/internal/http/handlers/admin"
	"github.com/aanand-mishra/students-form/internal/http/handlers/student"
	"github.com/aanand-mishra/students-form/internal/http/middleware"
	"github.com/aanand-mishra/students-form/internal/session"
	"github.com/aanand-mishra/students-form/internal/utils/response"
)

// Routes returns the full handler:
//
//	POST /api/login                 → log in, set session cookie
//	GET  /api/me                    → matched record
//	PUT  /api/me                    → submit the edit form
//	POST /api/logout                → end the session
//	GET  /api/admin/records         → fresh dataset          (admin)
//	GET  /api/admin/records/export  → fresh dataset as xlsx  (admin)
//	GET  /api/admin/audit           → update journal         (admin)
//	GET  /health                    → liveness
//	GET  /metrics                   → Prometheus exposition
func Routes(svc *session.Service, log *slog.Logger, gatherer prometheus.Gatherer) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("POST /api/login", student.Login(svc))
	router.HandleFunc("GET /api/me", student.Me(svc))
	router.HandleFunc("PUT /api/me", student.Update(svc, log))
	router.HandleFunc("POST /api/logout", student.Logout(svc))

	requireAdmin := middleware.RequireAdmin(svc.CheckAdmin, log)
	router.Handle("GET /api/admin/records", requireAdmin(admin.Records(svc)))
	router.Handle("GET /api/admin/records/export", requireAdmin(admin.Export(svc)))
	router.Handle("GET /api/admin/audit", requireAdmin(admin.Audit(svc)))

	router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": response.StatusOK})
	})
	router.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return middleware.Chain(router,
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Recovery(log),
	)
}
