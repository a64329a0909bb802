package httpx

import (
	"net/http"

	"github.com/target/dms-export/internal/service"
)

// RouterServices holds the services the HTTP router needs.
type RouterServices struct {
	Scheduler *service.SchedulerService
}

// NewRouter creates and configures the management API router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Svc: services.Scheduler}
	registerJobRoutes(mux, jobHandlers)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("GET /api/jobs", h.List)
	mux.HandleFunc("PUT /api/jobs", h.Save)
	mux.HandleFunc("DELETE /api/jobs/{id}", h.Delete)
	mux.HandleFunc("POST /api/jobs/{id}/run", h.Run)
	mux.HandleFunc("POST /api/jobs/{id}/abort", h.Abort)
	mux.HandleFunc("GET /api/exports/running", h.Running)
	mux.HandleFunc("GET /api/history", h.History)
}
