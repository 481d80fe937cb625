// Package tasks exposes the task scheduler's on-demand trigger and status
// lookup over HTTP.
package tasks

import (
	"net/http"
	"strings"

	"catchup-feed/internal/handler/http/respond"
	"catchup-feed/internal/usecase/scheduler"
)

// Register registers the /tasks/* routes with the given mux.
func Register(mux *http.ServeMux, sched *scheduler.Service) {
	mux.Handle("GET    /tasks/rss/trigger", TriggerHandler{Scheduler: sched})
	mux.Handle("GET    /tasks/status/", StatusHandler{Scheduler: sched})
}

// TriggerHandler serves GET /tasks/rss/trigger: triggers a named subset of
// sources via ?sources=a,b,c, or a full collect-all when omitted.
type TriggerHandler struct {
	Scheduler *scheduler.Service
}

func (h TriggerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("sources")
	if raw == "" {
		rec := h.Scheduler.TriggerCollectAll(r.Context())
		respond.JSON(w, http.StatusAccepted, rec)
		return
	}

	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	rec := h.Scheduler.TriggerSources(r.Context(), names)
	respond.JSON(w, http.StatusAccepted, rec)
}

// StatusHandler serves GET /tasks/status/{id}.
type StatusHandler struct {
	Scheduler *scheduler.Service
}

func (h StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/tasks/status/")
	if id == "" {
		respond.SafeError(w, http.StatusBadRequest, errMissingJobID)
		return
	}
	rec, ok := h.Scheduler.JobStatus(id)
	if !ok {
		respond.SafeError(w, http.StatusNotFound, errJobNotFound)
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}
