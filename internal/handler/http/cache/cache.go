// Package cache serves the cache-management HTTP surface: analytics,
// performance, health, warming, and invalidation.
package cache

import (
	"errors"
	"net/http"
	"strings"

	"catchup-feed/internal/handler/http/respond"
	"catchup-feed/internal/repository"
	"catchup-feed/internal/usecase/cachemanager"
	"catchup-feed/internal/usecase/scheduler"
)

// errInvalidTopic is returned when the invalidate route's path segment is
// empty or carries an extra path component.
var errInvalidTopic = errors.New("invalid topic")

// Register registers every /cache/* route with the given mux.
func Register(mux *http.ServeMux, manager *cachemanager.Manager, sched *scheduler.Service, sources repository.SourceRepository) {
	mux.Handle("GET    /cache/stats", StatsHandler{Manager: manager})
	mux.Handle("GET    /cache/performance", PerformanceHandler{Manager: manager, Sources: sources})
	mux.Handle("GET    /cache/health", HealthHandler{Manager: manager})
	mux.Handle("POST   /cache/warm", WarmHandler{Scheduler: sched})
	mux.Handle("GET    /cache/warm", WarmSyncHandler{Manager: manager})
	mux.Handle("DELETE /cache/invalidate/", InvalidateHandler{Scheduler: sched})
}

// StatsHandler serves GET /cache/stats: the manager's raw counters.
type StatsHandler struct {
	Manager *cachemanager.Manager
}

func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.Manager.GetAnalytics())
}

// sourcePerfDTO names a source alongside its L4 metrics for the
// performance listing.
type sourcePerfDTO struct {
	SourceID   int64                          `json:"source_id"`
	SourceName string                         `json:"source_name"`
	Metrics    cachemanager.SourcePerfMetrics `json:"metrics"`
	CacheHit   bool                           `json:"cache_hit"`
}

// PerformanceHandler serves GET /cache/performance: L4 source-performance
// metrics for every active source, falling back to the live source row
// when a source hasn't been warmed yet.
type PerformanceHandler struct {
	Manager *cachemanager.Manager
	Sources repository.SourceRepository
}

func (h PerformanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sources, err := h.Sources.ListActive(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]sourcePerfDTO, 0, len(sources))
	for _, s := range sources {
		if perf, ok := h.Manager.GetSourcePerf(r.Context(), s.ID); ok {
			out = append(out, sourcePerfDTO{SourceID: s.ID, SourceName: s.Name, Metrics: perf, CacheHit: true})
			continue
		}
		out = append(out, sourcePerfDTO{
			SourceID:   s.ID,
			SourceName: s.Name,
			CacheHit:   false,
			Metrics: cachemanager.SourcePerfMetrics{
				Reliability:         s.Reliability,
				SuccessRate:         s.SuccessRate(),
				AvgResponseMs:       s.AvgResponseMs,
				TotalArticles:       s.ArticlesCollected,
				ConsecutiveFailures: s.ConsecutiveFailures,
				IsHealthy:           s.IsHealthy(),
			},
		})
	}
	respond.JSON(w, http.StatusOK, out)
}

// healthDTO summarizes cache health for operators.
type healthDTO struct {
	Status        string  `json:"status"`
	HitRatio      float64 `json:"hit_ratio"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Warmings      int64   `json:"warmings"`
	Invalidations int64   `json:"invalidations"`
}

const healthyHitRatioFloor = 0.5

// HealthHandler serves GET /cache/health: a coarse status derived from the
// manager's hit ratio, not a liveness probe — see handler/http.ReadyHandler
// for that.
type HealthHandler struct {
	Manager *cachemanager.Manager
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a := h.Manager.GetAnalytics()
	status := "healthy"
	if a.Hits+a.Misses > 0 && a.HitRatio < healthyHitRatioFloor {
		status = "degraded"
	}
	respond.JSON(w, http.StatusOK, healthDTO{
		Status:        status,
		HitRatio:      a.HitRatio,
		UptimeSeconds: a.UptimeSeconds,
		Warmings:      a.Warmings,
		Invalidations: a.Invalidations,
	})
}

func parseLayers(r *http.Request) []string {
	raw := r.URL.Query().Get("layers")
	if raw == "" {
		return []string{"all"}
	}
	parts := strings.Split(raw, ",")
	layers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			layers = append(layers, p)
		}
	}
	return layers
}

// WarmHandler serves POST /cache/warm: warming runs as a scheduler-tracked
// on-demand job so its outcome shows up under GET /tasks/status/{id}.
type WarmHandler struct {
	Scheduler *scheduler.Service
}

func (h WarmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := h.Scheduler.WarmCacheLayers(r.Context(), parseLayers(r))
	respond.JSON(w, http.StatusAccepted, rec)
}

// WarmSyncHandler serves GET /cache/warm: the same warming work, run
// synchronously against the cache manager with no job record.
type WarmSyncHandler struct {
	Manager *cachemanager.Manager
}

func (h WarmSyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, layer := range parseLayers(r) {
		switch layer {
		case "all":
			h.Manager.WarmAll(r.Context())
		case "topic", "topics":
			h.Manager.WarmTopics(r.Context())
		case "recency":
			h.Manager.WarmRecency(r.Context())
		case "source_perf":
			h.Manager.WarmSourcePerf(r.Context())
		}
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "warmed"})
}

// InvalidateHandler serves DELETE /cache/invalidate/{topic}.
type InvalidateHandler struct {
	Scheduler *scheduler.Service
}

func (h InvalidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topic := strings.TrimPrefix(r.URL.Path, "/cache/invalidate/")
	if topic == "" || strings.Contains(topic, "/") {
		respond.SafeError(w, http.StatusBadRequest, errInvalidTopic)
		return
	}
	rec := h.Scheduler.InvalidateTopic(r.Context(), topic)
	respond.JSON(w, http.StatusOK, rec)
}
