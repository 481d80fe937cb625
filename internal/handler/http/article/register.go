package article

import (
	"log/slog"
	"net/http"

	"catchup-feed/internal/common/pagination"
	httpmw "catchup-feed/internal/handler/http"
	artUC "catchup-feed/internal/usecase/article"
	"catchup-feed/internal/usecase/cachemanager"
)

// Register registers all article-related HTTP handlers with the given mux.
// It sets up routes for listing, searching, creating, updating, and deleting
// articles. The search endpoint is protected by rate limiting to curb
// expensive query patterns.
func Register(mux *http.ServeMux, svc artUC.Service, paginationCfg pagination.Config, logger *slog.Logger, searchRateLimiter *httpmw.RateLimiter) {
	mux.Handle("GET    /articles", ListHandler{
		Svc:           svc,
		PaginationCfg: paginationCfg,
		Logger:        logger,
	})
	mux.Handle("GET    /articles/search", searchRateLimiter.Limit(SearchPaginatedHandler{
		Svc:           svc,
		PaginationCfg: paginationCfg,
	}))
	mux.Handle("GET    /articles/", GetHandler{svc})

	mux.Handle("POST   /articles", CreateHandler{svc})
	mux.Handle("PUT    /articles/", UpdateHandler{svc})
	mux.Handle("DELETE /articles/", DeleteHandler{svc})
}

// RegisterCached registers the cache-backed article read route. Kept
// separate from Register since it depends on the cache manager, which the
// worker process's article usecase wiring doesn't otherwise need.
func RegisterCached(mux *http.ServeMux, svc artUC.Service, manager *cachemanager.Manager) {
	mux.Handle("GET    /articles/cached", CachedHandler{Cache: manager, Svc: svc})
}
