package source

import (
	"net/http"

	httpmw "catchup-feed/internal/handler/http"
	srcUC "catchup-feed/internal/usecase/source"
)

// Register registers all source-related HTTP handlers with the given mux.
// It sets up routes for listing, searching, creating, updating, and deleting
// sources. The search endpoint is protected by rate limiting to curb
// expensive query patterns.
func Register(mux *http.ServeMux, svc srcUC.Service, searchRateLimiter *httpmw.RateLimiter) {
	mux.Handle("GET    /sources", ListHandler{svc})
	mux.Handle("GET    /sources/search", searchRateLimiter.Limit(SearchHandler{svc}))

	mux.Handle("POST   /sources", CreateHandler{svc})
	mux.Handle("PUT    /sources/", UpdateHandler{svc})
	mux.Handle("DELETE /sources/", DeleteHandler{svc})
}
