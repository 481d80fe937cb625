// Package stats serves GET /stats, an aggregate read over the article
// store independent of the cache manager's own analytics.
package stats

import (
	"net/http"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/handler/http/respond"
	"catchup-feed/internal/repository"
)

const (
	topSourcesLimit = 10
	recentWindow    = 24 * time.Hour
)

// DTO is the JSON body of GET /stats.
type DTO struct {
	TotalArticles     int64                  `json:"total_articles"`
	Topics            map[entity.Topic]int64 `json:"topics"`
	TopSources        map[string]int64       `json:"top_sources"`
	RecentArticles24h int64                  `json:"recent_articles_24h"`
}

// Handler serves GET /stats directly off the article repository, bypassing
// the usecase layer since this is a read-only aggregate with no business
// rules of its own.
type Handler struct {
	Articles repository.ArticleRepository
}

// Register registers GET /stats with the given mux.
func Register(mux *http.ServeMux, articles repository.ArticleRepository) {
	mux.Handle("GET    /stats", Handler{Articles: articles})
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.Articles.CountArticles(ctx)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	topics, err := h.Articles.CountByTopic(ctx, time.Time{})
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	sources, err := h.Articles.CountBySource(ctx, topSourcesLimit)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	recent, err := h.Articles.CountRecent(ctx, time.Now().Add(-recentWindow))
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusOK, DTO{
		TotalArticles:     total,
		Topics:            topics,
		TopSources:        sources,
		RecentArticles24h: recent,
	})
}
