package article

import (
	"net/http"
	"strconv"

	"catchup-feed/internal/handler/http/respond"
	"catchup-feed/internal/infra/cache"
	artUC "catchup-feed/internal/usecase/article"
	"catchup-feed/internal/usecase/cachemanager"
)

const defaultCachedLimit = 20

// cachedDTO is the cache-first projection returned by GET /articles/cached:
// the article list plus where it came from, so callers can tell a warm hit
// from a fallback to persistence.
type cachedDTO struct {
	Articles   []DTO  `json:"articles"`
	Source     string `json:"source"`
	CacheLayer string `json:"cache_layer"`
}

// CachedHandler serves GET /articles/cached: a cache-first read that tries
// the recency/topic cache layers for a list of ids, then resolves each id
// against persistence for its full projection.
type CachedHandler struct {
	Cache *cachemanager.Manager
	Svc   artUC.Service
}

func (h CachedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topic := q.Get("topic")
	bucket := cache.RecencyBucket(q.Get("time_bucket"))

	limit := defaultCachedLimit
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	ids, layer := h.Cache.GetArticlesSmart(r.Context(), topic, bucket, limit)
	if len(ids) > 0 {
		dtos := make([]DTO, 0, len(ids))
		for _, raw := range ids {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			a, sourceName, err := h.Svc.GetWithSource(r.Context(), id)
			if err != nil || a == nil {
				continue
			}
			dtos = append(dtos, toDTO(a, sourceName))
		}
		respond.JSON(w, http.StatusOK, cachedDTO{Articles: dtos, Source: "cache_hit", CacheLayer: layer})
		return
	}

	// Full miss: fall back to persistence, filtering by topic when given.
	withSrc, err := h.Svc.ListWithSource(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]DTO, 0, limit)
	for _, item := range withSrc {
		if topic != "" && string(item.Article.PrimaryTopic) != topic {
			continue
		}
		dtos = append(dtos, toDTO(item.Article, item.SourceName))
		if len(dtos) >= limit {
			break
		}
	}
	respond.JSON(w, http.StatusOK, cachedDTO{Articles: dtos, Source: "cache_miss", CacheLayer: "none"})
}
