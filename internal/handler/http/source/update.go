package source

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"catchup-feed/internal/handler/http/pathutil"
	"catchup-feed/internal/handler/http/respond"
	srcUC "catchup-feed/internal/usecase/source"
)

type UpdateHandler struct{ Svc srcUC.Service }

// ServeHTTP applies a partial update to a source.
func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/sources/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Name                *string  `json:"name"`
		FeedURL             *string  `json:"feed_url"`
		Region              *string  `json:"region"`
		Country             *string  `json:"country"`
		Language            *string  `json:"language"`
		Enabled             *bool    `json:"enabled"`
		Reliability         *int     `json:"reliability"`
		PollIntervalSeconds *int     `json:"poll_interval_seconds"`
		MaxItemsPerPoll     *int     `json:"max_items_per_poll"`
		TopicTags           []string `json:"topic_tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	var pollInterval *time.Duration
	if req.PollIntervalSeconds != nil {
		d := time.Duration(*req.PollIntervalSeconds) * time.Second
		pollInterval = &d
	}

	err = h.Svc.Update(r.Context(), srcUC.UpdateInput{
		ID:              id,
		Name:            req.Name,
		FeedURL:         req.FeedURL,
		Region:          req.Region,
		Country:         req.Country,
		Language:        req.Language,
		Enabled:         req.Enabled,
		Reliability:     req.Reliability,
		PollInterval:    pollInterval,
		MaxItemsPerPoll: req.MaxItemsPerPoll,
		TopicTags:       req.TopicTags,
	})
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, srcUC.ErrSourceNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
