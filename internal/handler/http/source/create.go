package source

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"catchup-feed/internal/handler/http/respond"
	srcUC "catchup-feed/internal/usecase/source"
)

type CreateHandler struct{ Svc srcUC.Service }

// ServeHTTP registers a new source.
func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name                string   `json:"name"`
		FeedURL             string   `json:"feed_url"`
		Region              string   `json:"region"`
		Country             string   `json:"country"`
		Language            string   `json:"language"`
		PollIntervalSeconds int      `json:"poll_interval_seconds"`
		MaxItemsPerPoll     int      `json:"max_items_per_poll"`
		TopicTags           []string `json:"topic_tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" || req.FeedURL == "" {
		respond.SafeError(w, http.StatusBadRequest,
			errors.New("name and feed_url required"))
		return
	}

	err := h.Svc.Create(r.Context(), srcUC.CreateInput{
		Name:            req.Name,
		FeedURL:         req.FeedURL,
		Region:          req.Region,
		Country:         req.Country,
		Language:        req.Language,
		PollInterval:    time.Duration(req.PollIntervalSeconds) * time.Second,
		MaxItemsPerPoll: req.MaxItemsPerPoll,
		TopicTags:       req.TopicTags,
	})
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
