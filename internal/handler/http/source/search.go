package source

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"catchup-feed/internal/handler/http/respond"
	"catchup-feed/internal/pkg/search"
	srcUC "catchup-feed/internal/usecase/source"
)

type SearchHandler struct{ Svc srcUC.Service }

// ServeHTTP searches sources by name or feed URL.
func (h SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kw := r.URL.Query().Get("keyword")
	if kw == "" {
		respond.SafeError(w, http.StatusBadRequest,
			errors.New("keyword query param required"))
		return
	}

	// Parse and validate keywords, then join back for the single ILIKE
	// pass the source repository supports (name/feed_url, no multi-keyword
	// AND logic like articles have).
	keywords, err := search.ParseKeywords(kw, search.DefaultMaxKeywordCount, search.DefaultMaxKeywordLength)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest,
			fmt.Errorf("invalid keyword: %w", err))
		return
	}

	list, err := h.Svc.Search(r.Context(), strings.Join(keywords, " "))
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]DTO, 0, len(list))
	for _, e := range list {
		out = append(out, toDTO(e))
	}
	respond.JSON(w, http.StatusOK, out)
}
