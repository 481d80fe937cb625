package article

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"catchup-feed/internal/common/pagination"
	"catchup-feed/internal/handler/http/respond"
	"catchup-feed/internal/pkg/search"
	"catchup-feed/internal/pkg/validation"
	"catchup-feed/internal/repository"
	artUC "catchup-feed/internal/usecase/article"
)

type SearchPaginatedHandler struct {
	Svc           artUC.Service
	PaginationCfg pagination.Config
}

// PaginatedResponse represents the response format for paginated search
type PaginatedResponse struct {
	Data       []DTO               `json:"data"`
	Pagination pagination.Metadata `json:"pagination"`
}

// ServeHTTP searches articles by multi-keyword AND match with optional
// source/date filters, paginated.
func (h SearchPaginatedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Parse pagination parameters
	paginationParams, err := pagination.ParseQueryParams(r, h.PaginationCfg)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	// Parse keyword parameter (optional - allows browsing with filters only)
	kw := r.URL.Query().Get("keyword")
	var keywords []string
	if kw != "" {
		// Parse and validate keywords
		keywords, err = search.ParseKeywords(kw, search.DefaultMaxKeywordCount, search.DefaultMaxKeywordLength)
		if err != nil {
			respond.SafeError(w, http.StatusBadRequest,
				fmt.Errorf("invalid keyword: %w", err))
			return
		}
	} else {
		// Empty keyword - return all articles with pagination (filtered if filters provided)
		keywords = []string{}
	}

	// Build filters
	var filters repository.ArticleSearchFilters

	// Parse source_id if provided
	if sourceIDStr := r.URL.Query().Get("source_id"); sourceIDStr != "" {
		sourceID, err := strconv.ParseInt(sourceIDStr, 10, 64)
		if err != nil {
			respond.SafeError(w, http.StatusBadRequest,
				errors.New("invalid source_id: must be a valid integer"))
			return
		}
		if sourceID <= 0 {
			respond.SafeError(w, http.StatusBadRequest,
				errors.New("invalid source_id: must be positive"))
			return
		}
		filters.SourceID = &sourceID
	}

	// Parse from date if provided
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err := validation.ParseDateISO8601(fromStr)
		if err != nil {
			respond.SafeError(w, http.StatusBadRequest,
				fmt.Errorf("invalid from date: %w", err))
			return
		}
		filters.From = from
	}

	// Parse to date if provided
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err := validation.ParseDateISO8601(toStr)
		if err != nil {
			respond.SafeError(w, http.StatusBadRequest,
				fmt.Errorf("invalid to date: %w", err))
			return
		}
		filters.To = to
	}

	// Validate date range: from <= to
	if filters.From != nil && filters.To != nil {
		if filters.From.After(*filters.To) {
			respond.SafeError(w, http.StatusBadRequest,
				errors.New("invalid date range: from date must be before or equal to to date"))
			return
		}
	}

	// Execute search with filters and pagination
	result, err := h.Svc.SearchWithFiltersPaginated(
		r.Context(),
		keywords,
		filters,
		paginationParams.Page,
		paginationParams.Limit,
	)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	// Convert to DTO
	out := make([]DTO, 0, len(result.Data))
	for _, item := range result.Data {
		out = append(out, toDTO(item.Article, item.SourceName))
	}

	// Return paginated response
	respond.JSON(w, http.StatusOK, PaginatedResponse{
		Data:       out,
		Pagination: result.Pagination,
	})
}
