package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/jobs"
	"github.com/phrazzld/blogtube-api/internal/store"
)

// getPathUUID extracts and parses a UUID path parameter. Errors wrap
// jobs.ErrInvalidRequest so they map to 400.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", jobs.ErrInvalidRequest, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", jobs.ErrInvalidRequest, paramName)
	}
	return id, nil
}

// parseListFilter reads status, provider, limit and offset from the query
// string. Paging values are clamped by ListFilter.Normalize.
func parseListFilter(r *http.Request) (store.ListFilter, error) {
	q := r.URL.Query()
	var filter store.ListFilter

	if s := q.Get("status"); s != "" {
		status := domain.JobStatus(s)
		if !status.IsValid() {
			return filter, fmt.Errorf("%w: unknown status %q", jobs.ErrInvalidRequest, s)
		}
		filter.Status = status
	}
	filter.Provider = q.Get("provider")

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		return filter, fmt.Errorf("%w: limit must be an integer", jobs.ErrInvalidRequest)
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		return filter, fmt.Errorf("%w: offset must be an integer", jobs.ErrInvalidRequest)
	}
	return filter.Normalize(), nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
