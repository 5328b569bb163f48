package api

import (
	"net/http"
	"time"

	"github.com/spf13/cast"

	"github.com/newthinker/strata/internal/api/response"
	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/storage/history"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// HistoryHandler lists and fetches recorded backtests.
type HistoryHandler struct {
	store history.Store
}

func NewHistoryHandler(store history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// List handles GET /api/v1/backtests?ticker=&strategy=&from=&to=&limit=&offset=
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		response.FromError(w, err)
		return
	}

	items, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}
	total, err := h.store.Count(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.List(w, items, total)
}

// Get handles GET /api/v1/backtests/{id}
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func parseFilter(r *http.Request) (history.ListFilter, error) {
	q := r.URL.Query()
	filter := history.ListFilter{
		Ticker:   q.Get("ticker"),
		Strategy: q.Get("strategy"),
		Limit:    defaultPageSize,
	}

	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = cast.ToIntE(v); err != nil || filter.Limit < 1 {
			return filter, core.Errorf(core.ErrInvalidConfiguration, "limit must be a positive integer")
		}
		filter.Limit = min(filter.Limit, maxPageSize)
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = cast.ToIntE(v); err != nil || filter.Offset < 0 {
			return filter, core.Errorf(core.ErrInvalidConfiguration, "offset must be a non-negative integer")
		}
	}
	if v := q.Get("from"); v != "" {
		if filter.From, err = time.Parse(time.DateOnly, v); err != nil {
			return filter, core.Errorf(core.ErrInvalidConfiguration, "from must be YYYY-MM-DD")
		}
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return filter, core.Errorf(core.ErrInvalidConfiguration, "to must be YYYY-MM-DD")
		}
		filter.To = to.Add(24*time.Hour - time.Nanosecond)
	}
	return filter, nil
}
