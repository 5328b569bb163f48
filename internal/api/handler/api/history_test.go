package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/strata/internal/backtest"
	"github.com/newthinker/strata/internal/storage/history"
)

func seededHistory(t *testing.T) history.Store {
	t.Helper()
	store := history.NewMemoryStore(10)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, ticker := range []string{"AAPL", "MSFT", "AAPL"} {
		require.NoError(t, store.Save(context.Background(), &backtest.Result{
			ID:        ticker + string(rune('0'+i)),
			Ticker:    ticker,
			CreatedAt: base.AddDate(0, 0, i),
		}))
	}
	return store
}

func TestHistoryHandler_List(t *testing.T) {
	handler := NewHistoryHandler(seededHistory(t))

	req := httptest.NewRequest("GET", "/api/v1/backtests?ticker=AAPL&limit=1", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []history.Summary `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "AAPL2", resp.Data[0].ID)
	assert.Equal(t, 2, resp.Meta.Total)
}

func TestHistoryHandler_List_DateRange(t *testing.T) {
	handler := NewHistoryHandler(seededHistory(t))

	req := httptest.NewRequest("GET", "/api/v1/backtests?from=2025-03-02&to=2025-03-02", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	var resp struct {
		Data []history.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "MSFT1", resp.Data[0].ID)
}

func TestHistoryHandler_List_BadQuery(t *testing.T) {
	handler := NewHistoryHandler(seededHistory(t))

	for _, q := range []string{"limit=abc", "limit=0", "offset=-1", "from=yesterday"} {
		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest("GET", "/api/v1/backtests?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestHistoryHandler_Get(t *testing.T) {
	handler := NewHistoryHandler(seededHistory(t))

	req := httptest.NewRequest("GET", "/api/v1/backtests/MSFT1", nil)
	req.SetPathValue("id", "MSFT1")
	w := httptest.NewRecorder()
	handler.Get(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/api/v1/backtests/nope", nil)
	req.SetPathValue("id", "nope")
	w = httptest.NewRecorder()
	handler.Get(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
