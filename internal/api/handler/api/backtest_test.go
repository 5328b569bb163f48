package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/strata/internal/api/job"
	"github.com/newthinker/strata/internal/api/response"
	"github.com/newthinker/strata/internal/backtest"
	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/metrics"
	"github.com/newthinker/strata/internal/strategy"
)

// stubRunner records requests and returns a canned result or error
type stubRunner struct {
	mu   sync.Mutex
	reqs []backtest.Request
	err  error
}

func (s *stubRunner) Run(ctx context.Context, req backtest.Request) (*backtest.Result, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &backtest.Result{
		ID:      "res-1",
		Ticker:  req.Ticker,
		Period:  req.Period,
		Metrics: backtest.Metrics{TotalTrades: 1, TotalReturn: 0.1, FinalCapital: 11000},
		Trades:  []backtest.Trade{{EntryPrice: 100, ExitPrice: 110, Return: 0.1}},
	}, nil
}

func (s *stubRunner) Compare(ctx context.Context, ticker, period string, capital float64, candidates []strategy.Config) ([]*backtest.Result, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, backtest.Request{Ticker: ticker, Period: period, InitialCapital: backtest.Amount(capital), Strategies: candidates})
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	results := make([]*backtest.Result, len(candidates))
	for i, c := range candidates {
		results[i] = &backtest.Result{ID: c.Type, Ticker: ticker, Period: period}
	}
	return results, nil
}

func (s *stubRunner) last() backtest.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reqs[len(s.reqs)-1]
}

const validBody = `{
	"ticker": " aapl ",
	"initial_capital": "10000",
	"strategies": [
		{"type": "moving_average_cross", "params": {"lower_period": 50, "upper_period": 200, "ma_type": "SMA"}}
	],
	"mode": "ANY"
}`

func newHandler(runner Runner) (*BacktestHandler, *job.Store) {
	store := job.NewStore(100, time.Hour)
	return NewBacktestHandler(store, runner, "1y", metrics.NewRegistry(), nil), store
}

func post(body string) *http.Request {
	req := httptest.NewRequest("POST", "/api/v1/backtest", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestBacktestHandler_Run(t *testing.T) {
	runner := &stubRunner{}
	handler, _ := newHandler(runner)
	w := httptest.NewRecorder()

	handler.Run(w, post(validBody))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := runner.last()
	assert.Equal(t, "AAPL", got.Ticker)
	assert.Equal(t, "1y", got.Period, "default period applied")
	assert.Equal(t, "any", got.Mode)
	assert.Equal(t, backtest.Amount(10000), got.InitialCapital)

	var resp struct {
		Data backtest.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "res-1", resp.Data.ID)
	assert.Len(t, resp.Data.Trades, 1)
}

func TestBacktestHandler_Run_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"ticker":`, "INVALID_CONFIGURATION"},
		{"missing ticker", `{"strategies":[{"type":"rsi_cross"}]}`, "MISSING_PARAMETER"},
		{"no strategies", `{"ticker":"AAPL","strategies":[]}`, "INVALID_CONFIGURATION"},
		{"strategy without type", `{"ticker":"AAPL","strategies":[{"params":{}}]}`, "MISSING_PARAMETER"},
		{"bad mode", `{"ticker":"AAPL","mode":"most","strategies":[{"type":"rsi_cross"}]}`, "INVALID_CONFIGURATION"},
		{"negative capital", `{"ticker":"AAPL","initial_capital":-5,"strategies":[{"type":"rsi_cross"}]}`, "INVALID_CONFIGURATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{}
			handler, _ := newHandler(runner)
			w := httptest.NewRecorder()

			handler.Run(w, post(tt.body))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp response.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Empty(t, runner.reqs, "invalid requests never reach the runner")
		})
	}
}

func TestBacktestHandler_Run_MapsErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{core.Errorf(core.ErrProvider, "no data for ZZZZ"), http.StatusBadGateway},
		{core.WrapError(core.ErrDataValidation, core.ErrInsufficientData), http.StatusUnprocessableEntity},
		{core.Errorf(core.ErrStrategyNotImplemented, "bollinger"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		handler, _ := newHandler(&stubRunner{err: tt.err})
		w := httptest.NewRecorder()

		handler.Run(w, post(validBody))

		assert.Equal(t, tt.status, w.Code, tt.err.Error())
	}
}

func TestBacktestHandler_Create(t *testing.T) {
	handler, store := newHandler(&stubRunner{})
	w := httptest.NewRecorder()

	handler.Create(w, post(validBody))

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	jobID, _ := data["job_id"].(string)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		j, err := store.Get(jobID)
		return err == nil && j.Status == job.StatusComplete
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBacktestHandler_Create_Failure(t *testing.T) {
	handler, store := newHandler(&stubRunner{err: core.Errorf(core.ErrProvider, "down")})
	w := httptest.NewRecorder()

	handler.Create(w, post(validBody))
	require.Equal(t, http.StatusAccepted, w.Code)

	jobs := store.List()
	require.Len(t, jobs, 1)

	require.Eventually(t, func() bool {
		j, _ := store.Get(jobs[0].ID)
		return j.Status == job.StatusFailed && j.Error != nil && j.Error.Code == "PROVIDER_ERROR"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBacktestHandler_GetStatus(t *testing.T) {
	handler, store := newHandler(&stubRunner{})

	j := store.Create("backtest")
	store.Complete(j.ID, map[string]any{"id": "res-1"})

	req := httptest.NewRequest("GET", "/api/v1/backtest/jobs/"+j.ID, nil)
	req.SetPathValue("id", j.ID)
	w := httptest.NewRecorder()

	handler.GetStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp.Data.(map[string]any)
	assert.Equal(t, j.ID, data["job_id"])
	assert.Equal(t, "complete", data["status"])
	assert.NotNil(t, data["result"])
}

func TestBacktestHandler_GetStatus_NotFound(t *testing.T) {
	handler, _ := newHandler(&stubRunner{})

	req := httptest.NewRequest("GET", "/api/v1/backtest/jobs/nonexistent", nil)
	req.SetPathValue("id", "nonexistent")
	w := httptest.NewRecorder()

	handler.GetStatus(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBacktestHandler_Compare(t *testing.T) {
	runner := &stubRunner{}
	handler, _ := newHandler(runner)

	body := `{"ticker":"spy","strategies":[
		{"type":"moving_average_cross","params":{"lower_period":5,"upper_period":20,"ma_type":"EMA"}},
		{"type":"rsi_cross","params":{"rsi_period":14,"lower_bound":30,"upper_bound":70}}
	]}`
	w := httptest.NewRecorder()
	handler.Compare(w, post(body))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []backtest.Result `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 2, resp.Meta.Total)

	got := runner.last()
	assert.Equal(t, "SPY", got.Ticker)
	assert.Equal(t, "1y", got.Period)
}

func TestBacktestHandler_Compare_Error(t *testing.T) {
	handler, _ := newHandler(&stubRunner{err: core.Errorf(core.ErrProvider, "no data")})

	w := httptest.NewRecorder()
	handler.Compare(w, post(validBody))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
