package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/newthinker/strata/internal/api/job"
	"github.com/newthinker/strata/internal/api/response"
	"github.com/newthinker/strata/internal/backtest"
	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/metrics"
	"github.com/newthinker/strata/internal/strategy"
)

const (
	backtestTimeout = 5 * time.Minute
	jobType         = "backtest"
	maxBodyBytes    = 1 << 20
)

var validate = validator.New()

// Runner executes backtests.
type Runner interface {
	Run(ctx context.Context, req backtest.Request) (*backtest.Result, error)
	Compare(ctx context.Context, ticker, period string, capital float64, candidates []strategy.Config) ([]*backtest.Result, error)
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobStore      *job.Store
	runner        Runner
	defaultPeriod string
	metrics       *metrics.Registry
	logger        *zap.Logger
}

// NewBacktestHandler creates a new backtest handler. reg may be nil.
func NewBacktestHandler(jobStore *job.Store, runner Runner, defaultPeriod string, reg *metrics.Registry, logger *zap.Logger) *BacktestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{
		jobStore:      jobStore,
		runner:        runner,
		defaultPeriod: defaultPeriod,
		metrics:       reg,
		logger:        logger,
	}
}

// Run executes a backtest synchronously.
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		response.FromError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), backtestTimeout)
	defer cancel()

	result, err := h.runner.Run(ctx, req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// Compare evaluates each requested strategy separately on the same data and
// returns the results ranked by total return.
func (h *BacktestHandler) Compare(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		response.FromError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), backtestTimeout)
	defer cancel()

	results, err := h.runner.Compare(ctx, req.Ticker, req.Period, float64(req.InitialCapital), req.Strategies)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.List(w, results, len(results))
}

// Create starts a new backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		response.FromError(w, err)
		return
	}

	j := h.jobStore.Create(jobType)

	// Copy values before starting goroutine to avoid race
	jobID := j.ID
	status := j.Status

	go h.runBacktest(jobID, req)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": status,
	})
}

// runBacktest executes the backtest and updates job status.
func (h *BacktestHandler) runBacktest(jobID string, req backtest.Request) {
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})
	h.reportActive()
	defer h.reportActive()

	ctx, cancel := context.WithTimeout(context.Background(), backtestTimeout)
	defer cancel()

	result, err := h.runner.Run(ctx, req)
	if err != nil {
		h.logger.Warn("backtest job failed", zap.String("job_id", jobID), zap.Error(err))
		h.jobStore.Fail(jobID, err)
		return
	}
	h.jobStore.Complete(jobID, result)
}

// GetStatus returns the status of a backtest job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}
	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = j.Error
	}

	response.JSON(w, http.StatusOK, resp)
}

func (h *BacktestHandler) decode(w http.ResponseWriter, r *http.Request) (backtest.Request, error) {
	var req backtest.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return req, core.Errorf(core.ErrInvalidConfiguration, "decoding request: %v", err)
	}

	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Period == "" {
		req.Period = h.defaultPeriod
	}
	req.Mode = strings.ToLower(req.Mode)

	if err := validate.Struct(req); err != nil {
		return req, validationError(err)
	}
	return req, nil
}

func (h *BacktestHandler) reportActive() {
	if h.metrics != nil {
		h.metrics.SetJobsActive(jobType, h.jobStore.Active(jobType))
	}
}

// validationError turns validator output into a single configuration error
// naming each offending field.
func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return core.WrapError(core.ErrInvalidConfiguration, err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
	}

	base := core.ErrInvalidConfiguration
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			base = core.ErrMissingParameter
			break
		}
	}
	return core.Errorf(base, "%s", strings.Join(msgs, "; "))
}
