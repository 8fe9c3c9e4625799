package matchrun

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/pipeline"
)

const releaseTimeout = 5 * time.Second

// Runner executes one pipeline pass
type Runner interface {
	Run(ctx context.Context) (*models.RunSummary, error)
}

// Handler exposes match runs to the orchestrator
type Handler struct {
	logger  ectologger.Logger
	runner  Runner
	lock    pipeline.RunLock
	timeout time.Duration

	mu     sync.RWMutex
	latest *models.RunSummary
}

// NewHandler creates a match run handler. A zero timeout lets runs take as long as they need.
func NewHandler(logger ectologger.Logger, runner Runner, lock pipeline.RunLock, timeout time.Duration) *Handler {
	return &Handler{
		logger:  logger,
		runner:  runner,
		lock:    lock,
		timeout: timeout,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/match-runs")
	g.POST("", h.Create)
	g.GET("/latest", h.Latest)
}

// Create runs the pipeline synchronously and returns its summary.
// The run is detached from the request so a dropped connection does not
// cancel it half way.
func (h *Handler) Create(c echo.Context) error {
	ctx := context.WithoutCancel(c.Request().Context())
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	release, err := h.lock.Acquire(ctx)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		return httperror.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to acquire run lock")
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "failed to acquire run lock")
	}
	defer func() {
		// ctx may already be past the run timeout here
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			h.logger.WithContext(releaseCtx).WithError(err).Warn("Failed to release run lock")
		}
	}()

	summary, err := h.runner.Run(ctx)
	if summary != nil {
		h.mu.Lock()
		h.latest = summary
		h.mu.Unlock()
	}

	if err != nil {
		return httperror.NewHTTPError(statusFor(err), err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

// Latest returns the summary of the most recent run
func (h *Handler) Latest(c echo.Context) error {
	h.mu.RLock()
	latest := h.latest
	h.mu.RUnlock()

	if latest == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "no match run has been executed")
	}
	return c.JSON(http.StatusOK, latest)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrMissingInputBatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
