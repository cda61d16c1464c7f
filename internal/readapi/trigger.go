package readapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"macro-stress-pipeline/internal/orchestrator"
	"macro-stress-pipeline/pkg/logger"
)

// RunResult mirrors orchestrator.Result's fields the trigger endpoint
// reports back to the caller.
type RunResult struct {
	Skipped          bool     `json:"skipped"`
	Status           string   `json:"status"`
	CountriesUpdated int      `json:"countries_updated"`
	CountriesFailed  int      `json:"countries_failed"`
	Errors           []string `json:"errors,omitempty"`
}

// Runner is the one orchestrator method the trigger endpoint calls,
// narrowed to an interface so this package doesn't force a concrete
// *orchestrator.Orchestrator on every caller.
type Runner interface {
	Run(ctx context.Context) (*orchestrator.Result, error)
}

// TriggerHandler exposes the daily orchestrator run behind the
// scheduler-trigger endpoint. It is registered separately from
// Handler's public routes since it sits behind SharedSecretAuth.
type TriggerHandler struct {
	runner Runner
	logger *logger.Logger
}

// NewTriggerHandler builds the scheduler-trigger handler.
func NewTriggerHandler(runner Runner, logger *logger.Logger) *TriggerHandler {
	return &TriggerHandler{runner: runner, logger: logger}
}

// RegisterRoutes registers the trigger route on the given (already
// auth-guarded) group.
func (h *TriggerHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/run", h.Trigger)
}

// Trigger godoc
// @Summary Trigger the daily orchestrator run
// @Produce json
// @Success 200 {object} readapi.RunResult
// @Success 207 {object} readapi.RunResult
// @Failure 500 {object} readapi.ErrorResponse
// @Router /internal/run [get]
func (h *TriggerHandler) Trigger(c echo.Context) error {
	result, err := h.runner.Run(c.Request().Context())
	if err != nil {
		h.logger.ErrorContext(c.Request().Context(), "orchestrator run failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	resp := RunResult{
		Skipped:          result.Skipped,
		Status:           result.Status,
		CountriesUpdated: result.CountriesUpdated,
		CountriesFailed:  result.CountriesFailed,
		Errors:           result.Errors,
	}

	status := http.StatusOK
	switch result.Status {
	case "partial":
		status = http.StatusMultiStatus
	case "error":
		status = http.StatusInternalServerError
	}
	return c.JSON(status, resp)
}
