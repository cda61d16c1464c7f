package readapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"macro-stress-pipeline/pkg/logger"
)

// cacheControlHeader is the caching contract spec.md §4.8/§6 assigns
// both public read endpoints: safe for an hour, stale-while-revalidate
// for ten minutes past that.
const cacheControlHeader = "public, s-maxage=3600, stale-while-revalidate=600"

// ErrorResponse is the stable error envelope every failing endpoint
// returns.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler is the thin Echo adapter over Composer.
type Handler struct {
	composer *Composer
	logger   *logger.Logger
}

// NewHandler builds the public read-API handler.
func NewHandler(composer *Composer, logger *logger.Logger) *Handler {
	return &Handler{composer: composer, logger: logger}
}

// RegisterRoutes registers the public routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/stress", h.Scoreboard)
	g.GET("/stress/:code/history", h.History)
}

// Scoreboard godoc
// @Summary Current macro stress scoreboard
// @Produce json
// @Success 200 {array} readapi.ScoreboardEntry
// @Failure 500 {object} readapi.ErrorResponse
// @Router /api/public/stress [get]
func (h *Handler) Scoreboard(c echo.Context) error {
	entries, err := h.composer.Scoreboard(c.Request().Context())
	if err != nil {
		h.logger.ErrorContext(c.Request().Context(), "scoreboard failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to build scoreboard"})
	}
	c.Response().Header().Set(echo.HeaderCacheControl, cacheControlHeader)
	return c.JSON(http.StatusOK, entries)
}

// History godoc
// @Summary 30-day stress score history for a country
// @Produce json
// @Param code path string true "ISO2 country code"
// @Success 200 {array} readapi.HistoryPoint
// @Failure 404 {object} readapi.ErrorResponse
// @Failure 500 {object} readapi.ErrorResponse
// @Router /api/public/stress/{code}/history [get]
func (h *Handler) History(c echo.Context) error {
	code := c.Param("code")
	points, found, err := h.composer.History(c.Request().Context(), code)
	if err != nil {
		h.logger.ErrorContext(c.Request().Context(), "history failed", logger.ErrorField(err), logger.StringField("code", code))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to build history"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown country code"})
	}
	c.Response().Header().Set(echo.HeaderCacheControl, cacheControlHeader)
	return c.JSON(http.StatusOK, points)
}

// Healthz is a trivial liveness probe, no auth, no persisted state.
func Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
