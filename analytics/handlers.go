package analytics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler handles analytics HTTP requests.
type Handler struct {
	store          *Store
	collectLimiter *rateLimiter
}

// NewHandler creates a new analytics handler. The collect endpoint is
// rate-limited to 60 requests per IP per minute.
func NewHandler(store *Store) *Handler {
	return &Handler{
		store:          store,
		collectLimiter: newRateLimiter(60, time.Minute),
	}
}

// CollectRequest is the expected request body for the collect endpoint.
type CollectRequest struct {
	Path     string `json:"path"`
	Referrer string `json:"referrer"`
}

// Input validation limits for the collect endpoint.
const (
	maxPathLen     = 2048
	maxReferrerLen = 2048
)

func validateCollectRequest(req *CollectRequest) error {
	if req.Path == "" {
		return fmt.Errorf("path is required")
	}
	if len(req.Path) > maxPathLen {
		return fmt.Errorf("path exceeds maximum length of %d", maxPathLen)
	}
	if len(req.Referrer) > maxReferrerLen {
		return fmt.Errorf("referrer exceeds maximum length of %d", maxReferrerLen)
	}
	return nil
}

// Collect handles incoming page-view reports from the front end.
func (h *Handler) Collect(c echo.Context) error {
	if !h.collectLimiter.allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}
	var req CollectRequest
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if err := validateCollectRequest(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	visit := Visit{
		IPHash:    HashIP(c.RealIP()),
		Path:      req.Path,
		Referrer:  req.Referrer,
		Timestamp: time.Now(),
	}
	if err := h.store.InsertVisit(visit); err != nil {
		c.Logger().Errorf("analytics: insert visit: %v", err)
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats returns aggregated view counts; ?days=N selects the window
// (default 30, max 365).
func (h *Handler) Stats(c echo.Context) error {
	days := 30
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "days must be between 1 and 365"})
		}
		days = n
	}
	stats, err := h.store.Stats(days)
	if err != nil {
		c.Logger().Errorf("analytics: stats: %v", err)
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, stats)
}
