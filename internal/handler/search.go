package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/f17antonio/tickets-search/internal/model"
	"github.com/f17antonio/tickets-search/internal/search"
)

var (
	searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "searches_total",
		Help: "The total number of search requests by outcome",
	}, []string{"outcome"})
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "search_duration_seconds",
		Help:    "End-to-end search latency",
		Buckets: prometheus.DefBuckets,
	})
)

// SearchHandler serves itinerary searches.
type SearchHandler struct {
	Engine *search.Engine
	Log    *slog.Logger
}

// NewSearchHandler constructs a SearchHandler and panics if the engine is nil.
func NewSearchHandler(engine *search.Engine, log *slog.Logger) *SearchHandler {
	if engine == nil {
		panic("nil engine passed to NewSearchHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SearchHandler{Engine: engine, Log: log}
}

// Search handles POST /search. A malformed body or an unparseable departure
// date is the caller's error (400); a store failure is reported as a
// service-level 503, distinct from data errors.
func (h *SearchHandler) Search(c echo.Context) error {
	var req model.SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "invalid_body",
			"message": "body must be a JSON search object",
		})
	}

	start := time.Now()
	result, err := h.Engine.Search(c.Request().Context(), req)
	searchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, search.ErrInvalidDate) {
			searches.WithLabelValues("invalid_date").Inc()
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "invalid_date",
				"message": "departure_date must be YYYY-MM-DD",
			})
		}
		searches.WithLabelValues("store_error").Inc()
		h.Log.Error("search failed",
			"departure_code", req.DepartureCode,
			"arrival_code", req.ArrivalCode,
			"error", err,
		)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"error": "store_unavailable",
		})
	}

	searches.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, result)
}
