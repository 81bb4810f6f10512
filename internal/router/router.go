// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/f17antonio/tickets-search/internal/handler"
)

// RegisterRoutes registers the operational endpoints: liveness, readiness
// and the Prometheus exposition. These bypass rate limiting so probes and
// scrapes are never throttled.
func RegisterRoutes(e *echo.Echo, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(rdb))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAPI registers the ingestion and search endpoints behind the given
// rate limiting middleware.
func RegisterAPI(e *echo.Echo, t *handler.TicketHandler, s *handler.SearchHandler, limiter echo.MiddlewareFunc) {
	api := e.Group("", limiter)
	api.POST("/batch_insert", t.BatchInsert)
	api.POST("/search", s.Search)
}
