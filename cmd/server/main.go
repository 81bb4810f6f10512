package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/f17antonio/tickets-search/internal/config"
	"github.com/f17antonio/tickets-search/internal/handler"
	"github.com/f17antonio/tickets-search/internal/middleware"
	"github.com/f17antonio/tickets-search/internal/queue"
	"github.com/f17antonio/tickets-search/internal/repository"
	"github.com/f17antonio/tickets-search/internal/router"
	"github.com/f17antonio/tickets-search/internal/search"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	// Redis is the system of record; without it there is nothing to serve.
	rdb, err := config.NewRedisClient()
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	repo := repository.NewTicketRepo(rdb)
	engine := search.NewEngine(repo, search.Options{
		DepartureWindow: cfg.Search.DepartureWindow,
		MinConnection:   cfg.Search.MinConnection,
		MaxConnection:   cfg.Search.MaxConnection,
	}, logger)

	var publisher queue.Publisher
	if cfg.AMQP.URL != "" {
		publisher = queue.NewRabbitPublisher(cfg.AMQP.URL, logger)
	}

	e := echo.New()
	e.HideBanner = true

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)
	router.RegisterRoutes(e, rdb)
	router.RegisterAPI(e,
		handler.NewTicketHandler(repo, publisher, logger),
		handler.NewSearchHandler(engine, logger),
		limiter,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
