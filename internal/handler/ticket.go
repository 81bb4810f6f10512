// Package handler contains the HTTP boundary layer: it decodes JSON request
// bodies, invokes the ticket store or the search engine, and encodes JSON
// responses. All business logic lives below it.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/f17antonio/tickets-search/internal/model"
	"github.com/f17antonio/tickets-search/internal/queue"
	"github.com/f17antonio/tickets-search/internal/repository"
)

var (
	ticketsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_inserted_total",
		Help: "The total number of tickets written to the store",
	})
	ticketsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_insert_failures_total",
		Help: "The total number of ticket inserts that failed",
	})
)

// TicketHandler serves batch ingestion. Publisher may be nil, in which case
// no ingestion events are emitted.
type TicketHandler struct {
	Repo      *repository.TicketRepo
	Publisher queue.Publisher
	Log       *slog.Logger
}

// NewTicketHandler constructs a TicketHandler and panics if the repository
// is nil.
func NewTicketHandler(repo *repository.TicketRepo, pub queue.Publisher, log *slog.Logger) *TicketHandler {
	if repo == nil {
		panic("nil repository passed to NewTicketHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &TicketHandler{Repo: repo, Publisher: pub, Log: log}
}

// BatchInsert handles POST /batch_insert. The body is a JSON object with a
// "tickets" array; each record is inserted independently, so one failing
// record never aborts the rest of the batch. The response acknowledges the
// batch with per-record outcome counts.
func (h *TicketHandler) BatchInsert(c echo.Context) error {
	var batch model.TicketBatch
	if err := c.Bind(&batch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "invalid_body",
			"message": "body must be a JSON object with a tickets array",
		})
	}

	ctx := c.Request().Context()
	inserted, failed := 0, 0
	for i := range batch.Tickets {
		t := &batch.Tickets[i]
		if err := h.Repo.Insert(ctx, t); err != nil {
			failed++
			ticketsFailed.Inc()
			h.Log.Warn("ticket insert failed", "ticket_id", t.ID, "error", err)
			continue
		}
		inserted++
		ticketsInserted.Inc()
	}

	if h.Publisher != nil {
		event := queue.TicketsIngestedEvent{
			BatchID:    uuid.NewString(),
			Inserted:   inserted,
			Failed:     failed,
			ReceivedAt: time.Now().UTC().Format(time.RFC3339),
		}
		// Best effort: the publisher logs its own failures.
		_ = h.Publisher.PublishTicketsIngested(ctx, event)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   "success",
		"inserted": inserted,
		"failed":   failed,
	})
}
