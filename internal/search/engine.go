// Package search composes itineraries out of ticket-store lookups. A search
// walks the origin's one-day departure window, keeps tickets that land at
// the destination as direct itineraries, expands every other departure into
// one-transfer candidates, ranks everything by total price and truncates to
// the requested limit. Hop depth is hard-capped at two legs.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/f17antonio/tickets-search/internal/model"
	"github.com/f17antonio/tickets-search/internal/repository"
)

// Window defaults, in seconds. An onward leg counts as a valid connection
// when it departs between three and twenty-three hours after the inbound
// arrival; any later and it belongs to the next day's itinerary.
const (
	DefaultDepartureWindow int64 = 86400
	DefaultMinConnection   int64 = 10800
	DefaultMaxConnection   int64 = 82800
)

// dateLayout is the only accepted departure_date format.
const dateLayout = "2006-01-02"

// ErrInvalidDate is returned when a departure date does not parse as
// "YYYY-MM-DD". It is a client input error, not a system fault.
var ErrInvalidDate = errors.New("invalid departure date")

var candidatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "search_candidates_skipped_total",
	Help: "The total number of itinerary candidates dropped because their index entry or record could not be resolved",
})

// Options tunes the search windows. Zero values fall back to the defaults
// above; the limits are exposed as configuration because a generalization to
// more hops or looser connections is a natural extension point.
type Options struct {
	DepartureWindow int64 // width of the origin window starting at midnight UTC
	MinConnection   int64 // earliest onward departure after an inbound arrival
	MaxConnection   int64 // latest onward departure after an inbound arrival
}

// Engine answers itinerary searches against a ticket store. It has no state
// of its own beyond its dependencies; Search is a pure synchronous function
// of the store's contents.
type Engine struct {
	repo *repository.TicketRepo
	opts Options
	log  *slog.Logger
}

// NewEngine constructs an Engine, filling unset options with defaults. It
// panics if the repository is nil.
func NewEngine(repo *repository.TicketRepo, opts Options, log *slog.Logger) *Engine {
	if repo == nil {
		panic("nil ticket repository passed to NewEngine")
	}
	if opts.DepartureWindow <= 0 {
		opts.DepartureWindow = DefaultDepartureWindow
	}
	if opts.MinConnection <= 0 {
		opts.MinConnection = DefaultMinConnection
	}
	if opts.MaxConnection <= 0 {
		opts.MaxConnection = DefaultMaxConnection
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{repo: repo, opts: opts, log: log}
}

// itinerary is one discovered leg combination, kept as full tickets until
// ranking so prices can be summed.
type itinerary struct {
	legs []*model.Ticket
}

// transferCandidate is an origin departure that landed somewhere other than
// the destination: an intermediate stop worth probing for onward legs.
type transferCandidate struct {
	code          string // intermediate stop
	arrivalTime   int64  // when the inbound leg lands there
	departureTime int64  // when the inbound leg left the origin
}

// Search returns the cheapest itineraries from the request's origin to its
// destination departing within one day of the requested date. Direct
// itineraries are discovered before transfer itineraries and window entries
// arrive in departure-time order, so equal-price results keep a stable,
// reproducible order across identical queries.
//
// A candidate whose index entry or record cannot be resolved is logged,
// counted and skipped; only store-level failures abort the whole search.
func (e *Engine) Search(ctx context.Context, req model.SearchRequest) (model.SearchResult, error) {
	t0, err := parseDepartureDate(req.DepartureDate)
	if err != nil {
		return model.SearchResult{}, err
	}

	result := model.SearchResult{Solutions: []model.Solution{}}
	if req.Limit <= 0 {
		return result, nil
	}

	entries, err := e.repo.DeparturesWithin(ctx, req.DepartureCode, t0, t0+e.opts.DepartureWindow)
	if err != nil {
		return model.SearchResult{}, err
	}

	var found []itinerary
	var candidates []transferCandidate

	for _, entry := range entries {
		arrivalCode, arrivalTime, err := repository.ParseArrivalPointer(entry.ArrivalPointer)
		if err != nil {
			e.skip(req.DepartureCode, entry.ArrivalPointer, err)
			continue
		}
		if arrivalCode == req.ArrivalCode {
			leg, err := e.repo.TicketByArrivalAndTime(ctx, arrivalCode, entry.DepartureTime)
			if err != nil {
				if !isDataError(err) {
					return model.SearchResult{}, err
				}
				e.skip(req.DepartureCode, entry.ArrivalPointer, err)
				continue
			}
			found = append(found, itinerary{legs: []*model.Ticket{leg}})
			continue
		}
		// An intermediate equal to the destination never reaches this
		// branch, so it is never expanded further.
		candidates = append(candidates, transferCandidate{
			code:          arrivalCode,
			arrivalTime:   arrivalTime,
			departureTime: entry.DepartureTime,
		})
	}

	for _, cand := range candidates {
		transfers, err := e.transfers(ctx, req.ArrivalCode, cand)
		if err != nil {
			return model.SearchResult{}, err
		}
		found = append(found, transfers...)
	}

	result.Solutions = rank(found, req.Limit)
	return result, nil
}

// transfers probes one intermediate stop for onward legs to the destination
// within the connection window and builds two-leg itineraries, inbound then
// outbound. Unresolvable legs skip only their own combination.
func (e *Engine) transfers(ctx context.Context, destination string, cand transferCandidate) ([]itinerary, error) {
	start := cand.arrivalTime + e.opts.MinConnection
	end := cand.arrivalTime + e.opts.MaxConnection
	entries, err := e.repo.DeparturesWithin(ctx, cand.code, start, end)
	if err != nil {
		return nil, err
	}

	var found []itinerary
	for _, entry := range entries {
		arrivalCode, _, err := repository.ParseArrivalPointer(entry.ArrivalPointer)
		if err != nil {
			e.skip(cand.code, entry.ArrivalPointer, err)
			continue
		}
		if arrivalCode != destination {
			continue
		}
		inbound, err := e.repo.TicketByArrivalAndTime(ctx, cand.code, cand.departureTime)
		if err != nil {
			if !isDataError(err) {
				return nil, err
			}
			e.skip(cand.code, entry.ArrivalPointer, err)
			continue
		}
		outbound, err := e.repo.TicketByArrivalAndTime(ctx, destination, entry.DepartureTime)
		if err != nil {
			if !isDataError(err) {
				return nil, err
			}
			e.skip(cand.code, entry.ArrivalPointer, err)
			continue
		}
		found = append(found, itinerary{legs: []*model.Ticket{inbound, outbound}})
	}
	return found, nil
}

// rank sums each itinerary's leg prices, sorts ascending by total price with
// a stable sort so discovery order breaks ties, and truncates to limit.
func rank(found []itinerary, limit int) []model.Solution {
	solutions := make([]model.Solution, 0, len(found))
	for _, it := range found {
		var price int64
		ids := make([]string, 0, len(it.legs))
		for _, leg := range it.legs {
			price += leg.Price
			ids = append(ids, leg.ID)
		}
		solutions = append(solutions, model.Solution{TicketIDs: ids, Price: price})
	}
	sort.SliceStable(solutions, func(i, j int) bool {
		return solutions[i].Price < solutions[j].Price
	})
	if limit < len(solutions) {
		solutions = solutions[:limit]
	}
	return solutions
}

// skip records a dropped itinerary candidate. The search keeps going: one
// bad record must not empty the whole response.
func (e *Engine) skip(departureCode, pointer string, err error) {
	candidatesSkipped.Inc()
	e.log.Warn("skipping itinerary candidate",
		"departure_code", departureCode,
		"arrival_pointer", pointer,
		"error", err,
	)
}

// isDataError reports whether an error concerns a single record or index
// entry, as opposed to the store itself being unreachable.
func isDataError(err error) bool {
	return errors.Is(err, repository.ErrTicketNotFound) || errors.Is(err, repository.ErrCorruptTicket)
}

// parseDepartureDate anchors a "YYYY-MM-DD" date to midnight UTC and returns
// it as Unix seconds.
func parseDepartureDate(s string) (int64, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, fmt.Errorf("departure date %q: %w", s, ErrInvalidDate)
	}
	return d.Unix(), nil
}
