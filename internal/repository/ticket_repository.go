// Package repository contains data access logic for tickets. The store keeps
// three structures per ticket in Redis:
//
//	times_<departure_code>            ZSET   member <arrival_code>_<arrival_time>,
//	                                         score = departure_time (the time index)
//	<arrival_code>_<departure_time>   STRING ticket id (the departure-pointer index)
//	ticket_<id>                       HASH   full record, six fields
//
// The time index makes "all departures from X within [t1,t2]" a score-range
// query instead of a full scan. The departure-pointer index resolves a
// specific leg back to its record; two tickets sharing the same
// (arrival_code, departure_time) overwrite each other's pointer, so the most
// recently inserted one wins. That last-write-wins policy is deliberate:
// ingestion is idempotent by overwrite and the key contract stays a point
// lookup.
package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/f17antonio/tickets-search/internal/model"
)

// timesKey names the per-origin time index.
func timesKey(departureCode string) string {
	return "times_" + departureCode
}

// pointerKey names the departure-pointer entry for one leg.
func pointerKey(arrivalCode string, departureTime int64) string {
	return arrivalCode + "_" + strconv.FormatInt(departureTime, 10)
}

// ticketKey names the record hash for a ticket id.
func ticketKey(id string) string {
	return "ticket_" + id
}

// FormatArrivalPointer encodes (arrival_code, arrival_time) into the opaque
// member stored in the time index.
func FormatArrivalPointer(arrivalCode string, arrivalTime int64) string {
	return arrivalCode + "_" + strconv.FormatInt(arrivalTime, 10)
}

// ParseArrivalPointer decodes a time-index member back into its arrival code
// and arrival time. The split is on the last underscore so arrival codes
// containing underscores stay intact. A malformed member is reported as
// ErrCorruptTicket.
func ParseArrivalPointer(member string) (string, int64, error) {
	i := strings.LastIndexByte(member, '_')
	if i <= 0 || i == len(member)-1 {
		return "", 0, fmt.Errorf("arrival pointer %q: %w", member, ErrCorruptTicket)
	}
	arrivalTime, err := strconv.ParseInt(member[i+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("arrival pointer %q has a non-numeric time: %w", member, ErrCorruptTicket)
	}
	return member[:i], arrivalTime, nil
}

// TimeIndexEntry is one row of a time-index range query: the opaque arrival
// pointer plus the departure time that scored it.
type TimeIndexEntry struct {
	ArrivalPointer string
	DepartureTime  int64
}

// TicketRepo manages persistence for tickets. It holds no state besides the
// Redis client handed to it; every method takes a context and performs short
// synchronous round trips against the store.
type TicketRepo struct {
	rdb *redis.Client
}

// NewTicketRepo constructs a TicketRepo and panics if the client is nil.
func NewTicketRepo(rdb *redis.Client) *TicketRepo {
	if rdb == nil {
		panic("nil redis client passed to NewTicketRepo")
	}
	return &TicketRepo{rdb: rdb}
}

// Insert writes the full record, the time-index entry and the departure
// pointer for a ticket. The three writes go through one MULTI/EXEC pipeline
// so a concurrent search never observes a time-index entry whose pointer or
// record is missing. Within the unit the record is written first, then the
// time index, then the pointer.
func (r *TicketRepo) Insert(ctx context.Context, t *model.Ticket) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, ticketKey(t.ID), map[string]interface{}{
			"id":             t.ID,
			"departure_code": t.DepartureCode,
			"arrival_code":   t.ArrivalCode,
			"departure_time": strconv.FormatInt(t.DepartureTime, 10),
			"arrival_time":   strconv.FormatInt(t.ArrivalTime, 10),
			"price":          strconv.FormatInt(t.Price, 10),
		})
		pipe.ZAdd(ctx, timesKey(t.DepartureCode), redis.Z{
			Score:  float64(t.DepartureTime),
			Member: FormatArrivalPointer(t.ArrivalCode, t.ArrivalTime),
		})
		pipe.Set(ctx, pointerKey(t.ArrivalCode, t.DepartureTime), t.ID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert ticket %s: %w", t.ID, err)
	}
	return nil
}

// DeparturesWithin returns every time-index entry for the departure code
// whose departure time falls in [start, end], both ends inclusive. Entries
// come back in ascending departure-time order, which keeps search results
// deterministic across identical queries. The query costs O(log n + k) in
// the size of that code's index, never a full scan.
func (r *TicketRepo) DeparturesWithin(ctx context.Context, departureCode string, start, end int64) ([]TimeIndexEntry, error) {
	zs, err := r.rdb.ZRangeByScoreWithScores(ctx, timesKey(departureCode), &redis.ZRangeBy{
		Min: strconv.FormatInt(start, 10),
		Max: strconv.FormatInt(end, 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range departures from %s: %w", departureCode, err)
	}
	entries := make([]TimeIndexEntry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, TimeIndexEntry{
			ArrivalPointer: member,
			DepartureTime:  int64(z.Score),
		})
	}
	return entries, nil
}

// TicketByArrivalAndTime resolves the departure pointer for
// (arrival_code, departure_time) and fetches the full record. A missing
// pointer or record is reported as ErrTicketNotFound: either one means the
// indices and records disagree for this leg.
func (r *TicketRepo) TicketByArrivalAndTime(ctx context.Context, arrivalCode string, departureTime int64) (*model.Ticket, error) {
	key := pointerKey(arrivalCode, departureTime)
	id, err := r.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("departure pointer %s: %w", key, ErrTicketNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve departure pointer %s: %w", key, err)
	}
	return r.TicketByID(ctx, id)
}

// TicketByID fetches and decodes one ticket record. An absent hash is
// ErrTicketNotFound; a hash with missing or unparseable required fields is
// ErrCorruptTicket. Both fail only this lookup, never the process.
func (r *TicketRepo) TicketByID(ctx context.Context, id string) (*model.Ticket, error) {
	fields, err := r.rdb.HGetAll(ctx, ticketKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch ticket %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("ticket %s: %w", id, ErrTicketNotFound)
	}

	t := &model.Ticket{}
	if t.ID, err = requireField(fields, "id"); err != nil {
		return nil, fmt.Errorf("ticket %s: %w", id, err)
	}
	if t.DepartureCode, err = requireField(fields, "departure_code"); err != nil {
		return nil, fmt.Errorf("ticket %s: %w", id, err)
	}
	if t.ArrivalCode, err = requireField(fields, "arrival_code"); err != nil {
		return nil, fmt.Errorf("ticket %s: %w", id, err)
	}
	if t.DepartureTime, err = requireInt(fields, "departure_time"); err != nil {
		return nil, fmt.Errorf("ticket %s: %w", id, err)
	}
	if t.ArrivalTime, err = requireInt(fields, "arrival_time"); err != nil {
		return nil, fmt.Errorf("ticket %s: %w", id, err)
	}
	if t.Price, err = requireInt(fields, "price"); err != nil {
		return nil, fmt.Errorf("ticket %s: %w", id, err)
	}
	return t, nil
}

// requireField reads a mandatory hash field, classifying absence as a
// corrupt record.
func requireField(fields map[string]string, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == "" {
		return "", fmt.Errorf("missing field %q: %w", key, ErrCorruptTicket)
	}
	return v, nil
}

// requireInt reads a mandatory integer hash field.
func requireInt(fields map[string]string, key string) (int64, error) {
	s, err := requireField(fields, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q is not an integer: %w", key, ErrCorruptTicket)
	}
	return n, nil
}
