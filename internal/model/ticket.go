// Package model defines the records and request/response payloads exchanged
// between the HTTP boundary, the search engine and the ticket store.
package model

// Ticket is one scheduled departure/arrival leg with a price. Tickets are
// immutable once inserted: the store never mutates or deletes them, and
// re-inserting the same id simply overwrites the record with identical
// index state.
//
// Fields:
//
//	ID            – caller-supplied unique identifier.
//	DepartureCode – origin airport/location code (opaque string).
//	ArrivalCode   – destination airport/location code (opaque string).
//	DepartureTime – departure as Unix seconds.
//	ArrivalTime   – arrival as Unix seconds. Callers are expected to keep
//	                DepartureTime < ArrivalTime; the store does not validate it.
//	Price         – fare in the smallest currency unit.
type Ticket struct {
	ID            string `json:"id"`
	DepartureCode string `json:"departure_code"`
	ArrivalCode   string `json:"arrival_code"`
	DepartureTime int64  `json:"departure_time"`
	ArrivalTime   int64  `json:"arrival_time"`
	Price         int64  `json:"price"`
}

// TicketBatch is the envelope of a batch ingestion request.
type TicketBatch struct {
	Tickets []Ticket `json:"tickets"`
}

// SearchRequest describes an itinerary search: origin, destination, the
// calendar date (UTC, "YYYY-MM-DD") whose one-day window departures must
// fall into, and the maximum number of solutions to return.
type SearchRequest struct {
	DepartureCode string `json:"departure_code"`
	ArrivalCode   string `json:"arrival_code"`
	DepartureDate string `json:"departure_date"`
	Limit         int    `json:"limit"`
}

// Solution is one itinerary in a search response: the ordered ticket ids
// (one leg, or inbound then outbound for a transfer) and the summed price
// of all legs. Solutions are built fresh per query and never persisted.
type Solution struct {
	TicketIDs []string `json:"ticket_ids"`
	Price     int64    `json:"price"`
}

// SearchResult is the full search response, solutions ordered by
// non-decreasing price.
type SearchResult struct {
	Solutions []Solution `json:"solutions"`
}
