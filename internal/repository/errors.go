// Package repository implements the ticket store on top of Redis. This file
// defines the sentinel errors shared by its lookups. Higher layers compare
// against them with errors.Is to separate per-record data problems (which
// are isolated to a single lookup or itinerary candidate) from store-level
// failures (which fail the whole request).
package repository

import "errors"

// ErrTicketNotFound is returned when a departure pointer or a ticket record
// is missing. During a search both cases indicate an index/record
// inconsistency for that one candidate and must be surfaced, not silently
// defaulted.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrCorruptTicket is returned when a stored record or index entry cannot be
// decoded: a required hash field is missing or unparseable, or a time-index
// member does not carry an arrival time. A corrupt record fails only the
// lookup that touched it.
var ErrCorruptTicket = errors.New("corrupt ticket record")
