// Package queue defines message payloads exchanged over the message broker
// and the publisher that sends them.
package queue

// TicketsIngestedEvent is published after each batch ingestion. It carries
// enough for downstream consumers (index rebuilders, analytics) to react
// without querying the store.
type TicketsIngestedEvent struct {
	BatchID    string `json:"batch_id"`
	Inserted   int    `json:"inserted"`
	Failed     int    `json:"failed"`
	ReceivedAt string `json:"received_at"`
}
