package repository

import (
	"context"

	"ChartServer/internal/market"
)

// Destination names one of the two frame streams a consumer can subscribe to.
type Destination string

const (
	DestinationTick   Destination = "tick"
	DestinationCandle Destination = "candle"
)

// IsValidDestination reports whether d names a known frame stream.
func IsValidDestination(d Destination) bool {
	return d == DestinationTick || d == DestinationCandle
}

// Publisher hands encoded frames to the external transport. Fire-and-forget:
// the core assumes no acknowledgement contract.
type Publisher interface {
	Publish(ctx context.Context, symbol market.Symbol, dest Destination, frame string) error
	Close() error
}

// Metrics records operational counters for the pipeline.
type Metrics interface {
	RecordFrameSent(backend, dest, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
