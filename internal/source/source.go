// Package source defines the venue ingestion and notification contracts.
// Venue-specific HTTP clients implement MarketSource elsewhere; the core
// only sees normalized snapshots.
package source

import (
	"context"

	"github.com/quantfish/crossarb/pkg/types"
)

// Metadata describes a venue's execution characteristics.
type Metadata struct {
	Venue             types.Venue
	Name              string
	FeeBPS            float64
	TickSize          float64
	SupportsOrderbook bool
}

// MarketSource produces normalized market snapshots for one venue.
// Implementations must normalize prices to [0,1], tag every market with
// the venue, and drop impossible markets (no outcomes, already expired)
// before returning.
type MarketSource interface {
	Fetch(ctx context.Context) ([]types.Market, error)
	Metadata() Metadata
}

// Notifier delivers human-readable summaries. Implementations must not
// fail the engine loop on transport errors; log and continue.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
