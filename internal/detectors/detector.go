// Package detectors implements the arbitrage detector suite. Every
// detector consumes the full market snapshot and returns opportunities;
// all are pure except TimeLag, which carries price history across
// iterations and must run in the engine's single-threaded step.
package detectors

import (
	"context"
	"fmt"

	"github.com/quantfish/crossarb/pkg/types"
)

// Detector discovers mispricings in a market snapshot. Detect must not
// mutate the markets it is given.
type Detector interface {
	Name() string
	Detect(ctx context.Context, markets []types.Market) ([]types.Opportunity, error)
}

// costBPS returns gross * (feeBPS + slippageBPS) / 10000, the modeled
// round-trip execution cost on a gross notional.
func costBPS(gross, feeBPS, slippageBPS float64) float64 {
	return gross * (feeBPS + slippageBPS) / 10000.0
}

func fmtPrice(p float64) string {
	return fmt.Sprintf("%.4f", p)
}
