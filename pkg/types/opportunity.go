package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// OpportunityType tags the detector family that produced an opportunity.
type OpportunityType string

const (
	OpportunityParity       OpportunityType = "PARITY"
	OpportunityLadder       OpportunityType = "LADDER"
	OpportunityDuplicate    OpportunityType = "DUPLICATE"
	OpportunityExclusiveSum OpportunityType = "EXCLUSIVE_SUM"
	OpportunityTimeLag      OpportunityType = "TIMELAG"
	OpportunityConsistency  OpportunityType = "CONSISTENCY"
	OpportunityComposite    OpportunityType = "COMPOSITE"
)

// Side is the direction of a trade action.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeAction is one leg of an opportunity.
type TradeAction struct {
	MarketID   string
	OutcomeID  string
	Side       Side
	Amount     float64
	LimitPrice float64 // in [0,1]
}

// Opportunity is a detected mispricing with the legs needed to capture it.
type Opportunity struct {
	Type        OpportunityType
	MarketIDs   []string
	Description string
	NetEdge     float64 // expected profit per unit after modeled costs, > 0
	Actions     []TradeAction
	DetectedAt  time.Time
	Metadata    map[string]string
}

// DerivedID returns a deterministic id computed from the sorted tuple of
// (type, market ids, outcome ids, sides, prices rounded to 4 decimals).
// The id is stable under permutation of markets and actions, which makes
// it usable for cross-restart deduplication.
func (o *Opportunity) DerivedID() string {
	marketIDs := make([]string, len(o.MarketIDs))
	copy(marketIDs, o.MarketIDs)
	sort.Strings(marketIDs)

	legs := make([]string, len(o.Actions))
	for i, a := range o.Actions {
		legs[i] = fmt.Sprintf("%s|%s|%s|%.4f", a.MarketID, a.OutcomeID, a.Side, a.LimitPrice)
	}
	sort.Strings(legs)

	h := sha256.New()
	h.Write([]byte(string(o.Type)))
	h.Write([]byte("\n"))
	h.Write([]byte(strings.Join(marketIDs, "\n")))
	h.Write([]byte("\n"))
	h.Write([]byte(strings.Join(legs, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// GrossEdge returns the pre-cost edge when recorded in metadata, falling
// back to NetEdge otherwise.
func (o *Opportunity) GrossEdge() float64 {
	if v, ok := o.Metadata["gross_edge"]; ok {
		var g float64
		if _, err := fmt.Sscanf(v, "%f", &g); err == nil {
			return g
		}
	}
	return o.NetEdge
}

// String returns a short human-readable representation.
func (o *Opportunity) String() string {
	return fmt.Sprintf("Opportunity[%s] %s edge=%.4f legs=%d",
		o.Type, strings.Join(o.MarketIDs, ","), o.NetEdge, len(o.Actions))
}
