package types

import (
	"fmt"
	"strings"
	"time"
)

// Venue identifies which execution venue a market belongs to.
// Venue A permits short sales to open; venue B is long-only.
type Venue string

const (
	VenueA Venue = "A"
	VenueB Venue = "B"
)

// Comparator is the direction of a threshold market question.
type Comparator string

const (
	ComparatorGT  Comparator = ">"
	ComparatorGTE Comparator = ">="
	ComparatorLT  Comparator = "<"
	ComparatorLTE Comparator = "<="
)

// IsUpward reports whether the comparator is in the {>, >=} family.
func (c Comparator) IsUpward() bool {
	return c == ComparatorGT || c == ComparatorGTE
}

// IsDownward reports whether the comparator is in the {<, <=} family.
func (c Comparator) IsDownward() bool {
	return c == ComparatorLT || c == ComparatorLTE
}

// Outcome is a single tradeable outcome of a market.
type Outcome struct {
	ID          string
	Label       string
	Price       float64 // normalized to [0,1]
	Liquidity   float64
	LastUpdated time.Time
}

// Market is a normalized snapshot of a market on either venue.
// Snapshots are ephemeral: the engine rebuilds them on every fetch.
type Market struct {
	ID               string // globally unique, venue-prefixed
	Question         string
	Outcomes         []Outcome
	EndDate          time.Time // zero value means unknown
	Liquidity        float64
	Volume           float64
	Tags             []string
	Description      string
	Comparator       Comparator // empty means no threshold structure
	Threshold        float64
	HasThreshold     bool
	Asset            string
	ResolutionSource string
	Venue            Venue
}

// Validate checks the market invariants: outcomes non-empty, every price
// in [0,1], liquidity and volume non-negative. The outcome price sum is
// deliberately NOT validated; deviations from 1 are detectable signals.
func (m *Market) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("market has empty id")
	}
	if len(m.Outcomes) == 0 {
		return fmt.Errorf("market %s has no outcomes", m.ID)
	}
	for _, o := range m.Outcomes {
		if o.Price < 0 || o.Price > 1 {
			return fmt.Errorf("market %s outcome %s price %f out of [0,1]", m.ID, o.ID, o.Price)
		}
	}
	if m.Liquidity < 0 {
		return fmt.Errorf("market %s has negative liquidity", m.ID)
	}
	if m.Volume < 0 {
		return fmt.Errorf("market %s has negative volume", m.ID)
	}
	return nil
}

// IsBinary reports whether the market has exactly two outcomes labeled
// yes/no (case-insensitive).
func (m *Market) IsBinary() bool {
	if len(m.Outcomes) != 2 {
		return false
	}
	return m.YesOutcome() != nil && m.NoOutcome() != nil
}

// OutcomeByLabel returns the first outcome whose label matches
// case-insensitively, or nil.
func (m *Market) OutcomeByLabel(label string) *Outcome {
	for i := range m.Outcomes {
		if strings.EqualFold(m.Outcomes[i].Label, label) {
			return &m.Outcomes[i]
		}
	}
	return nil
}

// OutcomeByID returns the outcome with the given id, or nil.
func (m *Market) OutcomeByID(id string) *Outcome {
	for i := range m.Outcomes {
		if m.Outcomes[i].ID == id {
			return &m.Outcomes[i]
		}
	}
	return nil
}

// YesOutcome returns the YES outcome of a binary market, or nil.
func (m *Market) YesOutcome() *Outcome { return m.OutcomeByLabel("yes") }

// NoOutcome returns the NO outcome of a binary market, or nil.
func (m *Market) NoOutcome() *Outcome { return m.OutcomeByLabel("no") }

// PrimaryOutcome returns the YES outcome for binary markets and the first
// outcome otherwise. Price comparisons across related markets use this.
func (m *Market) PrimaryOutcome() *Outcome {
	if y := m.YesOutcome(); y != nil {
		return y
	}
	if len(m.Outcomes) == 0 {
		return nil
	}
	return &m.Outcomes[0]
}

// OutcomeSum returns the sum of all outcome prices. It is not forced to 1.
func (m *Market) OutcomeSum() float64 {
	sum := 0.0
	for _, o := range m.Outcomes {
		sum += o.Price
	}
	return sum
}

// Lookup maps market ids to market snapshots for one iteration.
type Lookup map[string]*Market

// BuildLookup indexes a snapshot slice by market id.
func BuildLookup(markets []Market) Lookup {
	lookup := make(Lookup, len(markets))
	for i := range markets {
		lookup[markets[i].ID] = &markets[i]
	}
	return lookup
}
