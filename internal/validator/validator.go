// Package validator enforces the strict A+B execution law: in dual-venue
// mode every opportunity must span exactly one venue-A market and one
// venue-B market, and no venue-B leg may sell without inventory.
package validator

import (
	"fmt"
	"sort"

	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// Validator is a pure function of (opportunity, market lookup, positions).
// The optional type whitelist restricts which detector families may trade
// cross-venue; an empty whitelist permits all.
type Validator struct {
	allowedTypes map[types.OpportunityType]bool
	logger       *zap.Logger
}

// New creates a strict A+B validator. A nil or empty whitelist allows
// every opportunity type.
func New(whitelist []types.OpportunityType, logger *zap.Logger) *Validator {
	var allowed map[types.OpportunityType]bool
	if len(whitelist) > 0 {
		allowed = make(map[types.OpportunityType]bool, len(whitelist))
		for _, t := range whitelist {
			allowed[t] = true
		}
	}
	return &Validator{allowedTypes: allowed, logger: logger}
}

// Validate applies the strict A+B rules in order and returns the first
// failure. Positions are the broker's current holdings; venue-B SELL legs
// must be covered by them.
func (v *Validator) Validate(opp *types.Opportunity, lookup types.Lookup, positions types.Positions) types.ValidationResult {
	if v.allowedTypes != nil && !v.allowedTypes[opp.Type] {
		return v.reject(opp, types.ReasonForbiddenOpportunityType,
			fmt.Sprintf("type %s is not whitelisted for cross-venue execution", opp.Type), nil)
	}

	if len(opp.Actions) < 2 {
		return v.reject(opp, types.ReasonInsufficientVenues,
			fmt.Sprintf("%d action(s) cannot span two venues", len(opp.Actions)), nil)
	}

	venueSet := make(map[types.Venue]bool)
	for _, a := range opp.Actions {
		m, ok := lookup[a.MarketID]
		if !ok {
			return v.reject(opp, types.ReasonInsufficientVenues,
				fmt.Sprintf("market %s not in snapshot", a.MarketID), nil)
		}
		venueSet[m.Venue] = true
	}

	venues := make([]types.Venue, 0, len(venueSet))
	for venue := range venueSet {
		venues = append(venues, venue)
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i] < venues[j] })

	switch {
	case len(venues) > 2:
		return v.reject(opp, types.ReasonTooManyVenues,
			fmt.Sprintf("opportunity touches %d venues", len(venues)), venues)
	case len(venues) < 2:
		return v.reject(opp, types.ReasonSingleVenueType,
			fmt.Sprintf("all legs on venue %s", venues[0]), venues)
	case !venueSet[types.VenueA] || !venueSet[types.VenueB]:
		return v.reject(opp, types.ReasonSingleVenueType,
			"legs must span one venue-A and one venue-B market", venues)
	}

	// Venue B is long-only: a SELL there must be covered by inventory.
	for _, a := range opp.Actions {
		m := lookup[a.MarketID]
		if m.Venue != types.VenueB || a.Side != types.SideSell {
			continue
		}
		held := positions[types.PositionKey{MarketID: a.MarketID, OutcomeID: a.OutcomeID}]
		if held <= 0 || a.Amount > held {
			return v.reject(opp, types.ReasonForbiddenAction,
				fmt.Sprintf("SELL %.4f of %s/%s on long-only venue with inventory %.4f",
					a.Amount, a.MarketID, a.OutcomeID, held), venues)
		}
	}

	return types.ValidationResult{Allowed: true, VenuesUsed: venues}
}

func (v *Validator) reject(opp *types.Opportunity, reason types.ValidationReason, detail string, venues []types.Venue) types.ValidationResult {
	v.logger.Debug("validation-rejected",
		zap.String("opportunity-type", string(opp.Type)),
		zap.String("reason", string(reason)),
		zap.String("detail", detail))
	ValidationsRejectedTotal.WithLabelValues(string(reason)).Inc()
	return types.ValidationResult{Reason: reason, Detail: detail, VenuesUsed: venues}
}
