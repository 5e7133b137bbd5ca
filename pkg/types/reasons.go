package types

// ValidationReason is the closed set of strict A+B rejection reasons.
type ValidationReason string

const (
	ReasonInsufficientVenues       ValidationReason = "insufficient_venues"
	ReasonTooManyVenues            ValidationReason = "too_many_venues"
	ReasonSingleVenueType          ValidationReason = "single_venue_type"
	ReasonForbiddenAction          ValidationReason = "forbidden_action"
	ReasonForbiddenOpportunityType ValidationReason = "forbidden_opportunity_type"
)

// ValidationResult records the outcome of the strict A+B validator.
type ValidationResult struct {
	Allowed    bool
	Reason     ValidationReason // empty when allowed
	Detail     string
	VenuesUsed []Venue
}

// RiskReason is the closed set of risk-gate rejection reasons, in rule order.
type RiskReason string

const (
	RiskDuplicateDisabled     RiskReason = "duplicate_disabled"
	RiskSellWithoutInventory  RiskReason = "sell_without_inventory"
	RiskWashTrade             RiskReason = "wash_trade"
	RiskBelowMinNetEdge       RiskReason = "below_min_net_edge"
	RiskBelowMinGrossEdge     RiskReason = "below_min_gross_edge"
	RiskBelowMinBuyPrice      RiskReason = "below_min_buy_price"
	RiskInsufficientLiquidity RiskReason = "insufficient_buy_liquidity"
	RiskExpiryTooSoon         RiskReason = "expiry_too_soon"
	RiskMaxOpenPositions      RiskReason = "max_open_positions"
	RiskAllocationExceeded    RiskReason = "max_allocation_exceeded"
	RiskUnknownMarket         RiskReason = "unknown_market"
)

// RiskDecision records the outcome of the risk gate. Rejections are not
// errors; they are counted in telemetry and the loop continues.
type RiskDecision struct {
	Allowed bool
	Reason  RiskReason // empty when allowed
	Detail  string
}
