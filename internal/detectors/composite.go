package detectors

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/quantfish/crossarb/internal/matcher"
	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// Composite detects hierarchical event mispricings: the probability of a
// composite outcome (win the title) can never exceed the probability of
// its prerequisite (reach the final). The hierarchy table is closed;
// regex rules are evaluated before keyword rules and the first matching
// rule wins for a given pair.
type Composite struct {
	cfg    config.DetectorConfig
	logger *zap.Logger
}

// NewComposite creates the composite detector.
func NewComposite(cfg config.DetectorConfig, logger *zap.Logger) *Composite {
	return &Composite{cfg: cfg, logger: logger}
}

// Name returns the detector identifier.
func (c *Composite) Name() string { return "composite" }

// hierarchyRule pairs a composite-event pattern with its prerequisite.
type hierarchyRule struct {
	name        string
	compositeRe *regexp.Regexp
	componentRe *regexp.Regexp
}

// keywordRule is the keyword fallback form of a hierarchy.
type keywordRule struct {
	name         string
	compositeKws []string
	componentKws []string
}

// regexRules are checked first, in order.
var regexRules = []hierarchyRule{
	{
		name:        "title_vs_final",
		compositeRe: regexp.MustCompile(`(?i)\bwin(s|ning)?\b.*\b(championship|title|cup|tournament)\b`),
		componentRe: regexp.MustCompile(`(?i)\b(reach|make|advance to)\b.*\bfinal\b`),
	},
	{
		name:        "final_vs_semifinal",
		compositeRe: regexp.MustCompile(`(?i)\b(reach|make|advance to)\b.*\bfinal\b`),
		componentRe: regexp.MustCompile(`(?i)\b(reach|make|advance to)\b.*\bsemi ?-?final\b`),
	},
	{
		name:        "win_vs_nomination",
		compositeRe: regexp.MustCompile(`(?i)\bwin(s|ning)?\b.*\b(award|oscar|prize)\b`),
		componentRe: regexp.MustCompile(`(?i)\b(nominated|nomination|nominee)\b`),
	},
}

// keywordRules are checked after the regex rules, in order.
var keywordRules = []keywordRule{
	{
		name:         "champion_vs_playoffs",
		compositeKws: []string{"champion", "championship"},
		componentKws: []string{"playoff", "playoffs", "qualify"},
	},
	{
		name:         "sweep_vs_win",
		compositeKws: []string{"sweep", "undefeated"},
		componentKws: []string{"win game", "win match"},
	},
}

// Detect walks every ordered pair of markets sharing an entity and emits
// SELL(composite)/BUY(component) whenever the composite prices above its
// prerequisite.
func (c *Composite) Detect(_ context.Context, markets []types.Market) ([]types.Opportunity, error) {
	byEntity := make(map[string][]*types.Market)
	for i := range markets {
		m := &markets[i]
		fp := matcher.FingerprintMarket(m)
		if fp.Entity == "" {
			continue
		}
		byEntity[fp.Entity] = append(byEntity[fp.Entity], m)
	}

	var opps []types.Opportunity
	for entity, group := range byEntity {
		for _, composite := range group {
			for _, component := range group {
				if composite.ID == component.ID {
					continue
				}
				rule, ok := matchHierarchy(composite.Question, component.Question)
				if !ok {
					continue
				}

				compOut := composite.PrimaryOutcome()
				preOut := component.PrimaryOutcome()
				if compOut == nil || preOut == nil {
					continue
				}

				edge := compOut.Price - preOut.Price
				if edge <= 0 {
					CandidatesRejectedTotal.WithLabelValues(c.Name(), "hierarchy_consistent").Inc()
					continue
				}

				c.logger.Debug("composite-violation",
					zap.String("entity", entity),
					zap.String("rule", rule),
					zap.String("composite", composite.ID),
					zap.String("component", component.ID),
					zap.Float64("edge", edge))

				OpportunitiesDetectedTotal.WithLabelValues(c.Name()).Inc()
				OpportunityNetEdge.Observe(edge)
				opps = append(opps, types.Opportunity{
					Type:      types.OpportunityComposite,
					MarketIDs: []string{composite.ID, component.ID},
					Description: fmt.Sprintf("composite %q priced %s above prerequisite %q at %s",
						composite.Question, fmtPrice(compOut.Price), component.Question, fmtPrice(preOut.Price)),
					NetEdge: edge,
					Actions: []types.TradeAction{
						{MarketID: composite.ID, OutcomeID: compOut.ID, Side: types.SideSell, Amount: 1, LimitPrice: compOut.Price},
						{MarketID: component.ID, OutcomeID: preOut.ID, Side: types.SideBuy, Amount: 1, LimitPrice: preOut.Price},
					},
					DetectedAt: time.Now().UTC(),
					Metadata: map[string]string{
						"hierarchy": rule,
					},
				})
			}
		}
	}

	return opps, nil
}

// matchHierarchy returns the first rule under which the first question is
// the composite of the second. Regex rules take precedence over keyword
// rules; overlap resolves to the earliest match.
func matchHierarchy(compositeQ, componentQ string) (string, bool) {
	for _, rule := range regexRules {
		if rule.compositeRe.MatchString(compositeQ) && rule.componentRe.MatchString(componentQ) {
			return rule.name, true
		}
	}
	lowerComposite := strings.ToLower(compositeQ)
	lowerComponent := strings.ToLower(componentQ)
	for _, rule := range keywordRules {
		if containsAny(lowerComposite, rule.compositeKws) && containsAny(lowerComponent, rule.componentKws) {
			return rule.name, true
		}
	}
	return "", false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
