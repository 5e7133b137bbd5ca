package matcher

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// Config holds the matcher thresholds.
type Config struct {
	SimilarityThreshold float64 // duplicate pairing cutoff
	RelatedWindowDays   int     // expiry merge window for related groups
}

// Matcher pairs duplicates and groups related markets.
type Matcher struct {
	sim    Similarity
	cfg    Config
	logger *zap.Logger
}

// New creates a Matcher with the given similarity backend.
func New(sim Similarity, cfg Config, logger *zap.Logger) *Matcher {
	if cfg.RelatedWindowDays <= 0 {
		cfg.RelatedWindowDays = 7
	}
	return &Matcher{
		sim:    sim,
		cfg:    cfg,
		logger: logger,
	}
}

// Pair is an unordered candidate duplicate pair.
type Pair struct {
	First  *types.Market
	Second *types.Market
	Score  float64
}

// DuplicatePairs emits every market pair that plausibly resolves the same
// event. A pair is rejected when both expiries are known and more than 24h
// apart, when the title similarity is below the threshold, or when both
// entities are known and differ.
func (m *Matcher) DuplicatePairs(ctx context.Context, markets []types.Market) []Pair {
	fps := make([]Fingerprint, len(markets))
	for i := range markets {
		fps[i] = FingerprintMarket(&markets[i])
	}

	var pairs []Pair
	for i := 0; i < len(markets); i++ {
		for j := i + 1; j < len(markets); j++ {
			if fps[i].Expiry != nil && fps[j].Expiry != nil {
				gap := fps[i].Expiry.Sub(*fps[j].Expiry)
				if gap < 0 {
					gap = -gap
				}
				if gap > 24*time.Hour {
					continue
				}
			}

			score := m.sim.Score(ctx, markets[i].Question, markets[j].Question)
			if score < m.cfg.SimilarityThreshold {
				continue
			}

			if fps[i].Entity != "" && fps[j].Entity != "" && fps[i].Entity != fps[j].Entity {
				continue
			}

			pairs = append(pairs, Pair{
				First:  &markets[i],
				Second: &markets[j],
				Score:  score,
			})
		}
	}
	return pairs
}

// RelatedGroups buckets markets by (entity, expiry day) and merges buckets
// on the same entity whose days fall within the configured window.
// Markets with no extractable entity are not grouped.
func (m *Matcher) RelatedGroups(markets []types.Market) [][]*types.Market {
	type bucketKey struct {
		entity string
		day    time.Time
	}

	buckets := make(map[bucketKey][]*types.Market)
	for i := range markets {
		fp := FingerprintMarket(&markets[i])
		if fp.Entity == "" {
			continue
		}
		key := bucketKey{entity: fp.Entity, day: fp.ExpiryDay()}
		buckets[key] = append(buckets[key], &markets[i])
	}

	// Collect keys per entity, sorted by day, and merge runs whose
	// neighbours are within the window.
	byEntity := make(map[string][]bucketKey)
	for key := range buckets {
		byEntity[key.entity] = append(byEntity[key.entity], key)
	}

	window := time.Duration(m.cfg.RelatedWindowDays) * 24 * time.Hour

	var groups [][]*types.Market
	entities := make([]string, 0, len(byEntity))
	for entity := range byEntity {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	for _, entity := range entities {
		keys := byEntity[entity]
		sort.Slice(keys, func(i, j int) bool { return keys[i].day.Before(keys[j].day) })

		var current []*types.Market
		var lastDay time.Time
		for idx, key := range keys {
			gap := math.MaxFloat64
			if idx > 0 {
				// Zero days (unknown expiry) merge with anything on the
				// same entity; known days merge within the window.
				if key.day.IsZero() || lastDay.IsZero() {
					gap = 0
				} else {
					gap = float64(key.day.Sub(lastDay))
				}
			}
			if idx == 0 || gap <= float64(window) {
				current = append(current, buckets[key]...)
			} else {
				groups = append(groups, current)
				current = append([]*types.Market(nil), buckets[key]...)
			}
			if !key.day.IsZero() {
				lastDay = key.day
			}
		}
		if len(current) > 0 {
			groups = append(groups, current)
		}
	}

	return groups
}
