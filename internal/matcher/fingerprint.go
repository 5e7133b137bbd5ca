// Package matcher clusters related or duplicate markets across venues.
// It builds per-market fingerprints from normalized text, scores title
// similarity either lexically or semantically, and groups markets the
// duplicate/timelag/consistency detectors operate on.
package matcher

import (
	"time"

	"github.com/quantfish/crossarb/internal/textnorm"
	"github.com/quantfish/crossarb/pkg/types"
)

// Fingerprint is the stable identity of a market question.
type Fingerprint struct {
	StableKey    string
	Entity       string
	Expiry       *time.Time
	Comparator   types.Comparator
	Threshold    float64
	HasThreshold bool
}

// FingerprintMarket builds a fingerprint, preferring structured market
// fields and falling back to the text extractors.
func FingerprintMarket(m *types.Market) Fingerprint {
	fp := Fingerprint{
		StableKey: textnorm.StableKey(m.Question),
		Entity:    m.Asset,
	}

	if fp.Entity == "" {
		fp.Entity = textnorm.ExtractEntity(m.Question)
	}

	if m.HasThreshold && m.Comparator != "" {
		fp.Comparator = m.Comparator
		fp.Threshold = m.Threshold
		fp.HasThreshold = true
	} else if cmp, value, ok := textnorm.ExtractThreshold(m.Question); ok {
		fp.Comparator = cmp
		fp.Threshold = value
		fp.HasThreshold = true
	}

	if !m.EndDate.IsZero() {
		end := m.EndDate.UTC()
		fp.Expiry = &end
	} else if expiry := textnorm.ExtractExpiry(m.Question); expiry != nil {
		fp.Expiry = expiry
	}

	return fp
}

// ExpiryDay returns the expiry truncated to a UTC day, or the zero time
// when the expiry is unknown.
func (f Fingerprint) ExpiryDay() time.Time {
	if f.Expiry == nil {
		return time.Time{}
	}
	return f.Expiry.UTC().Truncate(24 * time.Hour)
}
