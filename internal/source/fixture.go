package source

import (
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/quantfish/crossarb/pkg/types"
)

// fixtureMarket is the JSON wire form of one market snapshot.
type fixtureMarket struct {
	ID               string           `json:"id"`
	Question         string           `json:"question"`
	Outcomes         []fixtureOutcome `json:"outcomes"`
	EndDate          string           `json:"end_date,omitempty"`
	Liquidity        float64          `json:"liquidity"`
	Volume           float64          `json:"volume"`
	Tags             []string         `json:"tags,omitempty"`
	Description      string           `json:"description,omitempty"`
	Comparator       string           `json:"comparator,omitempty"`
	Threshold        float64          `json:"threshold,omitempty"`
	Asset            string           `json:"asset,omitempty"`
	ResolutionSource string           `json:"resolution_source,omitempty"`
}

type fixtureOutcome struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Price     float64 `json:"price"`
	Liquidity float64 `json:"liquidity"`
}

// NewFromFile creates a Static source from a JSON fixture file holding an
// array of markets. The venue comes from the metadata, not the file.
func NewFromFile(meta Metadata, path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}

	var wire []fixtureMarket
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}

	frame := make([]types.Market, 0, len(wire))
	for _, fm := range wire {
		m := types.Market{
			ID:               fm.ID,
			Question:         fm.Question,
			Liquidity:        fm.Liquidity,
			Volume:           fm.Volume,
			Tags:             fm.Tags,
			Description:      fm.Description,
			Threshold:        fm.Threshold,
			Asset:            fm.Asset,
			ResolutionSource: fm.ResolutionSource,
		}
		if fm.Comparator != "" {
			m.Comparator = types.Comparator(fm.Comparator)
			m.HasThreshold = true
		}
		if fm.EndDate != "" {
			// Unparseable dates degrade to unknown expiry; the record
			// itself is kept.
			if end, err := time.Parse(time.RFC3339, fm.EndDate); err == nil {
				m.EndDate = end.UTC()
			}
		}
		for _, fo := range fm.Outcomes {
			m.Outcomes = append(m.Outcomes, types.Outcome{
				ID:        fo.ID,
				Label:     fo.Label,
				Price:     fo.Price,
				Liquidity: fo.Liquidity,
			})
		}
		frame = append(frame, m)
	}

	return NewStatic(meta, frame), nil
}
