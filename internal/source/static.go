package source

import (
	"context"
	"time"

	"github.com/quantfish/crossarb/pkg/types"
)

// Static serves canned snapshots, one frame per fetch, repeating the last
// frame once exhausted. It backs the scan command and the engine tests.
type Static struct {
	meta   Metadata
	frames [][]types.Market
	cursor int
	now    func() time.Time
}

// NewStatic creates a fixture source for the given venue. Frames are
// served in order; a source with no frames always fetches empty.
func NewStatic(meta Metadata, frames ...[]types.Market) *Static {
	return &Static{meta: meta, frames: frames, now: time.Now}
}

// Fetch returns the current frame filtered through the normalization
// rules: venue tagged, invalid or expired markets dropped.
func (s *Static) Fetch(_ context.Context) ([]types.Market, error) {
	if len(s.frames) == 0 {
		return nil, nil
	}

	frame := s.frames[s.cursor]
	if s.cursor < len(s.frames)-1 {
		s.cursor++
	}

	now := s.now().UTC()
	out := make([]types.Market, 0, len(frame))
	for _, m := range frame {
		m.Venue = s.meta.Venue
		if m.Validate() != nil {
			continue
		}
		if !m.EndDate.IsZero() && !m.EndDate.After(now) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Metadata returns the venue description.
func (s *Static) Metadata() Metadata { return s.meta }
