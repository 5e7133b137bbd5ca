package matcher

import (
	"context"

	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// GroupVerifier optionally splits a related group into sub-groups, e.g.
// via an external review step. The core only depends on this contract.
type GroupVerifier interface {
	Verify(ctx context.Context, group []*types.Market) ([][]*types.Market, error)
}

// VerifyMode controls how verifier failures are handled.
type VerifyMode string

const (
	VerifyOff        VerifyMode = "off"
	VerifyFailOpen   VerifyMode = "fail_open"
	VerifyFailClosed VerifyMode = "fail_closed"
)

// SubGroups refines related groups through the verifier. With no verifier
// (or mode off) each group passes through as a single sub-group. Under
// fail_open a verifier error yields the original grouping; under
// fail_closed it drops the group.
func (m *Matcher) SubGroups(ctx context.Context, verifier GroupVerifier, mode VerifyMode, groups [][]*types.Market) [][]*types.Market {
	if verifier == nil || mode == VerifyOff || mode == "" {
		return groups
	}

	var out [][]*types.Market
	for _, group := range groups {
		subs, err := verifier.Verify(ctx, group)
		if err != nil {
			if mode == VerifyFailClosed {
				m.logger.Warn("group-verification-failed-dropping",
					zap.Int("group-size", len(group)),
					zap.Error(err))
				continue
			}
			m.logger.Debug("group-verification-failed-keeping",
				zap.Int("group-size", len(group)),
				zap.Error(err))
			out = append(out, group)
			continue
		}
		out = append(out, subs...)
	}
	return out
}
