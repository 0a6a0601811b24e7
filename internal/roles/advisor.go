package roles

import (
	"context"
	"strings"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/marketplace"
)

// AdvisorFallbackWarning is recorded whenever deterministic detection had to
// stand in for the advisor.
const AdvisorFallbackWarning = "advisor supplemented with heuristic detection"

// defaultProposalConfidence applies when the advisor omits a confidence.
const defaultProposalConfidence = 0.8

// Downgrade factors for proposals that needed fuzzy label matching.
const (
	caseInsensitiveFactor = 0.8
	substringFactor       = 0.6
)

// Advisor proposes role bindings from labels and sample values. It must not
// have side effects visible to the caller.
type Advisor interface {
	ProposeRoles(ctx context.Context, labels []string, samples map[string][]string, platform marketplace.Platform) (*Proposal, error)
}

// Proposal is a partial role map suggested by an Advisor.
type Proposal struct {
	Roles      map[Role]string  `json:"roles"`
	Confidence map[Role]float64 `json:"confidence"`
	Warnings   []string         `json:"warnings"`
}

// fuse merges an advisor proposal into m. A proposal replaces an existing
// binding only when its confidence is at least as high.
func fuse(m *Map, f *frame.Frame, p *Proposal) {
	critical := 0
	for _, r := range All {
		want, ok := p.Roles[r]
		if !ok || strings.TrimSpace(want) == "" {
			continue
		}
		label, factor := resolveLabel(f, want)
		if label == "" {
			m.Warn("advisor proposed unknown column %q for %s", want, r)
			continue
		}
		if isCritical(r) {
			critical++
		}

		conf, ok := p.Confidence[r]
		if !ok || conf <= 0 {
			conf = defaultProposalConfidence
		}
		conf = clamp01(conf) * factor

		if m.Has(r) && conf < m.Confidence[r] {
			continue
		}
		if holder, held := m.RoleOf(label); held && holder != r && conf < m.Confidence[holder] {
			continue
		}
		m.Set(r, label, conf, SourceAdvisor)
	}

	for _, w := range p.Warnings {
		m.Warn("advisor: %s", w)
	}
	if critical == 0 {
		m.Warnings = append(m.Warnings, AdvisorFallbackWarning)
	}
}

// resolveLabel finds the frame label a proposal refers to and the confidence
// factor the match costs.
func resolveLabel(f *frame.Frame, want string) (string, float64) {
	if f.Has(want) {
		return want, 1
	}
	lw := strings.ToLower(strings.TrimSpace(want))
	for _, l := range f.Labels() {
		if strings.ToLower(l) == lw || frame.MatchKey(l) == frame.MatchKey(lw) {
			return l, caseInsensitiveFactor
		}
	}
	for _, l := range f.Labels() {
		ll := strings.ToLower(l)
		if strings.Contains(ll, lw) || strings.Contains(lw, ll) {
			return l, substringFactor
		}
	}
	return "", 0
}

func isCritical(r Role) bool {
	for _, c := range Critical {
		if c == r {
			return true
		}
	}
	return false
}
