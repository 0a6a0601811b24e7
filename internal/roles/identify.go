package roles

import (
	"context"
	"time"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/marketplace"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/observability"
)

// DefaultSampleRows bounds profiling work per column.
const DefaultSampleRows = 1000

// advisorSamples is the number of sample values sent per column.
const advisorSamples = 5

// DegenerateWarning explains why a tiny frame skipped scoring.
const DegenerateWarning = "file has fewer than 3 rows or 3 columns; it likely contains a report description rather than transaction data"

// Identifier builds role maps.
type Identifier struct {
	advisor        Advisor
	advisorTimeout time.Duration
	sampleRows     int
	logger         *observability.Logger
}

// Option configures an Identifier.
type Option func(*Identifier)

// WithAdvisor enables an external advisor bounded by timeout.
func WithAdvisor(a Advisor, timeout time.Duration) Option {
	return func(id *Identifier) {
		id.advisor = a
		id.advisorTimeout = timeout
	}
}

// WithSampleRows bounds the rows profiled per column.
func WithSampleRows(n int) Option {
	return func(id *Identifier) {
		if n > 0 {
			id.sampleRows = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *observability.Logger) Option {
	return func(id *Identifier) {
		if l != nil {
			id.logger = l
		}
	}
}

// NewIdentifier creates an Identifier.
func NewIdentifier(opts ...Option) *Identifier {
	id := &Identifier{sampleRows: DefaultSampleRows, logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(id)
	}
	return id
}

// Identify maps the columns of f to roles. The passes run in order:
// marketplace label table, generic synonyms, label containment, heuristic
// scoring, advisor fusion, then caller overrides. The result never names a
// column missing from f.
func (id *Identifier) Identify(ctx context.Context, f *frame.Frame, platform marketplace.Platform, overrides map[string]string) *Map {
	m := NewMap()

	if table, ok := marketplaceTables[platform]; ok {
		applyTable(m, f, table, marketplaceConfidence, SourceMarketplace)
	}
	applyTable(m, f, synonyms, synonymConfidence, SourceSynonym)
	applyContainment(m, f)

	profiles := ProfileFrame(f, id.sampleRows)
	if degenerate(f) {
		m.Warnings = append(m.Warnings, DegenerateWarning)
	} else {
		scoreHeuristics(m, f, profiles)
	}

	if id.advisor != nil {
		id.consult(ctx, m, f, platform)
	}

	m.ApplyOverrides(f, overrides)
	m.Validate(f)
	checkTypes(m, profiles)

	for _, r := range Critical {
		if !m.Has(r) {
			m.Warn("could not identify a column for %s", r)
		}
	}

	id.logger.Debug().
		Str("platform", string(platform)).
		Int("bound", len(m.Columns)).
		Int("warnings", len(m.Warnings)).
		Msg("column roles identified")
	return m
}

func (id *Identifier) consult(ctx context.Context, m *Map, f *frame.Frame, platform marketplace.Platform) {
	if id.advisorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, id.advisorTimeout)
		defer cancel()
	}

	p, err := id.advisor.ProposeRoles(ctx, f.Labels(), f.Head(advisorSamples), platform)
	if err != nil || p == nil {
		id.logger.Warn().Err(err).Msg("advisor unavailable, using deterministic roles")
		m.Warnings = append(m.Warnings, AdvisorFallbackWarning)
		return
	}
	fuse(m, f, p)
}

// checkTypes flags bindings whose content contradicts the role's type. The
// binding stays; its confidence is halved.
func checkTypes(m *Map, profiles []*Profile) {
	byLabel := make(map[string]*Profile, len(profiles))
	for _, p := range profiles {
		byLabel[p.Label] = p
	}

	for _, r := range m.bound() {
		p := byLabel[m.Columns[r]]
		if p == nil || p.NonEmpty == 0 {
			continue
		}
		switch r.Kind() {
		case frame.KindNumber:
			if p.NumericRate < 0.5 {
				m.Warn("data-type warning: column %s mapped to %s is mostly non-numeric", p.Label, r)
				m.Confidence[r] /= 2
			}
		case frame.KindTime:
			if p.DatetimeRate < 0.5 {
				m.Warn("data-type warning: column %s mapped to %s is mostly not dates", p.Label, r)
				m.Confidence[r] /= 2
			}
		}
	}
}
