// Package platform computes marketplace-specific blocks of the analysis
// document. A failing specializer reports an error string next to whatever
// it produced before failing.
package platform

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/coerce"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/marketplace"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/roles"
)

// Input is the analysis frame and its role map.
type Input struct {
	Frame           *frame.Frame
	Roles           *roles.Map
	RecordTypeLabel string
}

type specializer func(in Input, out map[string]any)

var specializers = map[marketplace.Platform]specializer{
	marketplace.Amazon:   amazon,
	marketplace.Flipkart: flipkart,
	marketplace.Meesho:   meesho,
}

// Specialize returns the platform_specific block for p, or nil when p has
// no specializer.
func Specialize(p marketplace.Platform, in Input) map[string]any {
	fn, ok := specializers[p]
	if !ok {
		return nil
	}
	out := map[string]any{"platform": string(p)}
	run(fn, in, out)
	return out
}

func run(fn specializer, in Input, out map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			out["error"] = fmt.Sprint(r)
		}
	}()
	fn(in, out)
}

func (in Input) role(r roles.Role) *frame.Column {
	if in.Roles == nil {
		return nil
	}
	l, ok := in.Roles.Get(r)
	if !ok {
		return nil
	}
	return in.Frame.Column(l)
}

func (in Input) sales() []float64 {
	return coerce.Numbers(in.role(roles.SalesAmount))
}

// find returns the first column whose label contains any token. Tokens are
// tried in order, so earlier tokens take precedence.
func (in Input) find(tokens ...string) *frame.Column {
	for _, tok := range tokens {
		for _, col := range in.Frame.Columns() {
			if strings.Contains(frame.MatchKey(col.Name), tok) {
				return col
			}
		}
	}
	return nil
}

// findAll returns every column containing all tokens of any group.
func (in Input) findAll(groups ...[]string) []*frame.Column {
	var out []*frame.Column
	for _, col := range in.Frame.Columns() {
		key := frame.MatchKey(col.Name)
		for _, g := range groups {
			hit := true
			for _, tok := range g {
				if !strings.Contains(key, tok) {
					hit = false
					break
				}
			}
			if hit {
				out = append(out, col)
				break
			}
		}
	}
	return out
}

// status picks the bound transaction type column or the first status-like
// label.
func (in Input) status() *frame.Column {
	if col := in.role(roles.TransactionType); col != nil {
		return col
	}
	return in.find("status")
}

type bucket struct {
	name  string
	count int
	value float64
}

// tally groups non-blank values case-insensitively in first-appearance order.
func tally(values []string, amounts []float64) []*bucket {
	idx := map[string]int{}
	var out []*bucket
	for i, v := range values {
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		j, ok := idx[k]
		if !ok {
			j = len(out)
			idx[k] = j
			out = append(out, &bucket{name: v})
		}
		out[j].count++
		if amounts != nil && !math.IsNaN(amounts[i]) {
			out[j].value += amounts[i]
		}
	}
	return out
}

// topShare renders the n most frequent values with their share of rows.
func topShare(values []string, amounts []float64, n int) []any {
	bs := tally(values, amounts)
	total := 0
	for _, b := range bs {
		total += b.count
	}
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].count > bs[j].count })
	if len(bs) > n {
		bs = bs[:n]
	}
	out := make([]any, 0, len(bs))
	for _, b := range bs {
		it := map[string]any{"name": b.name, "count": b.count, "percentage": pct(float64(b.count), float64(total))}
		if amounts != nil {
			it["value"] = b.value
		}
		out = append(out, it)
	}
	return out
}

func containsAny(s string, tokens ...string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func pct(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(part/whole*100*100) / 100
}

func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}

func total(xs []float64) float64 {
	s := 0.0
	for _, x := range finite(xs) {
		s += x
	}
	return s
}
