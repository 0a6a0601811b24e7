package metrics

import (
	"math"
	"sort"
	"strings"
)

// maxNameRunes bounds display names; longer ones are cut with an ellipsis.
const maxNameRunes = 50

type group struct {
	name  string
	value float64
	count int
}

// groupBy sums values per non-blank key in first-appearance order. Rows
// whose value is missing still count as transactions.
func groupBy(keys []string, values []float64) []*group {
	idx := make(map[string]int)
	var out []*group
	for i, k := range keys {
		if k == "" {
			continue
		}
		j, ok := idx[k]
		if !ok {
			j = len(out)
			idx[k] = j
			out = append(out, &group{name: k})
		}
		out[j].count++
		if v := values[i]; !math.IsNaN(v) {
			out[j].value += v
		}
	}
	return out
}

// countBy counts rows per key, grouping case-insensitively and naming each
// group by its first spelling.
func countBy(keys []string) []*group {
	idx := make(map[string]int)
	var out []*group
	for _, k := range keys {
		if k == "" {
			continue
		}
		lk := strings.ToLower(k)
		j, ok := idx[lk]
		if !ok {
			j = len(out)
			idx[lk] = j
			out = append(out, &group{name: k})
		}
		out[j].count++
		out[j].value++
	}
	return out
}

// byValueDesc returns a copy sorted by value descending; earlier groups win
// ties.
func byValueDesc(gs []*group) []*group {
	out := append([]*group(nil), gs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].value > out[j].value })
	return out
}

func byValueAsc(gs []*group) []*group {
	out := append([]*group(nil), gs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].value < out[j].value })
	return out
}

func head(gs []*group, n int) []*group {
	if len(gs) > n {
		return gs[:n]
	}
	return gs
}

func totalValue(gs []*group) float64 {
	t := 0.0
	for _, g := range gs {
		t += g.value
	}
	return t
}

func displayName(s string) string {
	r := []rune(s)
	if len(r) <= maxNameRunes {
		return s
	}
	return string(r[:maxNameRunes-3]) + "..."
}

// distribution renders labels, values and percentages of total.
func distribution(gs []*group, total float64) map[string]any {
	labels := make([]string, len(gs))
	data := make([]float64, len(gs))
	pcts := make([]float64, len(gs))
	for i, g := range gs {
		labels[i] = displayName(g.name)
		data[i] = g.value
		pcts[i] = pct(g.value, total)
	}
	return map[string]any{"labels": labels, "data": data, "percentages": pcts}
}
