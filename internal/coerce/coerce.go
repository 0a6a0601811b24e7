// Package coerce builds the typed analysis view of a frame and owns the
// number and date parsing shared by role profiling and metrics.
package coerce

import (
	"fmt"
	"math"
	"time"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
)

// DefaultThreshold is the share of non-empty cells that must convert.
const DefaultThreshold = 0.5

// Target asks for one column to be converted.
type Target struct {
	Label string
	Kind  frame.Kind
}

// Outcome reports how one target fared.
type Outcome struct {
	Label     string     `json:"label"`
	Kind      frame.Kind `json:"kind"`
	Converted int        `json:"converted"`
	NonEmpty  int        `json:"non_empty"`
	Reverted  bool       `json:"reverted"`
}

// Rate is the converted share of non-empty cells. Placeholders such as
// "N/A" count as non-empty.
func (o Outcome) Rate() float64 {
	if o.NonEmpty == 0 {
		return 0
	}
	return float64(o.Converted) / float64(o.NonEmpty)
}

// Result is the analysis frame plus what happened on the way.
type Result struct {
	Frame    *frame.Frame
	Outcomes []Outcome
	Warnings []string
}

// Apply returns an analysis copy of src with every target converted. A
// column whose conversion rate falls below threshold keeps its text values
// and yields a warning. src is never modified.
func Apply(src *frame.Frame, targets []Target, threshold float64) Result {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}

	out := src.Clone()
	res := Result{Frame: out}
	seen := make(map[string]bool, len(targets))

	for _, t := range targets {
		col := out.Column(t.Label)
		if col == nil || seen[t.Label] || t.Kind == frame.KindText {
			continue
		}
		seen[t.Label] = true

		typed, o := convert(col, t.Kind)
		if o.NonEmpty == 0 || o.Rate() < threshold {
			o.Reverted = true
			res.Warnings = append(res.Warnings, revertWarning(t))
		} else {
			// Replace cannot fail: same label, same length.
			_ = out.Replace(typed)
		}
		res.Outcomes = append(res.Outcomes, o)
	}
	return res
}

func revertWarning(t Target) string {
	kind := "numeric"
	if t.Kind == frame.KindTime {
		kind = "datetime"
	}
	return fmt.Sprintf("could not convert column %s to %s", t.Label, kind)
}

func convert(col *frame.Column, kind frame.Kind) (*frame.Column, Outcome) {
	typed := &frame.Column{Name: col.Name, Kind: kind, Text: col.Text}
	o := Outcome{Label: col.Name, Kind: kind}

	switch kind {
	case frame.KindNumber:
		typed.Num = make([]float64, len(col.Text))
		for i, v := range col.Text {
			if v != "" {
				o.NonEmpty++
			}
			n, ok := ParseNumber(v)
			if !ok {
				typed.Num[i] = math.NaN()
				continue
			}
			typed.Num[i] = n
			o.Converted++
		}
	case frame.KindTime:
		typed.Time = make([]time.Time, len(col.Text))
		for i, v := range col.Text {
			if v != "" {
				o.NonEmpty++
			}
			if t, ok := ParseTime(v); ok {
				typed.Time[i] = t
				o.Converted++
			}
		}
	}
	return typed, o
}

// Numbers returns the numeric view of any column. Text columns are parsed
// cell by cell; cells that do not parse are NaN.
func Numbers(col *frame.Column) []float64 {
	if col == nil {
		return nil
	}
	if col.Kind == frame.KindNumber {
		return col.Num
	}
	out := make([]float64, len(col.Text))
	for i, v := range col.Text {
		if n, ok := ParseNumber(v); ok {
			out[i] = n
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Times returns the time view of any column. Cells that do not parse are the
// zero time.
func Times(col *frame.Column) []time.Time {
	if col == nil {
		return nil
	}
	if col.Kind == frame.KindTime {
		return col.Time
	}
	out := make([]time.Time, len(col.Text))
	for i, v := range col.Text {
		if t, ok := ParseTime(v); ok {
			out[i] = t
		}
	}
	return out
}

// NumberRate is the share of non-blank cells that parse as numbers.
func NumberRate(values []string) float64 {
	return rate(values, func(s string) bool { _, ok := ParseNumber(s); return ok })
}

// TimeRate is the share of non-blank cells that parse as dates.
func TimeRate(values []string) float64 {
	return rate(values, func(s string) bool { _, ok := ParseTime(s); return ok })
}

func rate(values []string, ok func(string) bool) float64 {
	n, hit := 0, 0
	for _, v := range values {
		if v == "" {
			continue
		}
		n++
		if ok(v) {
			hit++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(hit) / float64(n)
}
