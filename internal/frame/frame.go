// Package frame holds the in-memory rectangular table every stage of the
// analyzer works on.
//
// Source cells are always kept as trimmed strings. The type coercer may
// rebind a column of an analysis copy to numbers or timestamps; the source
// frame never changes after normalization.
package frame

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind is the storage type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindTime
)

// String returns the kind name used in logs and profiles.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindTime:
		return "datetime"
	default:
		return "text"
	}
}

// Column is a named vector of cells.
type Column struct {
	Name string
	Kind Kind
	// Text holds the source values; "" marks a missing cell.
	Text []string
	// Num is set when Kind is KindNumber; NaN marks a missing or unparsable cell.
	Num []float64
	// Time is set when Kind is KindTime; the zero time marks a missing cell.
	Time []time.Time
}

// Len returns the number of cells.
func (c *Column) Len() int {
	return len(c.Text)
}

// Missing reports whether cell i carries no usable value for the column's kind.
func (c *Column) Missing(i int) bool {
	switch c.Kind {
	case KindNumber:
		return math.IsNaN(c.Num[i])
	case KindTime:
		return c.Time[i].IsZero()
	default:
		return c.Text[i] == ""
	}
}

// NonEmpty counts source cells that are not blank.
func (c *Column) NonEmpty() int {
	n := 0
	for _, v := range c.Text {
		if v != "" {
			n++
		}
	}
	return n
}

// clone returns a deep copy of the column.
func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Text: append([]string(nil), c.Text...)}
	if c.Num != nil {
		out.Num = append([]float64(nil), c.Num...)
	}
	if c.Time != nil {
		out.Time = append([]time.Time(nil), c.Time...)
	}
	return out
}

// Frame is a rectangular table addressed by column label and row position.
type Frame struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New builds a text frame from a header and data rows. Short rows are padded
// with blanks and long rows are truncated to the header width. Duplicate
// labels keep the leftmost column.
func New(labels []string, rows [][]string) *Frame {
	f := &Frame{index: make(map[string]int), rows: len(rows)}
	keep := make([]int, 0, len(labels))
	for i, label := range labels {
		if _, dup := f.index[label]; dup {
			continue
		}
		f.index[label] = len(f.cols)
		f.cols = append(f.cols, &Column{Name: label, Kind: KindText, Text: make([]string, len(rows))})
		keep = append(keep, i)
	}

	for r, row := range rows {
		for c, src := range keep {
			if src < len(row) {
				f.cols[c].Text[r] = strings.TrimSpace(row[src])
			}
		}
	}
	return f
}

// Len returns the row count.
func (f *Frame) Len() int {
	return f.rows
}

// Width returns the column count.
func (f *Frame) Width() int {
	return len(f.cols)
}

// Labels returns the column labels in order.
func (f *Frame) Labels() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name
	}
	return out
}

// Columns returns the columns in order. Callers must not mutate the slice.
func (f *Frame) Columns() []*Column {
	return f.cols
}

// Has reports whether a column with the exact label exists.
func (f *Frame) Has(label string) bool {
	_, ok := f.index[label]
	return ok
}

// Column returns the column with the exact label, or nil.
func (f *Frame) Column(label string) *Column {
	if i, ok := f.index[label]; ok {
		return f.cols[i]
	}
	return nil
}

// Position returns the zero-based position of a label, or -1.
func (f *Frame) Position(label string) int {
	if i, ok := f.index[label]; ok {
		return i
	}
	return -1
}

// Clone returns a structurally independent copy.
func (f *Frame) Clone() *Frame {
	out := &Frame{index: make(map[string]int, len(f.cols)), rows: f.rows}
	for i, c := range f.cols {
		out.cols = append(out.cols, c.clone())
		out.index[c.Name] = i
	}
	return out
}

// Replace rebinds an existing column to col, matched by col.Name.
func (f *Frame) Replace(col *Column) error {
	i, ok := f.index[col.Name]
	if !ok {
		return fmt.Errorf("frame: no column %q", col.Name)
	}
	if col.Len() != f.rows {
		return fmt.Errorf("frame: column %q has %d cells, want %d", col.Name, col.Len(), f.rows)
	}
	f.cols[i] = col
	return nil
}

// AddText appends a text column.
func (f *Frame) AddText(label string, values []string) error {
	if f.Has(label) {
		return fmt.Errorf("frame: column %q already exists", label)
	}
	if len(values) != f.rows {
		return fmt.Errorf("frame: column %q has %d cells, want %d", label, len(values), f.rows)
	}
	f.index[label] = len(f.cols)
	f.cols = append(f.cols, &Column{Name: label, Kind: KindText, Text: append([]string(nil), values...)})
	return nil
}

// Row returns the source values of row i in column order.
func (f *Frame) Row(i int) []string {
	out := make([]string, len(f.cols))
	for c, col := range f.cols {
		out[c] = col.Text[i]
	}
	return out
}

// Head returns up to n non-blank source values per column.
func (f *Frame) Head(n int) map[string][]string {
	out := make(map[string][]string, len(f.cols))
	for _, col := range f.cols {
		var vals []string
		for _, v := range col.Text {
			if v == "" {
				continue
			}
			vals = append(vals, v)
			if len(vals) == n {
				break
			}
		}
		out[col.Name] = vals
	}
	return out
}

// Concat stacks b under a. The result keeps a's labels in order followed by
// labels only b has; cells a column lacks are blank.
func Concat(a, b *Frame) *Frame {
	labels := a.Labels()
	for _, l := range b.Labels() {
		if !a.Has(l) {
			labels = append(labels, l)
		}
	}

	rows := make([][]string, 0, a.rows+b.rows)
	for _, src := range []*Frame{a, b} {
		for r := 0; r < src.rows; r++ {
			row := make([]string, len(labels))
			for c, l := range labels {
				if col := src.Column(l); col != nil {
					row[c] = col.Text[r]
				}
			}
			rows = append(rows, row)
		}
	}
	return New(labels, rows)
}
