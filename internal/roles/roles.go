// Package roles maps frame columns onto the closed taxonomy of semantic
// roles the metrics engine understands.
package roles

import (
	"fmt"
	"sort"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/coerce"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
)

// Role is a semantic column role. The string values are part of the public
// column_mapping contract.
type Role string

const (
	SalesAmount      Role = "sales_amount"
	OrderDate        Role = "order_date"
	ProductName      Role = "product_name"
	CustomerLocation Role = "customer_location"
	SalesChannel     Role = "sales_channel"
	ProductCategory  Role = "product_category"
	OrderID          Role = "order_id"
	CustomerID       Role = "customer_id"
	UnitPrice        Role = "unit_price"
	Quantity         Role = "quantity"
	TransactionType  Role = "transaction_type"
	CancelReturnDate Role = "cancel_return_date"
)

// All lists every role in taxonomy order.
var All = []Role{
	SalesAmount, OrderDate, ProductName, CustomerLocation, SalesChannel, ProductCategory,
	OrderID, CustomerID, UnitPrice, Quantity, TransactionType, CancelReturnDate,
}

// Critical roles produce a warning when left unbound.
var Critical = []Role{SalesAmount, OrderDate, ProductName}

// ParseRole validates a role name.
func ParseRole(s string) (Role, bool) {
	for _, r := range All {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Kind is the storage type the role demands.
func (r Role) Kind() frame.Kind {
	switch r {
	case SalesAmount, UnitPrice, Quantity:
		return frame.KindNumber
	case OrderDate, CancelReturnDate:
		return frame.KindTime
	default:
		return frame.KindText
	}
}

// Source names the pass that bound a role.
type Source string

const (
	SourceMarketplace Source = "marketplace"
	SourceSynonym     Source = "synonym"
	SourceContainment Source = "containment"
	SourceHeuristic   Source = "heuristic"
	SourceAdvisor     Source = "advisor"
	SourceOverride    Source = "override"
)

// Map binds roles to column labels. Absent roles have no entry. Every label
// is the exact label of a column in the frame the map was built for, and no
// label is bound twice.
type Map struct {
	Columns    map[Role]string
	Confidence map[Role]float64
	Sources    map[Role]Source
	Warnings   []string
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{
		Columns:    make(map[Role]string),
		Confidence: make(map[Role]float64),
		Sources:    make(map[Role]Source),
	}
}

// Get returns the label bound to r.
func (m *Map) Get(r Role) (string, bool) {
	l, ok := m.Columns[r]
	return l, ok
}

// Has reports whether r is bound.
func (m *Map) Has(r Role) bool {
	_, ok := m.Columns[r]
	return ok
}

// RoleOf returns the role a label is bound to.
func (m *Map) RoleOf(label string) (Role, bool) {
	for _, r := range All {
		if m.Columns[r] == label {
			return r, true
		}
	}
	return "", false
}

// Set binds r to label, releasing any role that held label and any label r
// held before.
func (m *Map) Set(r Role, label string, confidence float64, src Source) {
	if prev, ok := m.RoleOf(label); ok && prev != r {
		m.Unset(prev)
	}
	m.Columns[r] = label
	m.Confidence[r] = clamp01(confidence)
	m.Sources[r] = src
}

// Unset removes r.
func (m *Map) Unset(r Role) {
	delete(m.Columns, r)
	delete(m.Confidence, r)
	delete(m.Sources, r)
}

// Warn appends a warning.
func (m *Map) Warn(format string, args ...any) {
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
}

// Used reports whether label is bound to any role.
func (m *Map) Used(label string) bool {
	_, ok := m.RoleOf(label)
	return ok
}

// Labels returns role name to label for bound roles.
func (m *Map) Labels() map[string]string {
	out := make(map[string]string, len(m.Columns))
	for r, l := range m.Columns {
		out[string(r)] = l
	}
	return out
}

// Validate drops bindings whose label is no longer in f.
func (m *Map) Validate(f *frame.Frame) {
	for _, r := range m.bound() {
		if !f.Has(m.Columns[r]) {
			m.Warn("column %s mapped to %s is not present in the file", m.Columns[r], r)
			m.Unset(r)
		}
	}
}

// Targets lists the coercions the bound roles demand.
func (m *Map) Targets() []coerce.Target {
	var out []coerce.Target
	for _, r := range All {
		l, ok := m.Columns[r]
		if !ok || r.Kind() == frame.KindText {
			continue
		}
		out = append(out, coerce.Target{Label: l, Kind: r.Kind()})
	}
	return out
}

// ApplyOverrides binds caller-supplied role to label pairs last. Unknown
// roles and labels missing from f are reported and ignored. An empty label
// unbinds the role.
func (m *Map) ApplyOverrides(f *frame.Frame, overrides map[string]string) {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		r, ok := ParseRole(k)
		if !ok {
			m.Warn("ignored mapping for unknown role %s", k)
			continue
		}
		label := overrides[k]
		if label == "" {
			m.Unset(r)
			continue
		}
		if !f.Has(label) {
			if alt := frame.NormalizeLabel(label); f.Has(alt) {
				label = alt
			} else {
				m.Warn("ignored mapping %s=%s: column not found", k, label)
				continue
			}
		}
		m.Set(r, label, 1, SourceOverride)
	}
}

// Clone returns an independent copy.
func (m *Map) Clone() *Map {
	out := NewMap()
	for r, l := range m.Columns {
		out.Columns[r] = l
	}
	for r, c := range m.Confidence {
		out.Confidence[r] = c
	}
	for r, s := range m.Sources {
		out.Sources[r] = s
	}
	out.Warnings = append([]string(nil), m.Warnings...)
	return out
}

// bound returns bound roles in taxonomy order.
func (m *Map) bound() []Role {
	var out []Role
	for _, r := range All {
		if _, ok := m.Columns[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
