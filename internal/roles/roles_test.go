package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/marketplace"
)

func TestIdentifyAmazonTable(t *testing.T) {
	f := frame.New(
		[]string{"amazon order id", "asin", "item total", "purchase date", "fulfillment channel"},
		[][]string{
			{"402-1", "B0A1", "499.00", "2024-03-01T10:00:00+00:00", "Amazon"},
			{"402-2", "B0A2", "299.00", "2024-03-02T10:00:00+00:00", "Merchant"},
			{"402-3", "B0A1", "499.00", "2024-03-03T10:00:00+00:00", "Amazon"},
		},
	)

	m := NewIdentifier().Identify(context.Background(), f, marketplace.Amazon, nil)

	assert.Equal(t, "item total", m.Columns[SalesAmount])
	assert.Equal(t, "purchase date", m.Columns[OrderDate])
	assert.Equal(t, "amazon order id", m.Columns[OrderID])
	assert.Equal(t, "fulfillment channel", m.Columns[SalesChannel])
	assert.Equal(t, SourceMarketplace, m.Sources[SalesAmount])
	assert.Equal(t, 1.0, m.Confidence[SalesAmount])
}

func TestIdentifyTinyFileUsesSynonyms(t *testing.T) {
	f := frame.New([]string{"Date", "Item", "Revenue"}, [][]string{
		{"2024-01-01", "Widget", "10"},
		{"2024-01-02", "Widget", "20"},
	})

	m := NewIdentifier().Identify(context.Background(), f, marketplace.Generic, nil)

	assert.Equal(t, "Date", m.Columns[OrderDate])
	assert.Equal(t, "Item", m.Columns[ProductName])
	assert.Equal(t, "Revenue", m.Columns[SalesAmount])
	assert.Contains(t, m.Warnings, DegenerateWarning)
}

func heuristicFrame() *frame.Frame {
	return frame.New(
		[]string{"placed_on", "listing", "paid", "units", "ref", "remark"},
		[][]string{
			{"2024-01-01", "Cotton Kurta Blue", "₹450.50", "1", "OD10001A", "delivered"},
			{"2024-01-02", "Silk Saree Red", "₹1,200.00", "2", "OD10002B", "cancelled"},
			{"2024-01-03", "Kids Cotton Set", "₹300.25", "1", "OD10003C", "delivered"},
			{"2024-01-04", "Men Black Shirt", "₹799.00", "3", "OD10004D", "returned"},
			{"2024-01-05", "Phone Cover Combo", "₹199.99", "1", "OD10005E", "delivered"},
			{"2024-01-06", "White Sandal Women", "₹650.00", "2", "OD10006F", "shipped"},
		},
	)
}

func TestIdentifyHeuristics(t *testing.T) {
	m := NewIdentifier().Identify(context.Background(), heuristicFrame(), marketplace.Generic, nil)

	assert.Equal(t, "paid", m.Columns[SalesAmount])
	assert.Equal(t, "placed_on", m.Columns[OrderDate])
	assert.Equal(t, "units", m.Columns[Quantity])
	assert.Equal(t, "ref", m.Columns[OrderID])
	assert.Equal(t, "listing", m.Columns[ProductName])
	assert.Equal(t, "remark", m.Columns[TransactionType])
	assert.Equal(t, SourceHeuristic, m.Sources[SalesAmount])
	assert.Equal(t, SourceSynonym, m.Sources[Quantity])
	assert.NotContains(t, m.Warnings, DegenerateWarning)

	seen := map[string]bool{}
	for _, l := range m.Columns {
		assert.False(t, seen[l], "label %s bound twice", l)
		seen[l] = true
	}
}

func TestIdentifyUnitPriceByRatio(t *testing.T) {
	f := frame.New([]string{"amount", "qty", "p", "sku_code"}, [][]string{
		{"100", "2", "50", "A1"},
		{"90", "3", "30", "B2"},
		{"45", "1", "45", "C3"},
		{"80", "4", "20", "D4"},
	})

	m := NewIdentifier().Identify(context.Background(), f, marketplace.Generic, nil)
	assert.Equal(t, "p", m.Columns[UnitPrice])
	assert.InDelta(t, 1.0, m.Confidence[UnitPrice], 1e-9)
}

func TestIdentifyFlagsIncompatibleTypes(t *testing.T) {
	f := frame.New([]string{"date", "product", "amount"}, [][]string{
		{"2024-01-01", "A", "N/A"},
		{"2024-01-02", "B", "N/A"},
		{"2024-01-03", "C", "N/A"},
		{"2024-01-04", "D", "10"},
	})

	m := NewIdentifier().Identify(context.Background(), f, marketplace.Generic, nil)
	assert.Equal(t, "amount", m.Columns[SalesAmount])
	assert.Contains(t, m.Warnings, "data-type warning: column amount mapped to sales_amount is mostly non-numeric")
	assert.InDelta(t, 0.45, m.Confidence[SalesAmount], 1e-9)
}

func TestIdentifyWarnsOnMissingCriticalRoles(t *testing.T) {
	f := frame.New([]string{"alpha", "beta", "gamma"}, [][]string{{"1", "2", "3"}})
	m := NewIdentifier().Identify(context.Background(), f, marketplace.Generic, nil)

	assert.Contains(t, m.Warnings, "could not identify a column for sales_amount")
	assert.Contains(t, m.Warnings, "could not identify a column for order_date")
}

type fakeAdvisor struct {
	proposal *Proposal
	err      error
	calls    int
}

func (a *fakeAdvisor) ProposeRoles(_ context.Context, labels []string, samples map[string][]string, _ marketplace.Platform) (*Proposal, error) {
	a.calls++
	if len(labels) != len(samples) {
		return nil, errors.New("samples do not cover labels")
	}
	return a.proposal, a.err
}

func plainFrame() *frame.Frame {
	return frame.New([]string{"alpha", "beta", "gamma"}, [][]string{
		{"p", "q", "r"},
		{"s", "t", "u"},
		{"v", "w", "x"},
	})
}

func TestAdvisorFusion(t *testing.T) {
	adv := &fakeAdvisor{proposal: &Proposal{
		Roles: map[Role]string{
			ProductName: "beta",
			SalesAmount: "GAMMA",
			OrderDate:   "nonexistent",
		},
		Confidence: map[Role]float64{ProductName: 0.9},
		Warnings:   []string{"sample too small"},
	}}

	m := NewIdentifier(WithAdvisor(adv, 0)).Identify(context.Background(), plainFrame(), marketplace.Generic, nil)

	assert.Equal(t, 1, adv.calls)
	assert.Equal(t, "beta", m.Columns[ProductName])
	assert.Equal(t, SourceAdvisor, m.Sources[ProductName])
	assert.InDelta(t, 0.9, m.Confidence[ProductName], 1e-9)
	assert.Equal(t, "gamma", m.Columns[SalesAmount])
	assert.Contains(t, m.Warnings, `advisor proposed unknown column "nonexistent" for order_date`)
	assert.Contains(t, m.Warnings, "advisor: sample too small")
	assert.NotContains(t, m.Warnings, AdvisorFallbackWarning)
}

func TestAdvisorSubstringMatchIsDowngraded(t *testing.T) {
	adv := &fakeAdvisor{proposal: &Proposal{Roles: map[Role]string{ProductName: "alp"}}}
	m := NewIdentifier(WithAdvisor(adv, 0)).Identify(context.Background(), plainFrame(), marketplace.Generic, nil)

	// 0.8 * 0.6 is below the heuristic confidence for alpha.
	assert.Equal(t, "alpha", m.Columns[ProductName])
	assert.Equal(t, SourceHeuristic, m.Sources[ProductName])
}

func TestAdvisorFailureFallsBack(t *testing.T) {
	tests := []struct {
		name string
		adv  *fakeAdvisor
	}{
		{"error", &fakeAdvisor{err: errors.New("timeout")}},
		{"no critical roles", &fakeAdvisor{proposal: &Proposal{Roles: map[Role]string{CustomerID: "gamma"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewIdentifier(WithAdvisor(tt.adv, 0)).Identify(context.Background(), plainFrame(), marketplace.Generic, nil)
			assert.Contains(t, m.Warnings, AdvisorFallbackWarning)
			assert.Equal(t, "alpha", m.Columns[ProductName])
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	f := plainFrame()
	m := NewMap()
	m.Set(ProductName, "alpha", 0.5, SourceHeuristic)

	m.ApplyOverrides(f, map[string]string{
		"sales_amount": "alpha",
		"order_date":   "missing",
		"bogus_role":   "beta",
	})

	assert.Equal(t, "alpha", m.Columns[SalesAmount])
	assert.False(t, m.Has(ProductName), "alpha moved to the override role")
	assert.False(t, m.Has(OrderDate))
	assert.Contains(t, m.Warnings, "ignored mapping order_date=missing: column not found")
	assert.Contains(t, m.Warnings, "ignored mapping for unknown role bogus_role")
}

func TestMapValidateAndTargets(t *testing.T) {
	f := plainFrame()
	m := NewMap()
	m.Set(SalesAmount, "alpha", 1, SourceOverride)
	m.Set(OrderDate, "beta", 1, SourceOverride)
	m.Set(ProductName, "gamma", 1, SourceOverride)
	m.Set(Quantity, "gone", 1, SourceOverride)

	m.Validate(f)
	require.False(t, m.Has(Quantity))

	targets := m.Targets()
	require.Len(t, targets, 2)
	assert.Equal(t, "alpha", targets[0].Label)
	assert.Equal(t, frame.KindNumber, targets[0].Kind)
	assert.Equal(t, frame.KindTime, targets[1].Kind)
	assert.Equal(t, map[string]string{"sales_amount": "alpha", "order_date": "beta", "product_name": "gamma"}, m.Labels())
}

func TestIDLabel(t *testing.T) {
	assert.True(t, idLabel("Order ID"))
	assert.True(t, idLabel("order_no"))
	assert.True(t, idLabel("OrderId"))
	assert.False(t, idLabel("amount paid"))
	assert.False(t, idLabel("notes"))
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("cancel_return_date")
	assert.True(t, ok)
	assert.Equal(t, CancelReturnDate, r)
	_, ok = ParseRole("revenue")
	assert.False(t, ok)
	assert.Len(t, All, 12)
}
