package metrics

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/coerce"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/roles"
)

// build coerces f for the given bindings and computes the document.
func build(t *testing.T, f *frame.Frame, bind map[roles.Role]string) Document {
	t.Helper()
	m := roles.NewMap()
	for r, l := range bind {
		require.True(t, f.Has(l), "fixture lacks %s", l)
		m.Set(r, l, 1, roles.SourceOverride)
	}
	res := coerce.Apply(f, m.Targets(), coerce.DefaultThreshold)
	return Compute(Input{Frame: res.Frame, Roles: m, Warnings: res.Warnings})
}

func TestTinyFile(t *testing.T) {
	f := frame.New([]string{"Date", "Item", "Revenue"}, [][]string{
		{"2024-01-01", "Widget", "10"},
		{"2024-01-02", "Widget", "20"},
	})
	doc := build(t, f, map[roles.Role]string{
		roles.OrderDate: "Date", roles.ProductName: "Item", roles.SalesAmount: "Revenue",
	})

	s := doc[KeySummary].(map[string]any)
	assert.Equal(t, "low", s["reliability"])
	assert.Equal(t, 30.0, s["total_sales"])
	assert.Equal(t, 1, s["duration_days"])
	assert.Equal(t, map[string]any{"start": "2024-01-01", "end": "2024-01-02"}, s["date_range"])

	top := doc[KeyTopProducts].([]any)
	require.Len(t, top, 1)
	assert.Equal(t, "Widget", top[0].(map[string]any)["name"])

	ts := doc[KeyTimeSeries].(map[string]any)
	assert.Equal(t, PeriodDaily, ts["period_type"])
	assert.Equal(t, []float64{10, 20}, ts["data"])
	assert.NotContains(t, ts, "trend_line")
	assert.NotContains(t, doc[KeySalesGrowth].(map[string]any), "trend")
	assert.Equal(t, 100.0, doc[KeySalesGrowth].(map[string]any)["rate"])
}

func TestEveryTopLevelKeyPresent(t *testing.T) {
	f := frame.New([]string{"a"}, [][]string{{"x"}})
	doc := Compute(Input{Frame: f})
	for _, k := range append(append([]string{}, ListKeys...), ObjectKeys...) {
		assert.Contains(t, doc, k)
	}
	assert.Len(t, doc, 17)
	assert.Equal(t, []any{}, doc[KeyTopProducts])
}

func TestDegradedSalesColumn(t *testing.T) {
	rows := [][]string{}
	for i := 0; i < 10; i++ {
		amount := "N/A"
		if i%5 < 2 {
			amount = fmt.Sprintf("%d", (i+1)*10)
		}
		rows = append(rows, []string{fmt.Sprintf("2024-01-%02d", i+1), "P", amount})
	}
	f := frame.New([]string{"date", "product", "amount"}, rows)
	doc := build(t, f, map[roles.Role]string{
		roles.OrderDate: "date", roles.ProductName: "product", roles.SalesAmount: "amount",
	})

	s := doc[KeySummary].(map[string]any)
	// Rows 1, 2, 6 and 7 carry amounts.
	assert.Equal(t, 10.0+20+60+70, s["total_sales"])
	assert.Equal(t, 4, s["total_transactions"])
	assert.Contains(t, s["warnings"], "could not convert column amount to numeric")
}

func TestCancelledOrders(t *testing.T) {
	statuses := []string{"delivered", "cancelled", "delivered", "returned", "Delivered", "cancelled", "delivered", "returned", "cancelled", "delivered"}
	rows := make([][]string, len(statuses))
	for i, st := range statuses {
		rows[i] = []string{fmt.Sprintf("O%d", i), st, "100"}
	}
	f := frame.New([]string{"order id", "status", "amount"}, rows)
	doc := build(t, f, map[roles.Role]string{
		roles.OrderID: "order id", roles.TransactionType: "status", roles.SalesAmount: "amount",
	})

	om := doc[KeyOrderMetrics].(map[string]any)
	assert.Equal(t, 10, om["total_orders"])
	assert.Equal(t, 3, om["cancelled_orders"])
	assert.Equal(t, 2, om["returned_orders"])
	assert.Equal(t, 5, om["regular_orders"])
	assert.Equal(t, 50.0, om["issue_rate"])
	assert.Equal(t, 300.0, om["cancelled_value"])
	assert.Equal(t, 10, om["unique_orders"])

	sum := 0
	for _, k := range []string{"regular_orders", "cancelled_orders", "replaced_orders", "refunded_orders", "returned_orders"} {
		sum += om[k].(int)
	}
	assert.Equal(t, om["total_orders"], sum)

	types := doc[KeyTransactionTypes].([]any)
	assert.LessOrEqual(t, len(types), 5)
	assert.Equal(t, "delivered", types[0].(map[string]any)["name"])
	assert.Equal(t, 5, types[0].(map[string]any)["count"])

	s := doc[KeySummary].(map[string]any)
	assert.Equal(t, 20.0, s["return_rate"])
	assert.Equal(t, 30.0, s["cancellation_rate"])
}

func TestClassifyStatus(t *testing.T) {
	tests := map[string]string{
		"Cancelled":            StatusCancelled,
		"return cancelled":     StatusCancelled,
		"Exchange requested":   StatusReplaced,
		"replacement":          StatusReplaced,
		"Refund initiated":     StatusRefunded,
		"chargeback":           StatusRefunded,
		"money back guarantee": StatusRefunded,
		"RTO returned":         StatusReturned,
		"delivered":            StatusRegular,
		"":                     StatusRegular,
	}
	for in, want := range tests {
		assert.Equal(t, want, ClassifyStatus(in), in)
	}
}

func TestGranularity(t *testing.T) {
	assert.Equal(t, PeriodQuarterly, Granularity(800*day))
	assert.Equal(t, PeriodMonthly, Granularity(120*day))
	assert.Equal(t, PeriodDaily, Granularity(30*day))
	assert.Equal(t, PeriodDaily, Granularity(day))
	assert.Equal(t, PeriodHourly, Granularity(6*time.Hour))

	ts := time.Date(2024, 8, 5, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024Q3", PeriodLabel(ts, PeriodQuarterly))
	assert.Equal(t, "2024-08", PeriodLabel(ts, PeriodMonthly))
	assert.Equal(t, "2024-08-05 14:00", PeriodLabel(ts, PeriodHourly))
}

func monthlyFrame() *frame.Frame {
	var rows [][]string
	products := []string{"Kurta", "Saree", "Dupatta", "Lehenga", "Shirt", "Jeans", "Top"}
	states := []string{"Delhi", "Goa", "Kerala", "Punjab", "Bihar"}
	for m := 1; m <= 8; m++ {
		for k := 0; k < m; k++ {
			rows = append(rows, []string{
				fmt.Sprintf("2024-%02d-%02d", m, k+1),
				products[(m+k)%len(products)],
				states[(m*k)%len(states)],
				fmt.Sprintf("%d", 100+10*k),
				[]string{"online", "retail"}[k%2],
			})
		}
	}
	return frame.New([]string{"date", "product", "state", "amount", "channel"}, rows)
}

func TestTrendGrowthAndInvariants(t *testing.T) {
	f := monthlyFrame()
	doc := build(t, f, map[roles.Role]string{
		roles.OrderDate: "date", roles.ProductName: "product", roles.CustomerLocation: "state",
		roles.SalesAmount: "amount", roles.SalesChannel: "channel",
	})

	ts := doc[KeyTimeSeries].(map[string]any)
	assert.Equal(t, PeriodMonthly, ts["period_type"])
	labels := ts["labels"].([]string)
	data := ts["data"].([]float64)
	require.Len(t, labels, 8)

	// Period sums equal a direct group-by.
	amounts := coerce.Numbers(f.Column("amount"))
	want := map[string]float64{}
	for i, d := range f.Column("date").Text {
		want[d[:7]] += amounts[i]
	}
	for i, l := range labels {
		assert.InDelta(t, want[l], data[i], 1e-9, l)
	}

	g := doc[KeySalesGrowth].(map[string]any)
	trend := g["trend"].(map[string]any)
	assert.Equal(t, "upward", trend["direction"])
	assert.Equal(t, "strong", trend["strength"])
	assert.Len(t, ts["trend_line"], 8)
	ma := ts["moving_average"].([]float64)
	assert.True(t, math.IsNaN(ma[0]))
	assert.False(t, math.IsNaN(ma[1]))
	gr := ts["growth_rates"].(map[string]any)
	assert.Len(t, gr["data"], 7)
	assert.Contains(t, gr, "average")

	pd := doc[KeyProductDistribution].(map[string]any)
	assert.Equal(t, othersLabel, pd["labels"].([]string)[5])
	total := 0.0
	for _, p := range pd["percentages"].([]float64) {
		total += p
	}
	assert.InDelta(t, 100, total, 0.1)

	om := doc[KeyOrderMetrics].(map[string]any)
	best := om["top_selling_state"].(map[string]any)["value"].(float64)
	worst := om["lowest_selling_state"].(map[string]any)["value"].(float64)
	for _, r := range doc[KeyRegionMapData].([]any) {
		v := r.(map[string]any)["value"].(float64)
		assert.GreaterOrEqual(t, best, v)
		assert.LessOrEqual(t, worst, v)
		b := r.(map[string]any)["bucket"].(int)
		assert.True(t, b >= 1 && b <= 4)
	}

	channels := doc[KeySalesChannels].([]any)
	require.Len(t, channels, 2)
	assert.Contains(t, channels[0].(map[string]any), "efficiency")
	assert.Equal(t, 2, doc[KeySummary].(map[string]any)["channel_count"])

	vis := doc[KeyVisualizationData].(map[string]any)
	assert.Contains(t, vis, "sales_trend")
	assert.Contains(t, vis, KeyProductDistribution)
}

func TestKeyMetricsOrder(t *testing.T) {
	doc := build(t, monthlyFrame(), map[roles.Role]string{
		roles.OrderDate: "date", roles.ProductName: "product", roles.CustomerLocation: "state", roles.SalesAmount: "amount",
	})
	km := doc[KeyKeyMetrics].(map[string]any)

	labelsOf := func(key string) []string {
		var out []string
		for _, it := range km[key].([]any) {
			out = append(out, it.(map[string]any)["label"].(string))
		}
		return out
	}
	assert.Equal(t, []string{"Total Sales", "Average Order Value", "Average Daily Sales"}, labelsOf("order_metrics"))
	assert.Empty(t, labelsOf("issue_metrics"))
	assert.Equal(t, []string{"Top Region", "Top Region Sales", "Lowest Region", "Lowest Region Sales", "Regions Served"}, labelsOf("region_metrics"))
	assert.Equal(t, []string{"Total Products", "Top Product", "Top Product Sales", "Top 5 Share"}, labelsOf("product_metrics"))

	first := km["order_metrics"].([]any)[0].(map[string]any)
	assert.Equal(t, FormatCurrency, first["format"])
	assert.Equal(t, "orders", first["category"])
}

func TestDisplayNameTruncates(t *testing.T) {
	long := strings.Repeat("é", 60)
	got := displayName(long)
	assert.Equal(t, 50, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "short", displayName("short"))
}

func TestBottomProductsAscending(t *testing.T) {
	f := frame.New([]string{"product", "amount", "x"}, [][]string{
		{"A", "5", ""}, {"B", "1", ""}, {"C", "3", ""}, {"B", "1", ""},
	})
	doc := build(t, f, map[roles.Role]string{roles.ProductName: "product", roles.SalesAmount: "amount"})
	bottom := doc[KeyBottomProducts].([]any)
	assert.Equal(t, "B", bottom[0].(map[string]any)["name"])
	assert.Equal(t, 2, bottom[0].(map[string]any)["transaction_count"])
	assert.Equal(t, "A", doc[KeyTopProducts].([]any)[0].(map[string]any)["name"])
}

func TestProductDistributionPercentages(t *testing.T) {
	tests := []struct {
		name    string
		amounts []string
		wantSum float64
		empty   bool
	}{
		{name: "positive sales", amounts: []string{"10", "20", "30", "5", "7", "11", "13"}, wantSum: 100},
		{name: "all zero", amounts: []string{"0", "0", "0", "0"}, empty: true},
		{name: "refund cancels sale", amounts: []string{"50", "-50", "0"}, empty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, len(tt.amounts))
			for i, a := range tt.amounts {
				rows[i] = []string{fmt.Sprintf("P%d", i), a, ""}
			}
			f := frame.New([]string{"product", "amount", "x"}, rows)
			doc := build(t, f, map[roles.Role]string{roles.ProductName: "product", roles.SalesAmount: "amount"})

			assert.Len(t, doc[KeyTopProducts], min(len(tt.amounts), 10))
			dist := doc[KeyProductDistribution].(map[string]any)
			if tt.empty {
				assert.Empty(t, dist)
				return
			}
			total := 0.0
			for _, p := range dist["percentages"].([]float64) {
				total += p
			}
			assert.InDelta(t, tt.wantSum, total, 0.1)
		})
	}
}

func TestReliability(t *testing.T) {
	assert.Equal(t, "low", Reliability(4))
	assert.Equal(t, "medium", Reliability(5))
	assert.Equal(t, "high", Reliability(20))
}
