package platform

import (
	"math"
	"sort"
	"strings"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/coerce"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/roles"
)

// maxDeliveryDays caps per-order delivery time.
const maxDeliveryDays = 30

var deliveryBuckets = []struct {
	label string
	upper float64
}{
	{"0-2", 2}, {"2-4", 4}, {"4-7", 7}, {"7-14", 14}, {"14+", math.Inf(1)},
}

func flipkart(in Input, out map[string]any) {
	sales := in.sales()

	if col := in.status(); col != nil {
		shipped, returned, cancelled := 0, 0, 0
		for _, v := range col.Text {
			s := strings.ToLower(v)
			switch {
			case strings.Contains(s, "cancel"):
				cancelled++
			case strings.Contains(s, "return"):
				returned++
			case containsAny(s, "ship", "deliver"):
				shipped++
			}
		}
		out["order_status"] = map[string]any{"shipped": shipped, "returned": returned, "cancelled": cancelled}
		out["return_rate"] = pct(float64(returned), float64(shipped+returned))
	}

	if col := in.find("payment"); col != nil {
		out["payment_methods"] = topShare(col.Text, sales, 5)
	}

	if fees := in.findAll([]string{"fee"}, []string{"commission"}); len(fees) > 0 && sales != nil {
		totalSales := total(sales)
		var totalFees float64
		names := make([]string, 0, len(fees))
		perColumn := map[string]any{}
		for _, col := range fees {
			f := 0.0
			for _, v := range finite(coerce.Numbers(col)) {
				f += math.Abs(v)
			}
			totalFees += f
			names = append(names, col.Name)
			perColumn[col.Name] = f
		}
		out["total_fees"] = totalFees
		out["fee_percentage"] = pct(totalFees, totalSales)
		out["fee_analysis"] = map[string]any{
			"fee_columns":   names,
			"by_column":     perColumn,
			"net_sales":     totalSales - totalFees,
			"fee_per_order": totalFees / math.Max(1, float64(len(finite(sales)))),
		}
	}

	if perf := deliveryPerformance(in); perf != nil {
		out["delivery_performance"] = perf
	}
}

func deliveryPerformance(in Input) map[string]any {
	orderCol := in.role(roles.OrderDate)
	deliverCol := in.findDelivery()
	if orderCol == nil || deliverCol == nil || deliverCol.Name == orderCol.Name {
		return nil
	}
	ordered := coerce.Times(orderCol)
	delivered := coerce.Times(deliverCol)

	var days []float64
	for i := range ordered {
		if ordered[i].IsZero() || delivered[i].IsZero() {
			continue
		}
		d := delivered[i].Sub(ordered[i]).Hours() / 24
		days = append(days, math.Min(maxDeliveryDays, math.Max(0, d)))
	}
	if len(days) == 0 {
		return nil
	}

	sorted := append([]float64(nil), days...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	labels := make([]string, len(deliveryBuckets))
	counts := make([]int, len(deliveryBuckets))
	for i, b := range deliveryBuckets {
		labels[i] = b.label
	}
	for _, d := range days {
		for i, b := range deliveryBuckets {
			if d < b.upper {
				counts[i]++
				break
			}
		}
	}

	return map[string]any{
		"delivery_column": deliverCol.Name,
		"average_days":    total(days) / float64(len(days)),
		"median_days":     median,
		"min_days":        sorted[0],
		"max_days":        sorted[len(sorted)-1],
		"distribution":    map[string]any{"labels": labels, "data": counts},
	}
}

func (in Input) findDelivery() *frame.Column {
	cols := in.findAll([]string{"deliver", "date"}, []string{"delivered on"}, []string{"delivery", "time"})
	if len(cols) == 0 {
		return nil
	}
	return cols[0]
}
