package platform

import (
	"math"
	"strings"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/metrics"
)

var b2bValueTokens = []string{"b2b", "business", "amazon business", "fulfilled by amazon"}

func amazon(in Input, out map[string]any) {
	sales := in.sales()

	if sales != nil {
		b2b, b2c := 0.0, 0.0
		col := in.find("b2b", "business", "fulfilment", "fulfillment", "channel")
		for i, v := range sales {
			if math.IsNaN(v) {
				continue
			}
			if col != nil && containsAny(strings.ToLower(col.Text[i]), b2bValueTokens...) {
				b2b += v
			} else {
				b2c += v
			}
		}
		if col != nil {
			out["b2b_column"] = col.Name
		}
		out["b2b_sales"] = b2b
		out["b2c_sales"] = b2c
		out["b2b_percentage"] = pct(b2b, b2b+b2c)
		out["sales_by_type"] = []any{
			map[string]any{"name": "B2B", "value": b2b},
			map[string]any{"name": "B2C", "value": b2c},
		}
	}

	if col := in.find("fulfillment", "fulfilment", "fulfil"); col != nil {
		out["fulfillment_methods"] = topShare(col.Text, sales, 5)
	}
	if col := in.find("ship service level", "shipping", "ship service", "ship level"); col != nil {
		out["shipping_categories"] = topShare(col.Text, sales, 5)
	}

	if col := in.status(); col != nil {
		counts := map[string]int{}
		n := 0
		for _, v := range col.Text {
			if v == "" {
				continue
			}
			n++
			counts[metrics.ClassifyStatus(v)]++
		}
		out["order_status"] = map[string]any{
			"total":       n,
			"cancelled":   counts[metrics.StatusCancelled],
			"replacement": counts[metrics.StatusReplaced],
			"refund":      counts[metrics.StatusRefunded],
			"returned":    counts[metrics.StatusReturned],
			"regular":     counts[metrics.StatusRegular],
		}
		if n > 0 {
			out["cancellation_rate"] = pct(float64(counts[metrics.StatusCancelled]), float64(n))
			out["replacement_rate"] = pct(float64(counts[metrics.StatusReplaced]), float64(n))
			out["refund_rate"] = pct(float64(counts[metrics.StatusRefunded]), float64(n))
			out["regular_rate"] = pct(float64(counts[metrics.StatusRegular]), float64(n))
		}
	}
}
