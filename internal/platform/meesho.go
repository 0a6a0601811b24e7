package platform

import (
	"math"
	"sort"
	"strings"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/coerce"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/roles"
)

var priceTiers = []struct {
	label string
	upper float64
}{
	{"<250", 250}, {"250-500", 500}, {"500-1000", 1000}, {"1000-2000", 2000}, {"2000+", math.Inf(1)},
}

const topCategories = 10

func meesho(in Input, out map[string]any) {
	sales := in.sales()
	rows := in.Frame.Len()

	out["payment_methods"] = paymentSplit(in, sales)
	if pm, ok := out["payment_methods"].([]any); ok {
		for _, it := range pm {
			m := it.(map[string]any)
			if m["name"] == "COD" {
				out["cod_percentage"] = m["percentage"]
			}
		}
	}

	status := in.status()
	var recordType []string
	if in.RecordTypeLabel != "" {
		if col := in.Frame.Column(in.RecordTypeLabel); col != nil {
			recordType = col.Text
		}
	}
	if status != nil || recordType != nil {
		accepted, returned, withStatus := 0, 0, 0
		for i := 0; i < rows; i++ {
			s := ""
			if status != nil {
				s = strings.ToLower(status.Text[i])
			}
			if s != "" {
				withStatus++
				if containsAny(s, "accept", "ship", "deliver") {
					accepted++
				}
			}
			if strings.Contains(s, "return") || (recordType != nil && recordType[i] == "return") {
				returned++
			}
		}
		if withStatus > 0 {
			out["acceptance_rate"] = pct(float64(accepted), float64(withStatus))
		}
		out["return_rate"] = pct(float64(returned), float64(rows))
		out["returned_orders"] = returned
	}

	if cat := categoryColumn(in); cat != nil && sales != nil {
		bs := tally(cat, sales)
		sort.SliceStable(bs, func(i, j int) bool { return bs[i].value > bs[j].value })
		if len(bs) > topCategories {
			bs = bs[:topCategories]
		}
		perf := make([]any, 0, len(bs))
		for _, b := range bs {
			perf = append(perf, map[string]any{
				"name":                b.name,
				"value":               b.value,
				"transaction_count":   b.count,
				"average_order_value": b.value / float64(b.count),
			})
		}
		out["category_performance"] = perf
	}

	prices := coerce.Numbers(in.role(roles.UnitPrice))
	if prices == nil {
		prices = sales
	}
	if prices != nil {
		labels := make([]string, len(priceTiers))
		counts := make([]int, len(priceTiers))
		for i, t := range priceTiers {
			labels[i] = t.label
		}
		for _, p := range finite(prices) {
			for i, t := range priceTiers {
				if p < t.upper {
					counts[i]++
					break
				}
			}
		}
		out["price_tiers"] = map[string]any{"labels": labels, "data": counts}
	}
}

// paymentSplit classifies rows as COD or Prepaid. Without a payment column
// every row is Unknown.
func paymentSplit(in Input, sales []float64) []any {
	col := in.find("payment")
	modes := make([]string, in.Frame.Len())
	for i := range modes {
		switch {
		case col == nil || col.Text[i] == "":
			modes[i] = "Unknown"
		case containsAny(strings.ToLower(col.Text[i]), "cod", "cash"):
			modes[i] = "COD"
		default:
			modes[i] = "Prepaid"
		}
	}
	return topShare(modes, sales, 3)
}

func categoryColumn(in Input) []string {
	if col := in.role(roles.ProductCategory); col != nil {
		return col.Text
	}
	if col := in.find("category"); col != nil {
		return col.Text
	}
	return nil
}
