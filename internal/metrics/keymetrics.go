package metrics

// Key-metric formats.
const (
	FormatCurrency   = "currency"
	FormatPercentage = "percentage"
)

type metric struct {
	label  string
	from   map[string]any
	key    string
	format string
}

// rollup emits {label, value, category, format?} for every metric whose
// source value exists, preserving list order.
func rollup(category string, ms []metric) []any {
	out := make([]any, 0, len(ms))
	for _, m := range ms {
		v, ok := m.from[m.key]
		if !ok {
			continue
		}
		it := map[string]any{"label": m.label, "value": v, "category": category}
		if m.format != "" {
			it["format"] = m.format
		}
		out = append(out, it)
	}
	return out
}

func (c *calc) keyMetrics() {
	s := c.doc.Object(KeySummary)
	om := c.doc.Object(KeyOrderMetrics)

	region := map[string]any{}
	if top, ok := om["top_selling_state"].(map[string]any); ok {
		region["top_name"] = top["name"]
		region["top_value"] = top["value"]
	}
	if low, ok := om["lowest_selling_state"].(map[string]any); ok {
		region["low_name"] = low["name"]
		region["low_value"] = low["value"]
	}
	if n, ok := s["region_count"]; ok {
		region["count"] = n
	}

	product := map[string]any{}
	if n, ok := s["total_products"]; ok {
		product["count"] = n
	}
	if top, ok := c.doc[KeyTopProducts].([]any); ok && len(top) > 0 {
		first := top[0].(map[string]any)
		product["top_name"] = first["name"]
		product["top_value"] = first["value"]
	}
	if p, ok := s["top5_products_pct"]; ok {
		product["top5_pct"] = p
	}

	c.doc[KeyKeyMetrics] = map[string]any{
		"order_metrics": rollup("orders", []metric{
			{"Total Sales", s, "total_sales", FormatCurrency},
			{"Total Orders", om, "total_orders", ""},
			{"Average Order Value", s, "average_sale", FormatCurrency},
			{"Total Units Sold", s, "total_quantity", ""},
			{"Average Daily Sales", s, "average_daily_sales", FormatCurrency},
		}),
		"issue_metrics": rollup("issues", []metric{
			{"Cancellation Rate", om, "cancellation_rate", FormatPercentage},
			{"Return Rate", om, "return_rate", FormatPercentage},
			{"Replacement Rate", om, "replacement_rate", FormatPercentage},
			{"Refund Rate", om, "refund_rate", FormatPercentage},
			{"Issue Rate", om, "issue_rate", FormatPercentage},
		}),
		"region_metrics": rollup("regions", []metric{
			{"Top Region", region, "top_name", ""},
			{"Top Region Sales", region, "top_value", FormatCurrency},
			{"Lowest Region", region, "low_name", ""},
			{"Lowest Region Sales", region, "low_value", FormatCurrency},
			{"Regions Served", region, "count", ""},
		}),
		"product_metrics": rollup("products", []metric{
			{"Total Products", product, "count", ""},
			{"Top Product", product, "top_name", ""},
			{"Top Product Sales", product, "top_value", FormatCurrency},
			{"Top 5 Share", product, "top5_pct", FormatPercentage},
		}),
	}
}

// visualization bundles the chart-ready series.
func (c *calc) visualization() {
	v := c.doc.Object(KeyVisualizationData)

	if ts := c.doc.Object(KeyTimeSeries); len(ts) > 0 {
		trend := map[string]any{"labels": ts["labels"], "data": ts["data"], "period_type": ts["period_type"]}
		for _, k := range []string{"trend_line", "moving_average"} {
			if series, ok := ts[k]; ok {
				trend[k] = series
			}
		}
		v["sales_trend"] = trend
	}

	if top, ok := c.doc[KeyTopProducts].([]any); ok && len(top) > 0 {
		v["top_products"] = chart(top, "name", "value")
	}
	for _, k := range []string{KeyProductDistribution, KeyRegionDistribution, KeyChannelDistribution} {
		if d := c.doc.Object(k); len(d) > 0 {
			v[k] = d
		}
	}
	if types, ok := c.doc[KeyTransactionTypes].([]any); ok && len(types) > 0 {
		v["transaction_types"] = chart(types, "name", "count")
	}
}

func chart(items []any, labelKey, valueKey string) map[string]any {
	labels := make([]any, 0, len(items))
	data := make([]any, 0, len(items))
	for _, it := range items {
		m := it.(map[string]any)
		labels = append(labels, m[labelKey])
		data = append(data, m[valueKey])
	}
	return map[string]any{"labels": labels, "data": data}
}
