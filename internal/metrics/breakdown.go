package metrics

import (
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/roles"
)

const (
	topProducts    = 10
	bottomProducts = 5
	distProducts   = 5
	topRegions     = 10
	othersLabel    = "Others"
)

func item(g *group) map[string]any {
	return map[string]any{"name": displayName(g.name), "value": g.value, "transaction_count": g.count}
}

func (c *calc) products() {
	names := c.text(roles.ProductName)
	if names == nil || c.sales == nil {
		return
	}
	groups := groupBy(names, c.sales)
	if len(groups) == 0 {
		return
	}
	total := totalValue(groups)
	desc := byValueDesc(groups)

	top := make([]any, 0, topProducts)
	for _, g := range head(desc, topProducts) {
		top = append(top, item(g))
	}
	bottom := make([]any, 0, bottomProducts)
	for _, g := range head(byValueAsc(groups), bottomProducts) {
		bottom = append(bottom, item(g))
	}
	c.doc[KeyTopProducts] = top
	c.doc[KeyBottomProducts] = bottom

	top5 := head(desc, distProducts)
	s := c.doc.Object(KeySummary)
	s["total_products"] = len(groups)
	s["top5_products_pct"] = pct(totalValue(top5), total)

	// Percentages need a non-zero total.
	if total == 0 {
		return
	}
	dist := append([]*group(nil), top5...)
	if len(desc) > distProducts {
		rest := &group{name: othersLabel}
		for _, g := range desc[distProducts:] {
			rest.value += g.value
			rest.count += g.count
		}
		dist = append(dist, rest)
	}
	c.doc[KeyProductDistribution] = distribution(dist, total)
}

func (c *calc) regions() {
	names := c.text(roles.CustomerLocation)
	if names == nil || c.sales == nil {
		return
	}
	groups := groupBy(names, c.sales)
	if len(groups) == 0 {
		return
	}
	total := totalValue(groups)
	desc := byValueDesc(groups)

	top := make([]any, 0, topRegions)
	for _, g := range head(desc, topRegions) {
		it := item(g)
		it["percentage"] = pct(g.value, total)
		top = append(top, it)
	}
	c.doc[KeyTopRegions] = top
	c.doc[KeyRegionDistribution] = distribution(head(desc, topRegions), total)

	best, worst := desc[0], byValueAsc(groups)[0]
	om := c.doc.Object(KeyOrderMetrics)
	om["top_selling_state"] = map[string]any{"name": best.name, "value": best.value}
	om["lowest_selling_state"] = map[string]any{"name": worst.name, "value": worst.value}

	values := make([]float64, len(groups))
	for i, g := range groups {
		values[i] = g.value
	}
	q1, q2, q3 := quantile(values, 0.25), quantile(values, 0.5), quantile(values, 0.75)
	mapData := make([]any, 0, len(desc))
	for _, g := range desc {
		bucket := 4
		switch {
		case g.value <= q1:
			bucket = 1
		case g.value <= q2:
			bucket = 2
		case g.value <= q3:
			bucket = 3
		}
		mapData = append(mapData, map[string]any{
			"name":              g.name,
			"value":             g.value,
			"transaction_count": g.count,
			"bucket":            bucket,
		})
	}
	c.doc[KeyRegionMapData] = mapData
	c.doc.Object(KeySummary)["region_count"] = len(groups)
}

func (c *calc) channels() {
	names := c.text(roles.SalesChannel)
	if names == nil || c.sales == nil {
		return
	}
	groups := groupBy(names, c.sales)
	if len(groups) == 0 {
		return
	}
	total := totalValue(groups)
	desc := byValueDesc(groups)

	list := make([]any, 0, len(desc))
	labels := make([]string, len(desc))
	eff := make([]float64, len(desc))
	for i, g := range desc {
		e := 0.0
		if g.count > 0 {
			e = g.value / float64(g.count)
		}
		it := item(g)
		it["percentage"] = pct(g.value, total)
		it["efficiency"] = e
		list = append(list, it)
		labels[i] = displayName(g.name)
		eff[i] = e
	}
	c.doc[KeySalesChannels] = list
	c.doc[KeyChannelDistribution] = distribution(desc, total)
	c.doc[KeyChannelEfficiency] = map[string]any{"labels": labels, "data": eff}

	s := c.doc.Object(KeySummary)
	s["channel_count"] = len(groups)
	s["top_channel_pct"] = pct(desc[0].value, total)
}
