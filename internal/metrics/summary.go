package metrics

import (
	"math"
	"time"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/coerce"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/roles"
)

const isoDate = "2006-01-02"

// Reliability grades how far the row count can be trusted.
func Reliability(rows int) string {
	switch {
	case rows < 5:
		return "low"
	case rows < 20:
		return "medium"
	default:
		return "high"
	}
}

func (c *calc) summary() {
	s := c.doc.Object(KeySummary)
	s["row_count"] = c.rows
	s["column_count"] = c.in.Frame.Width()
	s["reliability"] = Reliability(c.rows)
	s["warnings"] = append([]string{}, c.in.Warnings...)

	if c.sales != nil {
		valid := finite(c.sales)
		total := sum(valid)
		s["total_sales"] = total
		s["total_transactions"] = len(valid)
		if len(valid) > 0 {
			lo, hi := minMax(valid)
			s["average_sale"] = total / float64(len(valid))
			s["min_sale"] = lo
			s["max_sale"] = hi
			s["median_sale"] = median(valid)
		}

		if col := c.column(roles.Quantity); col != nil {
			qty := finite(coerce.Numbers(col))
			tq := sum(qty)
			s["total_quantity"] = tq
			if len(qty) > 0 {
				s["average_order_size"] = tq / float64(len(qty))
			}
			if tq > 0 {
				s["average_price_per_unit"] = total / tq
			}
		}
	}

	if c.dates != nil {
		start, end, ok := dateBounds(c.dates)
		if ok {
			days := int(math.Floor(end.Sub(start).Hours() / 24))
			s["date_range"] = map[string]any{"start": start.Format(isoDate), "end": end.Format(isoDate)}
			s["duration_days"] = days
			if days > 0 && c.sales != nil {
				s["average_daily_sales"] = sum(finite(c.sales)) / float64(days)
			}
		}
	}

	if col := c.column(roles.CustomerID); col != nil {
		customers := countBy(col.Text)
		s["unique_customers"] = len(customers)
		repeat := 0
		for _, g := range customers {
			if g.count > 1 {
				repeat++
			}
		}
		if len(customers) > 0 {
			s["repeat_customer_rate"] = pct(float64(repeat), float64(len(customers)))
		}
	}
	if col := c.column(roles.ProductCategory); col != nil {
		s["total_categories"] = len(countBy(col.Text))
	}
}

func dateBounds(ts []time.Time) (time.Time, time.Time, bool) {
	var start, end time.Time
	found := false
	for _, t := range ts {
		if t.IsZero() {
			continue
		}
		if !found || t.Before(start) {
			start = t
		}
		if !found || t.After(end) {
			end = t
		}
		found = true
	}
	return start, end, found
}

// recordTypes counts sale and return rows in paired mode.
func (c *calc) recordTypes() {
	if c.in.RecordTypeLabel == "" {
		return
	}
	col := c.in.Frame.Column(c.in.RecordTypeLabel)
	if col == nil {
		return
	}
	counts := map[string]any{}
	for _, g := range countBy(col.Text) {
		counts[g.name] = g.count
	}
	c.doc.Object(KeySummary)["record_types"] = counts
}
