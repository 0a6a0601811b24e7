package metrics

import (
	"math"
	"strings"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/roles"
)

// Transaction classes in priority order.
const (
	StatusCancelled = "cancelled"
	StatusReplaced  = "replaced"
	StatusRefunded  = "refunded"
	StatusReturned  = "returned"
	StatusRegular   = "regular"
)

var statusRules = []struct {
	class  string
	tokens []string
}{
	{StatusCancelled, []string{"cancel"}},
	{StatusReplaced, []string{"replace", "exchange"}},
	{StatusRefunded, []string{"refund", "money back", "chargeback"}},
	{StatusReturned, []string{"return"}},
}

// ClassifyStatus assigns a status text to exactly one class. A value matching
// several classes takes the first in priority order.
func ClassifyStatus(status string) string {
	s := strings.ToLower(status)
	for _, rule := range statusRules {
		for _, tok := range rule.tokens {
			if strings.Contains(s, tok) {
				return rule.class
			}
		}
	}
	return StatusRegular
}

const topStatuses = 5

func (c *calc) transactions() {
	statuses := c.text(roles.TransactionType)
	if statuses == nil {
		return
	}

	counts := map[string]int{}
	values := map[string]float64{}
	total := 0
	for i, st := range statuses {
		if st == "" {
			continue
		}
		total++
		class := ClassifyStatus(st)
		counts[class]++
		if c.sales != nil && !math.IsNaN(c.sales[i]) {
			values[class] += c.sales[i]
		}
	}

	om := c.doc.Object(KeyOrderMetrics)
	om["total_orders"] = total
	for _, class := range []string{StatusRegular, StatusCancelled, StatusReplaced, StatusRefunded, StatusReturned} {
		om[class+"_orders"] = counts[class]
		if c.sales != nil {
			om[class+"_value"] = values[class]
		}
	}
	if total == 0 {
		return
	}

	t := float64(total)
	om["cancellation_rate"] = pct(float64(counts[StatusCancelled]), t)
	om["replacement_rate"] = pct(float64(counts[StatusReplaced]), t)
	om["refund_rate"] = pct(float64(counts[StatusRefunded]), t)
	om["return_rate"] = pct(float64(counts[StatusReturned]), t)
	issues := counts[StatusCancelled] + counts[StatusReplaced] + counts[StatusRefunded] + counts[StatusReturned]
	om["issue_rate"] = pct(float64(issues), t)

	s := c.doc.Object(KeySummary)
	for _, k := range []string{"return_rate", "cancellation_rate", "issue_rate"} {
		s[k] = om[k]
	}

	types := make([]any, 0, topStatuses)
	for _, g := range head(byValueDesc(countBy(statuses)), topStatuses) {
		types = append(types, map[string]any{
			"name":       g.name,
			"count":      g.count,
			"percentage": pct(float64(g.count), t),
		})
	}
	c.doc[KeyTransactionTypes] = types
}

// orders adds order-level figures when an order identifier is bound.
func (c *calc) orders() {
	ids := c.text(roles.OrderID)
	if ids == nil {
		return
	}
	unique := len(countBy(ids))
	om := c.doc.Object(KeyOrderMetrics)
	om["unique_orders"] = unique
	if _, ok := om["total_orders"]; !ok {
		om["total_orders"] = unique
	}
	if c.sales != nil && unique > 0 {
		om["average_order_value"] = sum(finite(c.sales)) / float64(unique)
	}
}
