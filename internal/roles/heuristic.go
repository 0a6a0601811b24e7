package roles

import (
	"math"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/coerce"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
)

// heuristicOrder is the order unresolved roles are scored in. unit_price
// needs sales_amount and quantity first.
var heuristicOrder = []Role{
	SalesAmount, OrderDate, Quantity, UnitPrice, OrderID, CustomerID, ProductName, TransactionType,
}

// confidenceScale maps a raw score to [0,1].
var confidenceScale = map[Role]float64{
	SalesAmount:     20,
	OrderDate:       15,
	Quantity:        12,
	UnitPrice:       5,
	OrderID:         1.5,
	CustomerID:      1.5,
	ProductName:     15,
	TransactionType: 10,
}

var statusTokens = []string{"complete", "cancel", "return", "refund", "ship", "deliver", "process", "pending"}

// unitPriceRows bounds the rows sampled for the price ratio.
const unitPriceRows = 100

// degenerate reports whether the frame is too small to profile.
func degenerate(f *frame.Frame) bool {
	return f.Len() < 3 || f.Width() < 3
}

func scoreHeuristics(m *Map, f *frame.Frame, profiles []*Profile) {
	for _, r := range heuristicOrder {
		if m.Has(r) {
			continue
		}

		var score func(*Profile) float64
		switch r {
		case SalesAmount:
			score = salesScore
		case OrderDate:
			score = dateScore
		case Quantity:
			score = quantityScore
		case UnitPrice:
			score = unitPriceScorer(m, f)
		case OrderID:
			score = func(p *Profile) float64 { return idScore(p, OrderID) }
		case CustomerID:
			score = func(p *Profile) float64 { return idScore(p, CustomerID) }
		case ProductName:
			score = productScore
		case TransactionType:
			score = transactionScore
		}
		if score == nil {
			continue
		}

		if label, s := pickBest(m, profiles, score); label != "" {
			m.Set(r, label, s/confidenceScale[r], SourceHeuristic)
		}
	}
}

// pickBest returns the free column with the highest positive score. Earlier
// columns win ties.
func pickBest(m *Map, profiles []*Profile, score func(*Profile) float64) (string, float64) {
	best, bestScore := "", 0.0
	for _, p := range profiles {
		if p.NonEmpty == 0 || m.Used(p.Label) {
			continue
		}
		if s := score(p); s > bestScore {
			best, bestScore = p.Label, s
		}
	}
	return best, bestScore
}

func salesScore(p *Profile) float64 {
	if p.NumericRate <= 0.5 || p.DatetimeRate > 0.5 {
		return 0
	}
	s := 10*p.CurrencyRate + 15*p.RupeeRate
	if p.Numeric() {
		s += 5
	}
	s += math.Min(5, math.Max(0, p.Mean)/1000)
	if p.HasDecimals {
		s += 3
	}
	if hasWord(p.Label, "amount", "total", "sales", "sale", "revenue", "value", "gmv", "paid") {
		s += 2
	}
	if idLabel(p.Label) || p.IdentifierRate > 0.5 {
		s -= 5
	}
	return s
}

func dateScore(p *Profile) float64 {
	if p.DatetimeRate <= 0.5 {
		return 0
	}
	s := 0.0
	if p.DatetimeRate > 0.7 {
		s += 10
	}
	if p.DateSeparatorRate > 0.5 {
		s += 3
	}
	if p.AvgLength >= 8 && p.AvgLength <= 30 {
		s += 2
	}
	return s
}

func quantityScore(p *Profile) float64 {
	if !p.Numeric() || p.DatetimeRate > 0.5 || p.Mean >= 1000 {
		return 0
	}
	s := 0.0
	if p.Integral {
		s += 3
	}
	if p.PositiveShare > 0.9 {
		s += 2
	}
	if p.Mean > 0 && p.Mean < 100 {
		s += 3
	}
	if p.IntegerShare > 0.9 {
		s += 2
	}
	if hasWord(p.Label, "qty", "quantity", "units", "pcs") {
		s += 2
	}
	s -= 10 * p.CurrencyRate
	if idLabel(p.Label) {
		s -= 5
	}
	return s
}

// unitPriceScorer compares candidate*quantity against sales over complete rows.
func unitPriceScorer(m *Map, f *frame.Frame) func(*Profile) float64 {
	salesLabel, ok1 := m.Get(SalesAmount)
	qtyLabel, ok2 := m.Get(Quantity)
	if !ok1 || !ok2 {
		return nil
	}
	sales := coerce.Numbers(f.Column(salesLabel))
	qty := coerce.Numbers(f.Column(qtyLabel))

	return func(p *Profile) float64 {
		if !p.Numeric() {
			return 0
		}
		cand := coerce.Numbers(f.Column(p.Label))
		sum, n := 0.0, 0
		for i := 0; i < len(cand) && n < unitPriceRows; i++ {
			if math.IsNaN(cand[i]) || math.IsNaN(qty[i]) || math.IsNaN(sales[i]) || sales[i] == 0 {
				continue
			}
			sum += cand[i] * qty[i] / sales[i]
			n++
		}
		if n == 0 {
			return 0
		}
		ratio := sum / float64(n)
		if ratio <= 0.5 || ratio >= 1.5 {
			return 0
		}
		return 5 - math.Abs(1-ratio)
	}
}

func idScore(p *Profile, r Role) float64 {
	if p.UniqueRatio <= 0.7 || p.DatetimeRate > 0.5 {
		return 0
	}
	hint := idLabel(p.Label)
	if !hint && p.IdentifierRate < 0.5 {
		return 0
	}

	s := p.UniqueRatio
	if hint {
		s += 0.2
	}
	if p.AvgLength > 0 {
		s += 0.3 * (1 - math.Min(1, p.LengthStdDev/p.AvgLength))
	}

	orderish := hasWord(p.Label, "order", "invoice", "transaction", "txn", "suborder")
	customerish := hasWord(p.Label, "customer", "buyer", "client", "user")
	switch {
	case r == OrderID && orderish, r == CustomerID && customerish:
		s += 0.5
	case r == OrderID && customerish, r == CustomerID && orderish:
		s -= 0.5
	}
	return s
}

func productScore(p *Profile) float64 {
	if p.NumericRate >= 0.5 || p.DatetimeRate > 0.5 {
		return 0
	}
	s := p.AvgTokens + 5*p.UniqueRatio + 10*p.ProductKeywordRate + math.Min(5, p.AvgLength/10)
	if p.NumericRate < 0.3 {
		s += 2
	}
	if hasWord(p.Label, "product", "item", "title", "description", "name") {
		s += 2
	}
	s -= 5 * p.IdentifierRate
	s -= 10 * statusShare(p)
	return s
}

func transactionScore(p *Profile) float64 {
	share := statusShare(p)
	if share < 0.2 {
		return 0
	}
	s := 10 * share
	if p.UniqueRatio > 0.5 && p.NonEmpty > 10 {
		s /= 2
	}
	return s
}

func statusShare(p *Profile) float64 {
	if len(p.Values) == 0 {
		return 0
	}
	n := 0
	for _, v := range p.Values {
		if containsAny(v, statusTokens) {
			n++
		}
	}
	return float64(n) / float64(len(p.Values))
}

// idLabel reports whether a label names an identifier.
func idLabel(label string) bool {
	return hasWord(label, "id", "no", "number", "num",
		"orderid", "customerid", "buyerid", "invoiceid", "transactionid", "userid", "clientid", "itemid")
}
