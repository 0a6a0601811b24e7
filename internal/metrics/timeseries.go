package metrics

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Period granularities by date-range span.
const (
	PeriodQuarterly = "Quarterly"
	PeriodMonthly   = "Monthly"
	PeriodDaily     = "Daily"
	PeriodHourly    = "Hourly"
)

const day = 24 * time.Hour

// Granularity picks the period type for a date-range span.
func Granularity(span time.Duration) string {
	switch {
	case span > 730*day:
		return PeriodQuarterly
	case span > 90*day:
		return PeriodMonthly
	case span >= day:
		return PeriodDaily
	default:
		return PeriodHourly
	}
}

// PeriodLabel formats t for the given period type. Labels sort
// chronologically as strings.
func PeriodLabel(t time.Time, period string) string {
	switch period {
	case PeriodQuarterly:
		return fmt.Sprintf("%dQ%d", t.Year(), (int(t.Month())-1)/3+1)
	case PeriodMonthly:
		return t.Format("2006-01")
	case PeriodDaily:
		return t.Format(isoDate)
	default:
		return t.Format("2006-01-02 15:00")
	}
}

func (c *calc) timeSeries() {
	if c.sales == nil || c.dates == nil {
		return
	}
	start, end, ok := dateBounds(c.dates)
	if !ok {
		return
	}
	period := Granularity(end.Sub(start))

	sums := make(map[string]float64)
	for i, t := range c.dates {
		if t.IsZero() {
			continue
		}
		key := PeriodLabel(t, period)
		v := c.sales[i]
		if math.IsNaN(v) {
			v = 0
		}
		sums[key] += v
	}

	labels := make([]string, 0, len(sums))
	for k := range sums {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	data := make([]float64, len(labels))
	for i, k := range labels {
		data[i] = sums[k]
	}

	ts := c.doc.Object(KeyTimeSeries)
	ts["labels"] = labels
	ts["data"] = data
	ts["period_type"] = period

	c.growth(ts, labels, data)
}

func (c *calc) growth(ts map[string]any, labels []string, data []float64) {
	n := len(data)
	if n < 2 {
		return
	}
	g := c.doc.Object(KeySalesGrowth)
	first, last := data[0], data[n-1]
	if first != 0 {
		g["rate"] = round2((last - first) / first * 100)
	}
	g["is_positive"] = last > first

	if n >= 3 && data[n-2] != 0 {
		g["recent_rate"] = round2((last - data[n-2]) / data[n-2] * 100)
	}

	if n >= 5 {
		slope, intercept, r := regression(data)
		direction := "upward"
		if slope < 0 {
			direction = "downward"
		}
		strength := "weak"
		switch ar := math.Abs(r); {
		case ar > 0.7:
			strength = "strong"
		case ar > 0.3:
			strength = "moderate"
		}
		g["trend"] = map[string]any{
			"slope":     slope,
			"r_squared": r * r,
			"direction": direction,
			"strength":  strength,
		}

		line := make([]float64, n)
		for i := range line {
			line[i] = intercept + slope*float64(i)
		}
		ts["trend_line"] = line
		ts["moving_average"] = movingAverage(data, min(3, n/3))
	}

	if n >= 6 {
		rates := make([]float64, n-1)
		for i := 1; i < n; i++ {
			if data[i-1] == 0 {
				rates[i-1] = math.NaN()
				continue
			}
			rates[i-1] = round2((data[i] - data[i-1]) / data[i-1] * 100)
		}
		avg := mean(finite(rates))
		growth := map[string]any{"labels": labels[1:], "data": rates}
		if !math.IsNaN(avg) {
			growth["average"] = round2(avg)
		}
		ts["growth_rates"] = growth
	}
}
