package coerce

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"10", 10, true},
		{"₹1,299.00", 1299, true},
		{"Rs. 450", 450, true},
		{"INR 1,23,456.5", 123456.5, true},
		{"$19.99", 19.99, true},
		{"(250)", -250, true},
		{"-3.5", -3.5, true},
		{"12%", 12, true},
		{"1.234,56", 1234.56, true},
		{"10,5", 10.5, true},
		{"1,000", 1000, true},
		{"N/A", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-02T10:30:00+00:00", time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC), true},
		{"01/02/2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"25/12/2024", time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC), true},
		{"15-01-2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"02-Jan-2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"Jan 2, 2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"20240102", time.Time{}, false},
		{"450", time.Time{}, false},
		{"delivered", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTime(tt.in)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestApplyConvertsAndLeavesSourceAlone(t *testing.T) {
	src := frame.New([]string{"date", "amount", "product"}, [][]string{
		{"2024-01-01", "10", "A"},
		{"2024-01-02", "₹20", "B"},
	})

	res := Apply(src, []Target{
		{Label: "amount", Kind: frame.KindNumber},
		{Label: "date", Kind: frame.KindTime},
		{Label: "missing", Kind: frame.KindNumber},
	}, DefaultThreshold)

	assert.Empty(t, res.Warnings)
	assert.Equal(t, frame.KindNumber, res.Frame.Column("amount").Kind)
	assert.Equal(t, []float64{10, 20}, res.Frame.Column("amount").Num)
	assert.Equal(t, frame.KindTime, res.Frame.Column("date").Kind)
	assert.Equal(t, frame.KindText, src.Column("amount").Kind)
	assert.Len(t, res.Outcomes, 2)
}

func TestApplyRevertsBelowThreshold(t *testing.T) {
	src := frame.New([]string{"amount"}, [][]string{{"10"}, {"N/A"}, {"n/a"}, {"unknown"}, {"pending"}, {"20"}})

	res := Apply(src, []Target{{Label: "amount", Kind: frame.KindNumber}}, DefaultThreshold)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "could not convert column amount to numeric", res.Warnings[0])
	assert.Equal(t, frame.KindText, res.Frame.Column("amount").Kind)
	assert.True(t, res.Outcomes[0].Reverted)

	nums := Numbers(res.Frame.Column("amount"))
	assert.Equal(t, 10.0, nums[0])
	assert.True(t, math.IsNaN(nums[1]))
	assert.Equal(t, 20.0, nums[5])
}

func TestApplyRevertsDates(t *testing.T) {
	src := frame.New([]string{"when"}, [][]string{{"soon"}, {"later"}, {"2024-01-01"}})
	res := Apply(src, []Target{{Label: "when", Kind: frame.KindTime}}, 0.5)
	assert.Equal(t, []string{"could not convert column when to datetime"}, res.Warnings)
}

func TestRates(t *testing.T) {
	assert.InDelta(t, 1.0/3, NumberRate([]string{"1", "x", "", "NA"}), 1e-9)
	assert.InDelta(t, 1.0, TimeRate([]string{"2024-01-01", ""}), 1e-9)
	assert.Zero(t, NumberRate(nil))
}

func TestDetectors(t *testing.T) {
	assert.True(t, HasCurrency("$5"))
	assert.True(t, HasRupee("₹5"))
	assert.False(t, HasRupee("5"))
	assert.True(t, HasDateSeparator("2024-01-01"))
	assert.False(t, HasDateSeparator("A-1"))
}
