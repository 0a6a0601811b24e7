package roles

import (
	"math"
	"strings"
	"unicode"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/coerce"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
)

// productKeywords hint at product titles.
var productKeywords = []string{
	"shirt", "t-shirt", "kurta", "kurti", "saree", "dress", "top", "jeans", "shoe", "sandal",
	"phone", "mobile", "case", "cover", "charger", "cable", "earphone", "headphone", "watch",
	"bag", "bottle", "book", "cream", "oil", "serum", "soap", "pack", "set", "combo", "kit",
	"women", "men", "kids", "cotton", "silk", "size", "black", "white", "blue", "red", "widget",
}

// Profile is the per-column evidence used by the heuristic scorer.
type Profile struct {
	Label    string
	Position int
	NonEmpty int

	NumericRate  float64
	DatetimeRate float64
	UniqueRatio  float64
	AvgLength    float64
	LengthStdDev float64
	AvgTokens    float64

	CurrencyRate       float64
	RupeeRate          float64
	DateSeparatorRate  float64
	ProductKeywordRate float64
	IdentifierRate     float64

	// Numeric statistics over the cells that parse.
	Integral      bool
	HasDecimals   bool
	IntegerShare  float64
	PositiveShare float64
	Mean          float64
	Min           float64
	Max           float64
	StdDev        float64

	// Lower-cased non-blank sample values.
	Values []string
}

// Numeric reports whether most cells parse as numbers.
func (p *Profile) Numeric() bool {
	return p.NumericRate > 0.7
}

// ProfileColumn computes a profile over at most limit leading rows; limit
// <= 0 profiles every row.
func ProfileColumn(col *frame.Column, position, limit int) *Profile {
	p := &Profile{Label: col.Name, Position: position}
	cells := col.Text
	if limit > 0 && len(cells) > limit {
		cells = cells[:limit]
	}

	unique := make(map[string]struct{})
	var lengths, nums []float64
	var tokens, currency, rupee, dateSep, keyword, ident, numeric, dates int
	for _, v := range cells {
		if v == "" {
			continue
		}
		p.NonEmpty++
		lower := strings.ToLower(v)
		p.Values = append(p.Values, lower)
		unique[lower] = struct{}{}
		lengths = append(lengths, float64(len([]rune(v))))
		tokens += len(strings.Fields(v))

		if coerce.HasCurrency(v) {
			currency++
		}
		if coerce.HasRupee(v) {
			rupee++
		}
		if coerce.HasDateSeparator(v) {
			dateSep++
		}
		if containsAny(lower, productKeywords) {
			keyword++
		}
		if identifierLike(v) {
			ident++
		}
		if n, ok := coerce.ParseNumber(v); ok {
			numeric++
			nums = append(nums, n)
		}
		if _, ok := coerce.ParseTime(v); ok {
			dates++
		}
	}
	if p.NonEmpty == 0 {
		return p
	}

	n := float64(p.NonEmpty)
	p.NumericRate = float64(numeric) / n
	p.DatetimeRate = float64(dates) / n
	p.UniqueRatio = float64(len(unique)) / n
	p.AvgTokens = float64(tokens) / n
	p.CurrencyRate = float64(currency) / n
	p.RupeeRate = float64(rupee) / n
	p.DateSeparatorRate = float64(dateSep) / n
	p.ProductKeywordRate = float64(keyword) / n
	p.IdentifierRate = float64(ident) / n
	p.AvgLength, p.LengthStdDev = meanStd(lengths)

	if len(nums) > 0 {
		p.Mean, p.StdDev = meanStd(nums)
		p.Min, p.Max = nums[0], nums[0]
		ints, pos := 0, 0
		for _, v := range nums {
			p.Min = math.Min(p.Min, v)
			p.Max = math.Max(p.Max, v)
			if v == math.Trunc(v) {
				ints++
			}
			if v > 0 {
				pos++
			}
		}
		p.IntegerShare = float64(ints) / float64(len(nums))
		p.PositiveShare = float64(pos) / float64(len(nums))
		p.Integral = ints == len(nums)
		p.HasDecimals = !p.Integral
	}
	return p
}

// ProfileFrame profiles every column.
func ProfileFrame(f *frame.Frame, limit int) []*Profile {
	out := make([]*Profile, 0, f.Width())
	for i, col := range f.Columns() {
		out = append(out, ProfileColumn(col, i, limit))
	}
	return out
}

// identifierLike matches single-token codes that mix digits with letters or
// separators, or long digit runs.
func identifierLike(v string) bool {
	if strings.ContainsAny(v, " \t") || len(v) < 4 {
		return false
	}
	digits, letters := 0, 0
	for _, r := range v {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		case r == '-' || r == '_' || r == '#' || r == '/':
		default:
			return false
		}
	}
	if digits == 0 {
		return false
	}
	return letters > 0 || digits >= 6
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	ss := 0.0
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// labelWords splits a label into lower-case words.
func labelWords(label string) []string {
	return strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasWord(label string, words ...string) bool {
	for _, w := range labelWords(label) {
		for _, want := range words {
			if w == want {
				return true
			}
		}
	}
	return false
}
