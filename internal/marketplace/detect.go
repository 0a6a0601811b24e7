// Package marketplace classifies a frame as the export of a known seller
// platform.
package marketplace

import (
	"strings"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
)

// Platform identifies a marketplace profile.
type Platform string

const (
	Amazon   Platform = "amazon"
	Flipkart Platform = "flipkart"
	Meesho   Platform = "meesho"
	Generic  Platform = "generic"
)

// Known lists the marketplace profiles in detection order.
var Known = []Platform{Amazon, Flipkart, Meesho}

// MinLabelScore is the smallest label score that decides a profile.
const MinLabelScore = 3

// contentRows is how many leading rows are searched for portal banners.
const contentRows = 5

var labelTokens = map[Platform][]string{
	Amazon:   {"asin", "amazon", "fulfillment", "seller sku", "merchant", "order id", "marketplace"},
	Flipkart: {"flipkart", "fsn", "order item id", "invoice amount", "listing id", "tcs", "sku"},
	Meesho:   {"meesho", "suborder", "product price", "settlement", "cod", "customer paid"},
}

// contentSignature is satisfied when any of portal and the brand both occur.
type contentSignature struct {
	portal []string
	brand  string
}

var contentSignatures = map[Platform]contentSignature{
	Amazon:   {portal: []string{"seller central"}, brand: "amazon"},
	Flipkart: {portal: []string{"seller hub", "seller portal"}, brand: "flipkart"},
	Meesho:   {portal: []string{"supplier panel", "supplier portal"}, brand: "meesho"},
}

// Source records which signal decided a detection.
type Source string

const (
	SourceHint    Source = "hint"
	SourceLabels  Source = "labels"
	SourceContent Source = "content"
	SourceNone    Source = "none"
)

// Detection is the outcome of Detect.
type Detection struct {
	Platform Platform         `json:"platform"`
	Source   Source           `json:"source"`
	Scores   map[Platform]int `json:"scores"`
}

// Parse maps a declared platform name to a profile. Unknown and empty names
// report false.
func Parse(name string) (Platform, bool) {
	switch Platform(strings.ToLower(strings.TrimSpace(name))) {
	case Amazon:
		return Amazon, true
	case Flipkart:
		return Flipkart, true
	case Meesho:
		return Meesho, true
	case Generic:
		return Generic, true
	}
	return "", false
}

// Known reports whether p is one of the marketplace profiles.
func (p Platform) Known() bool {
	return p == Amazon || p == Flipkart || p == Meesho
}

// Detect scores the frame labels against every profile. A profile wins with
// the strictly highest score when that score reaches MinLabelScore; otherwise
// the leading rows are searched for portal banners.
func Detect(f *frame.Frame) Detection {
	scores := ScoreLabels(f.Labels())

	best, bestScore, tied := Generic, 0, false
	for _, p := range Known {
		switch s := scores[p]; {
		case s > bestScore:
			best, bestScore, tied = p, s, false
		case s == bestScore && s > 0:
			tied = true
		}
	}
	if !tied && bestScore >= MinLabelScore {
		return Detection{Platform: best, Source: SourceLabels, Scores: scores}
	}

	if p, ok := detectContent(f); ok {
		return Detection{Platform: p, Source: SourceContent, Scores: scores}
	}
	return Detection{Platform: Generic, Source: SourceNone, Scores: scores}
}

// Resolve applies a declared platform over detection. A known hint always
// wins; "generic" or an unknown hint leaves detection in charge.
func Resolve(f *frame.Frame, hint string) Detection {
	d := Detect(f)
	if p, ok := Parse(hint); ok && p.Known() {
		d.Platform = p
		d.Source = SourceHint
	}
	return d
}

// ScoreLabels counts profile tokens found inside the lower-cased labels.
func ScoreLabels(labels []string) map[Platform]int {
	scores := make(map[Platform]int, len(Known))
	for _, p := range Known {
		scores[p] = 0
	}
	for _, label := range labels {
		l := frame.MatchKey(label)
		for _, p := range Known {
			for _, tok := range labelTokens[p] {
				if strings.Contains(l, tok) {
					scores[p]++
				}
			}
		}
	}
	return scores
}

func detectContent(f *frame.Frame) (Platform, bool) {
	var sb strings.Builder
	n := min(contentRows, f.Len())
	for _, col := range f.Columns() {
		for i := 0; i < n; i++ {
			sb.WriteString(strings.ToLower(col.Text[i]))
			sb.WriteByte('\n')
		}
	}
	text := sb.String()

	for _, p := range Known {
		sig := contentSignatures[p]
		if !strings.Contains(text, sig.brand) {
			continue
		}
		for _, portal := range sig.portal {
			if strings.Contains(text, portal) {
				return p, true
			}
		}
	}
	return "", false
}
