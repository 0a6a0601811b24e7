package analyzer

import (
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
)

// RecordTypeLabel is the synthesized column tagging merged rows.
const RecordTypeLabel = "record_type"

// Record types written to RecordTypeLabel.
const (
	RecordSale   = "sale"
	RecordReturn = "return"
)

// merge stacks a returns frame under its sales frame. The returns frame must
// carry every sales column plus exactly one extra column, which is returned
// as the cancel/return date label.
func merge(sales, returns *frame.Frame) (*frame.Frame, string, error) {
	if sales.Has(RecordTypeLabel) || returns.Has(RecordTypeLabel) {
		return nil, "", schemaMismatch()
	}

	var extra []string
	for _, l := range returns.Labels() {
		if !sales.Has(l) {
			extra = append(extra, l)
		}
	}
	if len(extra) != 1 || returns.Width() != sales.Width()+1 {
		return nil, "", schemaMismatch()
	}

	merged := frame.Concat(sales, returns)
	tags := make([]string, merged.Len())
	for i := range tags {
		if i < sales.Len() {
			tags[i] = RecordSale
		} else {
			tags[i] = RecordReturn
		}
	}
	if err := merged.AddText(RecordTypeLabel, tags); err != nil {
		return nil, "", newError(KindSchemaMismatch, SchemaMismatchMessage, err)
	}
	return merged, extra[0], nil
}
