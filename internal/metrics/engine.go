// Package metrics computes the analysis document from a typed frame and its
// role map. Every function here is total: missing roles or values shrink the
// document instead of failing it.
package metrics

import (
	"time"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/coerce"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/roles"
)

// Document is the analysis document. Values are JSON-compatible once passed
// through the sanitizer.
type Document map[string]any

// Top-level document keys.
const (
	KeySummary             = "summary"
	KeyTimeSeries          = "time_series"
	KeyTopProducts         = "top_products"
	KeyBottomProducts      = "bottom_products"
	KeyTopRegions          = "top_regions"
	KeySalesChannels       = "sales_channels"
	KeyOrderMetrics        = "order_metrics"
	KeyTransactionTypes    = "transaction_types"
	KeyProductDistribution = "product_distribution"
	KeyRegionDistribution  = "region_distribution"
	KeyRegionMapData       = "region_map_data"
	KeyChannelDistribution = "channel_distribution"
	KeyChannelEfficiency   = "channel_efficiency"
	KeySalesGrowth         = "sales_growth"
	KeyPlatformSpecific    = "platform_specific"
	KeyKeyMetrics          = "key_metrics"
	KeyVisualizationData   = "visualization_data"
)

// ListKeys are the top-level keys holding arrays; the rest hold objects.
var ListKeys = []string{KeyTopProducts, KeyBottomProducts, KeyTopRegions, KeySalesChannels, KeyTransactionTypes, KeyRegionMapData}

// ObjectKeys are the top-level keys holding objects.
var ObjectKeys = []string{
	KeySummary, KeyTimeSeries, KeyOrderMetrics, KeyProductDistribution, KeyRegionDistribution,
	KeyChannelDistribution, KeyChannelEfficiency, KeySalesGrowth, KeyPlatformSpecific,
	KeyKeyMetrics, KeyVisualizationData,
}

// Input carries everything Compute reads.
type Input struct {
	Frame *frame.Frame
	Roles *roles.Map
	// Warnings are copied into summary.warnings.
	Warnings []string
	// RecordTypeLabel names the synthesized sale/return column in paired mode.
	RecordTypeLabel string
}

// NewDocument returns a document with every top-level key present and empty.
func NewDocument() Document {
	doc := make(Document, len(ListKeys)+len(ObjectKeys))
	for _, k := range ListKeys {
		doc[k] = []any{}
	}
	for _, k := range ObjectKeys {
		doc[k] = map[string]any{}
	}
	return doc
}

// Object returns the object stored under key, creating it when absent.
func (d Document) Object(key string) map[string]any {
	if m, ok := d[key].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	d[key] = m
	return m
}

// calc holds the resolved columns for one computation.
type calc struct {
	in    Input
	doc   Document
	rows  int
	sales []float64
	dates []time.Time
}

func (c *calc) column(r roles.Role) *frame.Column {
	l, ok := c.in.Roles.Get(r)
	if !ok {
		return nil
	}
	return c.in.Frame.Column(l)
}

func (c *calc) text(r roles.Role) []string {
	if col := c.column(r); col != nil {
		return col.Text
	}
	return nil
}

// Compute builds the analysis document.
func Compute(in Input) Document {
	if in.Roles == nil {
		in.Roles = roles.NewMap()
	}
	c := &calc{in: in, doc: NewDocument(), rows: in.Frame.Len()}
	if col := c.column(roles.SalesAmount); col != nil {
		c.sales = coerce.Numbers(col)
	}
	if col := c.column(roles.OrderDate); col != nil {
		c.dates = coerce.Times(col)
	}

	c.summary()
	c.timeSeries()
	c.products()
	c.regions()
	c.channels()
	c.transactions()
	c.orders()
	c.recordTypes()
	c.keyMetrics()
	c.visualization()
	return c.doc
}
