package roles

import (
	"strings"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/marketplace"
)

// labelTable lists candidate labels per role in preference order. Labels are
// compared with frame.MatchKey.
type labelTable map[Role][]string

var marketplaceTables = map[marketplace.Platform]labelTable{
	marketplace.Amazon: {
		OrderDate:        {"purchase date", "order date", "ship date", "date/time", "date", "timestamp"},
		SalesAmount:      {"item total", "product sales", "total", "principal", "ordered product sales", "total sales", "amount"},
		ProductName:      {"product name", "title", "item name", "product", "item description", "description"},
		CustomerLocation: {"ship state", "state", "ship city", "buyer state", "region", "city"},
		SalesChannel:     {"sales channel", "fulfillment channel", "fulfilment channel", "channel"},
		ProductCategory:  {"product category", "category", "product type", "item type"},
		OrderID:          {"amazon order id", "order id", "merchant order id"},
		CustomerID:       {"buyer email", "buyer id", "customer id", "buyer name"},
		UnitPrice:        {"item price", "unit price", "price"},
		Quantity:         {"quantity", "quantity purchased", "qty", "units ordered", "quantity shipped"},
		TransactionType:  {"order status", "item status", "status", "transaction type", "type"},
		CancelReturnDate: {"return date", "return request date", "cancellation date"},
	},
	marketplace.Flipkart: {
		OrderDate:        {"order date", "order approval date", "ordered on", "order created date", "date"},
		SalesAmount:      {"invoice amount", "final invoice amount", "total sale amount", "sale amount", "total price", "selling price", "amount"},
		ProductName:      {"product title", "product name", "product", "title", "sku name", "item"},
		CustomerLocation: {"delivery state", "customer delivery state", "shipping state", "state", "buyer state", "city"},
		SalesChannel:     {"fulfilment type", "fulfillment type", "sales channel", "channel"},
		ProductCategory:  {"category", "product category", "vertical", "sub category"},
		OrderID:          {"order id", "order item id"},
		CustomerID:       {"buyer id", "customer id", "buyer name"},
		UnitPrice:        {"selling price per item", "price per unit", "unit price", "price"},
		Quantity:         {"quantity", "item quantity", "qty", "units"},
		TransactionType:  {"order item status", "order status", "status", "event sub type", "event type"},
		CancelReturnDate: {"return date", "return approval date", "cancellation date"},
	},
	marketplace.Meesho: {
		OrderDate:        {"order date", "created date", "date"},
		SalesAmount:      {"supplier discounted price (incl gst and commision)", "total sale amount", "final settlement amount", "customer paid amount", "product price", "sale amount", "price", "amount"},
		ProductName:      {"product name", "product", "item name", "product title", "sku name"},
		CustomerLocation: {"customer state", "state", "delivery state", "city"},
		SalesChannel:     {"sales channel", "channel"},
		ProductCategory:  {"category", "product category", "catalog category"},
		OrderID:          {"sub order no", "suborder no", "sub order id", "order id", "order number"},
		CustomerID:       {"customer id", "buyer id"},
		UnitPrice:        {"supplier listed price (incl. gst + commission)", "listed price", "unit price", "mrp"},
		Quantity:         {"quantity", "qty"},
		TransactionType:  {"reason for credit entry", "suborder status", "sub order status", "order status", "status"},
		CancelReturnDate: {"cancel return date", "return date", "return created date", "cancellation date"},
	},
}

// synonyms apply to every frame after the marketplace table.
var synonyms = labelTable{
	SalesAmount:      {"revenue", "sales", "sales amount", "sale amount", "amount", "total", "total amount", "total sales", "net sales", "gross sales", "order value", "order total", "grand total", "invoice amount", "item total"},
	OrderDate:        {"date", "order date", "purchase date", "transaction date", "invoice date", "sale date", "created at", "order created", "timestamp", "date/time"},
	ProductName:      {"product", "product name", "item", "item name", "title", "product title", "product description", "sku name"},
	CustomerLocation: {"state", "city", "region", "location", "country", "ship state", "shipping state", "customer state", "delivery state", "province", "zone"},
	SalesChannel:     {"channel", "sales channel", "platform", "source", "marketplace"},
	ProductCategory:  {"category", "product category", "segment", "product type", "department"},
	OrderID:          {"order id", "order no", "order number", "invoice id", "invoice no", "invoice number", "transaction id"},
	CustomerID:       {"customer id", "customer", "customer name", "buyer", "buyer id", "client", "client id", "customer email"},
	UnitPrice:        {"price", "unit price", "rate", "mrp", "price per unit", "selling price", "list price"},
	Quantity:         {"quantity", "qty", "units", "quantity sold", "units sold", "pcs"},
	TransactionType:  {"status", "order status", "transaction type", "type", "transaction status"},
	CancelReturnDate: {"cancel return date", "return date", "cancellation date", "refund date"},
}

// containment binds a role to the first free label containing every token of
// any listed group.
var containment = map[Role][][]string{
	CustomerLocation: {{"state"}, {"city"}, {"region"}, {"country"}},
	SalesChannel:     {{"channel"}},
	ProductCategory:  {{"category"}},
	CancelReturnDate: {{"cancel", "return", "date"}, {"return", "date"}},
}

const (
	marketplaceConfidence = 1.0
	synonymConfidence     = 0.9
	containmentConfidence = 0.7
)

// applyTable binds unresolved roles by exact key match in preference order.
func applyTable(m *Map, f *frame.Frame, table labelTable, confidence float64, src Source) {
	byKey := make(map[string]string, f.Width())
	for _, l := range f.Labels() {
		k := frame.MatchKey(l)
		if _, dup := byKey[k]; !dup {
			byKey[k] = l
		}
	}

	for _, r := range All {
		if m.Has(r) {
			continue
		}
		for _, cand := range table[r] {
			if l, ok := byKey[cand]; ok && !m.Used(l) {
				m.Set(r, l, confidence, src)
				break
			}
		}
	}
}

func applyContainment(m *Map, f *frame.Frame) {
	for _, r := range All {
		groups, ok := containment[r]
		if !ok || m.Has(r) {
			continue
		}
	search:
		for _, group := range groups {
			for _, l := range f.Labels() {
				if m.Used(l) {
					continue
				}
				if containsAll(frame.MatchKey(l), group) {
					m.Set(r, l, containmentConfidence, SourceContainment)
					break search
				}
			}
		}
	}
}

func containsAll(s string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}
