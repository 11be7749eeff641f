package model

import "fmt"

// Collection identifies one of the three linked collections.
type Collection string

const (
	Invoices  Collection = "invoices"
	Products  Collection = "products"
	Customers Collection = "customers"
)

// ValidCollections defines the allowed collection names.
var ValidCollections = map[Collection]bool{
	Invoices:  true,
	Products:  true,
	Customers: true,
}

// ParseCollection converts a string into a Collection.
func ParseCollection(s string) (Collection, error) {
	c := Collection(s)
	if !ValidCollections[c] {
		return "", fmt.Errorf("unknown collection %q: must be one of invoices, products, customers", s)
	}
	return c, nil
}

// Field names shared by patch change sets, the store, and the HTTP/CLI
// surfaces. These match the JSON tags on the entity structs.
const (
	FieldName                = "name"
	FieldQuantity            = "quantity"
	FieldUnitPrice           = "unit_price"
	FieldTax                 = "tax"
	FieldPriceWithTax        = "price_with_tax"
	FieldPhoneNumber         = "phone_number"
	FieldTotalPurchaseAmount = "total_purchase_amount"
	FieldSerialNumber        = "serial_number"
	FieldCustomerID          = "customer_id"
	FieldCustomerName        = "customer_name"
	FieldProductIDs          = "product_ids"
	FieldProductName         = "product_name"
	FieldQty                 = "qty"
	FieldTotalAmount         = "total_amount"
	FieldDate                = "date"
)

// Product is a deduplicated line item. Owned by the store; invoices
// reference it by ID and never embed it.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Quantity     *float64  `json:"quantity"`
	UnitPrice    *float64  `json:"unit_price"`
	Tax          *float64  `json:"tax"` // percentage 0-100 under TaxPercentage mode
	PriceWithTax *float64  `json:"price_with_tax"`
	Warnings     []Warning `json:"warnings"`
}

// Clone returns a deep copy. Store reads hand out clones so callers can
// never mutate state except through the mutation primitives.
func (p Product) Clone() Product {
	p.Quantity = cloneFloat(p.Quantity)
	p.UnitPrice = cloneFloat(p.UnitPrice)
	p.Tax = cloneFloat(p.Tax)
	p.PriceWithTax = cloneFloat(p.PriceWithTax)
	p.Warnings = cloneWarnings(p.Warnings)
	return p
}

// Customer is a deduplicated buyer. Owned by the store; invoices
// reference it by ID.
type Customer struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	PhoneNumber         string    `json:"phone_number"`
	TotalPurchaseAmount *float64  `json:"total_purchase_amount"`
	Warnings            []Warning `json:"warnings"`
}

// Clone returns a deep copy.
func (c Customer) Clone() Customer {
	c.TotalPurchaseAmount = cloneFloat(c.TotalPurchaseAmount)
	c.Warnings = cloneWarnings(c.Warnings)
	return c
}

// Invoice is one ingested batch element. CustomerName, ProductName, Qty,
// Tax and TotalAmount are derived caches of the linked customer and
// products; the propagation engine keeps them equal to a fresh
// recomputation to 2 decimals whenever the linked entities change.
type Invoice struct {
	ID           string    `json:"id"`
	SerialNumber string    `json:"serial_number"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	ProductIDs   []string  `json:"product_ids"`
	ProductName  string    `json:"product_name"`
	Qty          *float64  `json:"qty"`
	Tax          *float64  `json:"tax"`
	TotalAmount  *float64  `json:"total_amount"`
	Date         string    `json:"date"`
	Warnings     []Warning `json:"warnings"`
}

// Clone returns a deep copy.
func (i Invoice) Clone() Invoice {
	if i.ProductIDs != nil {
		ids := make([]string, len(i.ProductIDs))
		copy(ids, i.ProductIDs)
		i.ProductIDs = ids
	}
	i.Qty = cloneFloat(i.Qty)
	i.Tax = cloneFloat(i.Tax)
	i.TotalAmount = cloneFloat(i.TotalAmount)
	i.Warnings = cloneWarnings(i.Warnings)
	return i
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneWarnings(ws []Warning) []Warning {
	if ws == nil {
		return nil
	}
	out := make([]Warning, len(ws))
	copy(out, ws)
	return out
}
