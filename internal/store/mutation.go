package store

import (
	"fmt"

	"github.com/rowsync/rowsync/internal/model"
)

// Kind distinguishes mutation intents.
type Kind string

const (
	// KindAddBatch upserts resolver output into a collection.
	KindAddBatch Kind = "add_batch"
	// KindPatch shallow-merges a change set into one record.
	KindPatch Kind = "patch"
	// KindClear empties a collection.
	KindClear Kind = "clear"
)

// Mutation is a single mutation intent against the store. Exactly one
// payload is set, matching Kind.
type Mutation struct {
	Kind       Kind             `json:"kind"`
	Collection model.Collection `json:"collection"`

	// Patch payload.
	ID      string         `json:"id,omitempty"`
	Changes map[string]any `json:"changes,omitempty"`

	// AddBatch payload; only the slice matching Collection is set.
	Invoices  []model.Invoice  `json:"invoices,omitempty"`
	Products  []model.Product  `json:"products,omitempty"`
	Customers []model.Customer `json:"customers,omitempty"`
}

// Patch builds a patch mutation.
func Patch(c model.Collection, id string, changes map[string]any) Mutation {
	return Mutation{Kind: KindPatch, Collection: c, ID: id, Changes: changes}
}

// AddInvoices builds an add-batch mutation for the invoice collection.
func AddInvoices(invoices []model.Invoice) Mutation {
	return Mutation{Kind: KindAddBatch, Collection: model.Invoices, Invoices: invoices}
}

// AddProducts builds an add-batch mutation for the product collection.
func AddProducts(products []model.Product) Mutation {
	return Mutation{Kind: KindAddBatch, Collection: model.Products, Products: products}
}

// AddCustomers builds an add-batch mutation for the customer collection.
func AddCustomers(customers []model.Customer) Mutation {
	return Mutation{Kind: KindAddBatch, Collection: model.Customers, Customers: customers}
}

// Clear builds a clear mutation.
func Clear(c model.Collection) Mutation {
	return Mutation{Kind: KindClear, Collection: c}
}

// patchable field sets per collection. IDs, warnings and link fields are
// not cells; nothing may patch them.
var patchableFields = map[model.Collection]map[string]bool{
	model.Products: {
		model.FieldName:         true,
		model.FieldQuantity:     true,
		model.FieldUnitPrice:    true,
		model.FieldTax:          true,
		model.FieldPriceWithTax: true,
	},
	model.Customers: {
		model.FieldName:                true,
		model.FieldPhoneNumber:         true,
		model.FieldTotalPurchaseAmount: true,
	},
	model.Invoices: {
		model.FieldSerialNumber: true,
		model.FieldCustomerName: true,
		model.FieldProductName:  true,
		model.FieldQty:          true,
		model.FieldTax:          true,
		model.FieldTotalAmount:  true,
		model.FieldDate:         true,
	},
}

// numeric cells per collection. Edits to these parse as nullable
// amounts; everything else patches as text.
var numericFields = map[model.Collection]map[string]bool{
	model.Products: {
		model.FieldQuantity:     true,
		model.FieldUnitPrice:    true,
		model.FieldTax:          true,
		model.FieldPriceWithTax: true,
	},
	model.Customers: {
		model.FieldTotalPurchaseAmount: true,
	},
	model.Invoices: {
		model.FieldQty:         true,
		model.FieldTax:         true,
		model.FieldTotalAmount: true,
	},
}

// Patchable reports whether field is a patchable cell of collection c.
func Patchable(c model.Collection, field string) bool {
	return patchableFields[c][field]
}

// NumericField reports whether field holds a nullable amount in
// collection c.
func NumericField(c model.Collection, field string) bool {
	return numericFields[c][field]
}

// ValidateChanges rejects change sets touching unknown or read-only
// fields before anything is applied.
func ValidateChanges(c model.Collection, changes map[string]any) error {
	if len(changes) == 0 {
		return fmt.Errorf("patch on %s: empty change set", c)
	}
	for field := range changes {
		if !Patchable(c, field) {
			return fmt.Errorf("patch on %s: field %q is not patchable", c, field)
		}
	}
	return nil
}

// numberValue coerces a change-set value into a nullable amount.
func numberValue(field string, v any) (*float64, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case *float64:
		if n == nil {
			return nil, nil
		}
		val := *n
		return &val, nil
	case float64:
		return &n, nil
	case int:
		val := float64(n)
		return &val, nil
	case int64:
		val := float64(n)
		return &val, nil
	default:
		return nil, fmt.Errorf("field %q: expected number or null, got %T", field, v)
	}
}

// textValue coerces a change-set value into a string. Null clears to "".
func textValue(field string, v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return "", fmt.Errorf("field %q: expected string or null, got %T", field, v)
	}
}
