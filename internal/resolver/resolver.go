// Package resolver turns raw extraction batches into deduplicated,
// cross-referenced entities.
//
// Customers and products resolve by normalized name: the first
// occurrence of a resolution key creates the entity with a fresh ID,
// later occurrences (same batch or later batches) reuse that ID and
// merge field-by-field. Invoices are never merged: one batch element
// groups to exactly one new invoice.
//
// Resolution works on clones of the current collections and produces an
// upsert list; nothing touches the store until the whole batch resolved,
// which is what makes ingest all-or-nothing.
package resolver

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/rowsync/rowsync/internal/model"
)

// Names substituted for blank or missing entity names. Resolution then
// treats them like any other name, so the unknowns of different batch
// elements collapse into a single entity exactly when their names match.
const (
	UnknownCustomerName = "Unknown Customer"
	UnknownProductName  = "Unknown Product"
)

// IDGenerator mints unique, immutable entity identifiers. Implemented by
// UUIDGenerator (production) and testutil.SequentialIDs (tests).
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random UUID identifiers.
type UUIDGenerator struct{}

// NewID returns a fresh UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// folder performs Unicode case folding for resolution keys.
var folder = cases.Fold()

// Key normalizes an entity name into its resolution key.
func Key(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// Result is the outcome of resolving one batch. Products and Customers
// are upsert lists: freshly created entities plus post-merge copies of
// the existing entities the batch touched, in first-touched order.
type Result struct {
	Invoices  []model.Invoice
	Products  []model.Product
	Customers []model.Customer

	// Creation counts, for ingest reporting.
	NewProducts  int
	NewCustomers int
}

// Resolver resolves raw batches against a snapshot of the collections.
type Resolver struct {
	ids IDGenerator
}

// New creates a Resolver.
func New(ids IDGenerator) *Resolver {
	return &Resolver{ids: ids}
}

// entity bookkeeping shared by the customer and product tables during
// one Resolve call.
type resolution[T any] struct {
	byKey   map[string]*T
	order   []string // touched keys, first-touched order
	created map[string]bool
}

func newResolution[T any]() *resolution[T] {
	return &resolution[T]{
		byKey:   make(map[string]*T),
		created: make(map[string]bool),
	}
}

func (r *resolution[T]) seed(key string, v *T) {
	if _, ok := r.byKey[key]; !ok {
		r.byKey[key] = v
	}
}

func (r *resolution[T]) touch(key string) {
	for _, k := range r.order {
		if k == key {
			return
		}
	}
	r.order = append(r.order, key)
}

// Resolve processes a batch against clones of the current products and
// customers. The snapshot slices are never mutated in place; merged
// values land in the returned upsert lists.
func (r *Resolver) Resolve(products []model.Product, customers []model.Customer, batch []model.RawExtraction) *Result {
	cust := newResolution[model.Customer]()
	for i := range customers {
		c := customers[i].Clone()
		cust.seed(Key(c.Name), &c)
	}

	prod := newResolution[model.Product]()
	for i := range products {
		p := products[i].Clone()
		prod.seed(Key(p.Name), &p)
	}

	res := &Result{}
	for _, el := range batch {
		customer := r.resolveCustomer(cust, el.Customer, res)
		ids, names := r.resolveProducts(prod, el.Products, res)
		res.Invoices = append(res.Invoices, r.buildInvoice(el.InvoiceDetails, customer, ids, names))
	}

	for _, key := range cust.order {
		res.Customers = append(res.Customers, *cust.byKey[key])
	}
	for _, key := range prod.order {
		res.Products = append(res.Products, *prod.byKey[key])
	}
	return res
}

func (r *Resolver) resolveCustomer(table *resolution[model.Customer], raw *model.RawCustomer, res *Result) *model.Customer {
	name := ""
	phone := ""
	var total *float64
	if raw != nil {
		if raw.CustomerName != nil {
			name = strings.TrimSpace(*raw.CustomerName)
		}
		if raw.PhoneNumber != nil {
			phone = strings.TrimSpace(raw.PhoneNumber.String())
		}
		total = raw.TotalPurchaseAmount
	}
	if name == "" {
		name = UnknownCustomerName
	}
	key := Key(name)

	if existing, ok := table.byKey[key]; ok {
		mergeCustomer(existing, phone, total)
		table.touch(key)
		return existing
	}

	c := &model.Customer{
		ID:          r.ids.NewID(),
		Name:        name,
		PhoneNumber: phone,
	}
	if total != nil {
		v := *total
		c.TotalPurchaseAmount = &v
	}
	// Missing-field warnings attach at creation time only; merges never
	// re-evaluate them.
	if phone == "" {
		c.Warnings = model.MergeWarnings(c.Warnings, []model.Warning{model.MissingFieldWarning(model.FieldPhoneNumber)})
	}
	if total == nil {
		c.Warnings = model.MergeWarnings(c.Warnings, []model.Warning{model.MissingFieldWarning(model.FieldTotalPurchaseAmount)})
	}

	table.byKey[key] = c
	table.touch(key)
	table.created[key] = true
	res.NewCustomers++
	return c
}

// mergeCustomer folds an incoming raw record into an existing customer.
// A non-blank incoming phone overwrites; a blank one never erases the
// stored number. Purchase totals accumulate, with null contributing
// nothing and null+null staying null.
func mergeCustomer(c *model.Customer, phone string, total *float64) {
	if phone != "" {
		c.PhoneNumber = phone
	}
	if total != nil {
		sum := model.NumOrZero(c.TotalPurchaseAmount) + *total
		c.TotalPurchaseAmount = &sum
	}
}

func (r *Resolver) resolveProducts(table *resolution[model.Product], raws []model.RawProduct, res *Result) (ids []string, names []string) {
	for _, raw := range raws {
		p := r.resolveProduct(table, raw, res)
		ids = append(ids, p.ID)
		names = append(names, p.Name)
	}
	return ids, names
}

func (r *Resolver) resolveProduct(table *resolution[model.Product], raw model.RawProduct, res *Result) *model.Product {
	name := ""
	if raw.Name != nil {
		name = strings.TrimSpace(*raw.Name)
	}
	if name == "" {
		name = UnknownProductName
	}
	key := Key(name)

	tax, taxFound := ParseTaxText(raw.Tax)

	if existing, ok := table.byKey[key]; ok {
		mergeProduct(existing, raw, tax)
		table.touch(key)
		return existing
	}

	p := &model.Product{
		ID:   r.ids.NewID(),
		Name: name,
	}
	if raw.Quantity != nil {
		v := *raw.Quantity
		p.Quantity = &v
	}
	if raw.UnitPrice != nil {
		v := *raw.UnitPrice
		p.UnitPrice = &v
	}
	p.Tax = tax
	if raw.PriceWithTax != nil {
		v := *raw.PriceWithTax
		p.PriceWithTax = &v
	}

	if p.Quantity == nil {
		p.Warnings = model.MergeWarnings(p.Warnings, []model.Warning{model.MissingFieldWarning(model.FieldQuantity)})
	}
	if p.UnitPrice == nil {
		p.Warnings = model.MergeWarnings(p.Warnings, []model.Warning{model.MissingFieldWarning(model.FieldUnitPrice)})
	}
	if !taxFound {
		p.Warnings = model.MergeWarnings(p.Warnings, []model.Warning{model.MissingFieldWarning(model.FieldTax)})
	}

	table.byKey[key] = p
	table.touch(key)
	table.created[key] = true
	res.NewProducts++
	return p
}

// mergeProduct folds an incoming raw line into an existing product.
// Quantities accumulate; price and tax fields are first-non-null-wins
// and are never overwritten once set, so later inconsistent reads are
// tolerated rather than corrected.
func mergeProduct(p *model.Product, raw model.RawProduct, tax *float64) {
	if raw.Quantity != nil {
		sum := model.NumOrZero(p.Quantity) + *raw.Quantity
		p.Quantity = &sum
	}
	if p.UnitPrice == nil && raw.UnitPrice != nil {
		v := *raw.UnitPrice
		p.UnitPrice = &v
	}
	if p.Tax == nil && tax != nil {
		v := *tax
		p.Tax = &v
	}
	if p.PriceWithTax == nil && raw.PriceWithTax != nil {
		v := *raw.PriceWithTax
		p.PriceWithTax = &v
	}
}

func (r *Resolver) buildInvoice(details *model.RawInvoiceDetails, customer *model.Customer, productIDs, productNames []string) model.Invoice {
	inv := model.Invoice{
		ID:           r.ids.NewID(),
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		ProductIDs:   productIDs,
		ProductName:  strings.Join(productNames, ", "),
	}
	if details != nil {
		if details.SerialNumber != nil {
			inv.SerialNumber = strings.TrimSpace(details.SerialNumber.String())
		}
		if details.TotalQuantity != nil {
			v := *details.TotalQuantity
			inv.Qty = &v
		}
		if details.TotalTaxAmount != nil {
			v := *details.TotalTaxAmount
			inv.Tax = &v
		}
		if details.TotalAmount != nil {
			v := *details.TotalAmount
			inv.TotalAmount = &v
		}
		if details.Date != nil {
			inv.Date = strings.TrimSpace(*details.Date)
		}
	}

	if inv.Qty == nil {
		inv.Warnings = model.MergeWarnings(inv.Warnings, []model.Warning{model.MissingFieldWarning(model.FieldQty)})
	}
	if inv.TotalAmount == nil {
		inv.Warnings = model.MergeWarnings(inv.Warnings, []model.Warning{model.MissingFieldWarning(model.FieldTotalAmount)})
	}
	if inv.Date == "" {
		inv.Warnings = model.MergeWarnings(inv.Warnings, []model.Warning{model.MissingFieldWarning(model.FieldDate)})
	}
	return inv
}
