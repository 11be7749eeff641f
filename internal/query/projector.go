// Package query is the read side of rowsync: row projections over the
// linked store for the CLI and HTTP surfaces.
//
// Projections are pure reads. They see whatever converged state the
// engine last produced, never partially propagated state, because the
// engine runs each operation to completion before returning.
package query

import (
	"errors"
	"fmt"

	"github.com/rowsync/rowsync/internal/model"
	"github.com/rowsync/rowsync/internal/store"
)

// NotFoundError is returned when a projection targets an id that is not
// in its collection.
type NotFoundError struct {
	Collection model.Collection
	ID         string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s/%s not found", e.Collection, e.ID)
}

// IsNotFoundError reports whether err is a NotFoundError.
// Uses errors.As to handle wrapped errors.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Projector reads rows out of the linked store.
type Projector struct {
	store *store.Store
}

// New creates a Projector over a store.
func New(st *store.Store) *Projector {
	return &Projector{store: st}
}

// Invoices returns all invoices in insertion order.
func (p *Projector) Invoices() []model.Invoice {
	return p.store.Invoices()
}

// Products returns all products in insertion order.
func (p *Projector) Products() []model.Product {
	return p.store.Products()
}

// Customers returns all customers in insertion order.
func (p *Projector) Customers() []model.Customer {
	return p.store.Customers()
}

// Rows returns one collection as a uniform row list for generic
// surfaces like the CLI table printer.
func (p *Projector) Rows(c model.Collection) ([]any, error) {
	switch c {
	case model.Invoices:
		invs := p.store.Invoices()
		rows := make([]any, len(invs))
		for i := range invs {
			rows[i] = invs[i]
		}
		return rows, nil
	case model.Products:
		prods := p.store.Products()
		rows := make([]any, len(prods))
		for i := range prods {
			rows[i] = prods[i]
		}
		return rows, nil
	case model.Customers:
		custs := p.store.Customers()
		rows := make([]any, len(custs))
		for i := range custs {
			rows[i] = custs[i]
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("unknown collection %q", c)
	}
}

// LinkedProducts resolves an invoice's product references. Ids that no
// longer resolve are skipped, so the result may be shorter than the
// invoice's ProductIDs after a products clear.
func (p *Projector) LinkedProducts(invoiceID string) ([]model.Product, error) {
	inv, ok := p.store.Invoice(invoiceID)
	if !ok {
		return nil, &NotFoundError{Collection: model.Invoices, ID: invoiceID}
	}
	var out []model.Product
	for _, id := range inv.ProductIDs {
		if prod, ok := p.store.Product(id); ok {
			out = append(out, prod)
		}
	}
	return out, nil
}

// LinkedCustomer resolves an invoice's customer reference.
func (p *Projector) LinkedCustomer(invoiceID string) (model.Customer, error) {
	inv, ok := p.store.Invoice(invoiceID)
	if !ok {
		return model.Customer{}, &NotFoundError{Collection: model.Invoices, ID: invoiceID}
	}
	cust, ok := p.store.Customer(inv.CustomerID)
	if !ok {
		return model.Customer{}, &NotFoundError{Collection: model.Customers, ID: inv.CustomerID}
	}
	return cust, nil
}

// Counts holds per-collection record counts.
type Counts struct {
	Invoices  int `json:"invoices"`
	Products  int `json:"products"`
	Customers int `json:"customers"`
}

// Counts returns the record count of each collection.
func (p *Projector) Counts() Counts {
	return Counts{
		Invoices:  p.store.Count(model.Invoices),
		Products:  p.store.Count(model.Products),
		Customers: p.store.Count(model.Customers),
	}
}

// Snapshot is a full copy of the three collections, used by the JSON
// output format and the scenario harness goldens.
type Snapshot struct {
	Invoices  []model.Invoice  `json:"invoices"`
	Products  []model.Product  `json:"products"`
	Customers []model.Customer `json:"customers"`
}

// Snapshot projects all three collections at once.
func (p *Projector) Snapshot() Snapshot {
	return Snapshot{
		Invoices:  p.store.Invoices(),
		Products:  p.store.Products(),
		Customers: p.store.Customers(),
	}
}

// FlaggedRow is one record that carries extraction warnings.
type FlaggedRow struct {
	Collection model.Collection `json:"collection"`
	ID         string           `json:"id"`
	Label      string           `json:"label"`
	Warnings   []model.Warning  `json:"warnings"`
}

// Flagged lists every record with at least one warning, invoices first,
// each collection in insertion order.
func (p *Projector) Flagged() []FlaggedRow {
	var rows []FlaggedRow
	for _, inv := range p.store.Invoices() {
		if len(inv.Warnings) > 0 {
			rows = append(rows, FlaggedRow{model.Invoices, inv.ID, inv.SerialNumber, inv.Warnings})
		}
	}
	for _, prod := range p.store.Products() {
		if len(prod.Warnings) > 0 {
			rows = append(rows, FlaggedRow{model.Products, prod.ID, prod.Name, prod.Warnings})
		}
	}
	for _, cust := range p.store.Customers() {
		if len(cust.Warnings) > 0 {
			rows = append(rows, FlaggedRow{model.Customers, cust.ID, cust.Name, cust.Warnings})
		}
	}
	return rows
}
