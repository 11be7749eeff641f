package engine

import (
	"log/slog"
	"strings"

	"github.com/rowsync/rowsync/internal/model"
	"github.com/rowsync/rowsync/internal/store"
)

// react routes an applied mutation to its propagation rule. Rules are
// evaluated depth-first: each dispatched patch fully converges before
// the current rule continues, which keeps the cascade in dependency
// order (Product -> Invoice -> Customer, or the reverse for renames).
func (e *Engine) react(c *cascade, m store.Mutation, depth int) error {
	switch m.Kind {
	case store.KindPatch:
		switch m.Collection {
		case model.Customers:
			return e.onCustomerPatched(c, m, depth)
		case model.Products:
			return e.onProductPatched(c, m, depth)
		case model.Invoices:
			return e.onInvoicePatched(c, m, depth)
		}
	case store.KindAddBatch:
		// Only the invoice batch feeds a derived field: customer purchase
		// totals. Product and customer batches settle at ingest.
		if m.Collection == model.Invoices {
			return e.onInvoicesAdded(c, m, depth)
		}
	}
	return nil
}

func changed(m store.Mutation, field string) bool {
	_, ok := m.Changes[field]
	return ok
}

// onCustomerPatched fixes the stale customerName cache on every invoice
// linked to a renamed customer.
func (e *Engine) onCustomerPatched(c *cascade, m store.Mutation, depth int) error {
	if !changed(m, model.FieldName) {
		return nil
	}
	cust, ok := e.store.Customer(m.ID)
	if !ok {
		return nil
	}
	for _, inv := range e.store.Invoices() {
		if inv.CustomerID != cust.ID || inv.CustomerName == cust.Name {
			continue
		}
		patch := store.Patch(model.Invoices, inv.ID, map[string]any{
			model.FieldCustomerName: cust.Name,
		})
		if err := e.propagate(c, patch, depth); err != nil {
			return err
		}
	}
	return nil
}

// onProductPatched recomputes priceWithTax (unless priceWithTax itself
// was just edited) and then refreshes the name and aggregates of every
// invoice referencing the product.
func (e *Engine) onProductPatched(c *cascade, m store.Mutation, depth int) error {
	numeric := changed(m, model.FieldQuantity) || changed(m, model.FieldUnitPrice) ||
		changed(m, model.FieldTax) || changed(m, model.FieldPriceWithTax)
	if !numeric && !changed(m, model.FieldName) {
		return nil
	}
	p, ok := e.store.Product(m.ID)
	if !ok {
		return nil
	}

	if numeric && !changed(m, model.FieldPriceWithTax) {
		pwt := e.priceWithTax(p)
		if !model.SameAmount(p.PriceWithTax, &pwt) {
			patch := store.Patch(model.Products, p.ID, map[string]any{
				model.FieldPriceWithTax: pwt,
			})
			if err := e.propagate(c, patch, depth); err != nil {
				return err
			}
		}
	}

	for _, inv := range e.store.Invoices() {
		if !references(inv, p.ID) {
			continue
		}
		if err := e.refreshInvoiceAggregates(c, inv.ID, depth); err != nil {
			return err
		}
	}
	return nil
}

// onInvoicePatched feeds the two rules triggered by invoice cells: a
// changed total flows up into the customer's purchase total, and an
// edited customerName flows back onto the linked customer so either
// table can rename.
func (e *Engine) onInvoicePatched(c *cascade, m store.Mutation, depth int) error {
	inv, ok := e.store.Invoice(m.ID)
	if !ok {
		return nil
	}

	if changed(m, model.FieldTotalAmount) {
		if err := e.refreshCustomerTotal(c, inv.CustomerID, depth); err != nil {
			return err
		}
	}

	if changed(m, model.FieldCustomerName) {
		cust, ok := e.store.Customer(inv.CustomerID)
		if !ok {
			slog.Debug("rename skipped, customer missing",
				"invoice", inv.ID,
				"customer_id", inv.CustomerID,
			)
			return nil
		}
		if cust.Name != inv.CustomerName {
			patch := store.Patch(model.Customers, cust.ID, map[string]any{
				model.FieldName: inv.CustomerName,
			})
			if err := e.propagate(c, patch, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

// onInvoicesAdded refreshes purchase totals for every customer the new
// invoices reference, once each.
func (e *Engine) onInvoicesAdded(c *cascade, m store.Mutation, depth int) error {
	done := make(map[string]bool, len(m.Invoices))
	for _, inv := range m.Invoices {
		if done[inv.CustomerID] {
			continue
		}
		done[inv.CustomerID] = true
		if err := e.refreshCustomerTotal(c, inv.CustomerID, depth); err != nil {
			return err
		}
	}
	return nil
}

// refreshInvoiceAggregates recomputes an invoice's derived caches from
// its linked products and patches only the fields that differ. Products
// whose ids no longer resolve are skipped (CP-3).
func (e *Engine) refreshInvoiceAggregates(c *cascade, invoiceID string, depth int) error {
	inv, ok := e.store.Invoice(invoiceID)
	if !ok {
		return nil
	}

	var names []string
	var qty, tax, total amountSum
	for _, pid := range inv.ProductIDs {
		p, ok := e.store.Product(pid)
		if !ok {
			slog.Debug("aggregate skipped missing product",
				"invoice", inv.ID,
				"product_id", pid,
			)
			continue
		}
		names = append(names, p.Name)
		qty.add(p.Quantity)
		total.add(p.PriceWithTax)
		tax.add(e.taxAmount(p))
	}

	changes := map[string]any{}
	if name := strings.Join(names, ", "); name != inv.ProductName {
		changes[model.FieldProductName] = name
	}
	putAmount(changes, model.FieldQty, inv.Qty, qty.value())
	putAmount(changes, model.FieldTax, inv.Tax, tax.value())
	putAmount(changes, model.FieldTotalAmount, inv.TotalAmount, total.value())

	if len(changes) == 0 {
		return nil
	}
	return e.propagate(c, store.Patch(model.Invoices, inv.ID, changes), depth)
}

// refreshCustomerTotal recomputes one customer's purchase total as the
// sum of totals over all invoices sharing the customer id.
func (e *Engine) refreshCustomerTotal(c *cascade, customerID string, depth int) error {
	cust, ok := e.store.Customer(customerID)
	if !ok {
		slog.Debug("total refresh skipped, customer missing", "customer_id", customerID)
		return nil
	}

	var total amountSum
	for _, inv := range e.store.Invoices() {
		if inv.CustomerID == customerID {
			total.add(inv.TotalAmount)
		}
	}

	computed := total.value()
	if model.SameAmount(cust.TotalPurchaseAmount, computed) {
		return nil
	}
	changes := map[string]any{model.FieldTotalPurchaseAmount: nil}
	if computed != nil {
		changes[model.FieldTotalPurchaseAmount] = *computed
	}
	return e.propagate(c, store.Patch(model.Customers, cust.ID, changes), depth)
}

// priceWithTax recomputes a product's line total from its current
// fields, with absent values counting as 0.
func (e *Engine) priceWithTax(p model.Product) float64 {
	base := model.NumOrZero(p.Quantity) * model.NumOrZero(p.UnitPrice)
	switch e.taxMode {
	case model.TaxAbsolute:
		return model.Round2(base + model.NumOrZero(p.Tax))
	default:
		return model.Round2(base * (1 + model.NumOrZero(p.Tax)/100))
	}
}

// taxAmount is one product's contribution to an invoice's tax
// aggregate, or nil when the product carries no tax at all.
func (e *Engine) taxAmount(p model.Product) *float64 {
	if p.Tax == nil {
		return nil
	}
	switch e.taxMode {
	case model.TaxAbsolute:
		v := *p.Tax
		return &v
	default:
		v := model.NumOrZero(p.Quantity) * model.NumOrZero(p.UnitPrice) * *p.Tax / 100
		return &v
	}
}

// amountSum accumulates nullable amounts: the sum is nil until the
// first non-nil contribution, so a field that was never extracted stays
// null instead of becoming a fabricated 0.
type amountSum struct {
	sum  float64
	seen bool
}

func (a *amountSum) add(v *float64) {
	if v != nil {
		a.sum += *v
		a.seen = true
	}
}

func (a *amountSum) value() *float64 {
	if !a.seen {
		return nil
	}
	v := model.Round2(a.sum)
	return &v
}

// putAmount stages a recomputed amount into a change set when it
// differs from the stored value (the equality guard, CP-1).
func putAmount(changes map[string]any, field string, current, computed *float64) {
	if model.SameAmount(current, computed) {
		return
	}
	if computed == nil {
		changes[field] = nil
		return
	}
	changes[field] = *computed
}

func references(inv model.Invoice, productID string) bool {
	for _, id := range inv.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}
