package store

import (
	"fmt"

	"github.com/rowsync/rowsync/internal/model"
)

// Store holds the three linked collections. Not safe for concurrent
// writers; the engine serializes every mutation (user edit or ingest)
// to completion, cascades included, before accepting the next.
type Store struct {
	invoices  map[string]*model.Invoice
	products  map[string]*model.Product
	customers map[string]*model.Customer

	// Insertion order per collection (CP-3).
	invoiceOrder  []string
	productOrder  []string
	customerOrder []string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		invoices:  make(map[string]*model.Invoice),
		products:  make(map[string]*model.Product),
		customers: make(map[string]*model.Customer),
	}
}

// Apply executes a mutation intent. For patches, applied reports whether
// a record was actually touched: a patch on an absent id is a no-op, not
// an error.
func (s *Store) Apply(m Mutation) (applied bool, err error) {
	switch m.Kind {
	case KindAddBatch:
		return true, s.applyAddBatch(m)
	case KindPatch:
		return s.applyPatch(m)
	case KindClear:
		return true, s.applyClear(m)
	default:
		return false, fmt.Errorf("unknown mutation kind: %q", m.Kind)
	}
}

func (s *Store) applyAddBatch(m Mutation) error {
	switch m.Collection {
	case model.Invoices:
		for _, inv := range m.Invoices {
			if inv.ID == "" {
				return fmt.Errorf("add batch: invoice without id")
			}
			clone := inv.Clone()
			if _, exists := s.invoices[inv.ID]; !exists {
				s.invoiceOrder = append(s.invoiceOrder, inv.ID)
			}
			s.invoices[inv.ID] = &clone
		}
	case model.Products:
		for _, p := range m.Products {
			if p.ID == "" {
				return fmt.Errorf("add batch: product without id")
			}
			clone := p.Clone()
			if _, exists := s.products[p.ID]; !exists {
				s.productOrder = append(s.productOrder, p.ID)
			}
			s.products[p.ID] = &clone
		}
	case model.Customers:
		for _, c := range m.Customers {
			if c.ID == "" {
				return fmt.Errorf("add batch: customer without id")
			}
			clone := c.Clone()
			if _, exists := s.customers[c.ID]; !exists {
				s.customerOrder = append(s.customerOrder, c.ID)
			}
			s.customers[c.ID] = &clone
		}
	default:
		return fmt.Errorf("add batch: unknown collection %q", m.Collection)
	}
	return nil
}

func (s *Store) applyPatch(m Mutation) (bool, error) {
	if err := ValidateChanges(m.Collection, m.Changes); err != nil {
		return false, err
	}

	switch m.Collection {
	case model.Products:
		p, ok := s.products[m.ID]
		if !ok {
			return false, nil
		}
		return true, patchProduct(p, m.Changes)
	case model.Customers:
		c, ok := s.customers[m.ID]
		if !ok {
			return false, nil
		}
		return true, patchCustomer(c, m.Changes)
	case model.Invoices:
		inv, ok := s.invoices[m.ID]
		if !ok {
			return false, nil
		}
		return true, patchInvoice(inv, m.Changes)
	default:
		return false, fmt.Errorf("patch: unknown collection %q", m.Collection)
	}
}

func (s *Store) applyClear(m Mutation) error {
	switch m.Collection {
	case model.Invoices:
		s.invoices = make(map[string]*model.Invoice)
		s.invoiceOrder = nil
	case model.Products:
		s.products = make(map[string]*model.Product)
		s.productOrder = nil
	case model.Customers:
		s.customers = make(map[string]*model.Customer)
		s.customerOrder = nil
	default:
		return fmt.Errorf("clear: unknown collection %q", m.Collection)
	}
	return nil
}

func patchProduct(p *model.Product, changes map[string]any) error {
	for field, v := range changes {
		switch field {
		case model.FieldName:
			s, err := textValue(field, v)
			if err != nil {
				return err
			}
			p.Name = s
		case model.FieldQuantity:
			n, err := numberValue(field, v)
			if err != nil {
				return err
			}
			p.Quantity = n
		case model.FieldUnitPrice:
			n, err := numberValue(field, v)
			if err != nil {
				return err
			}
			p.UnitPrice = n
		case model.FieldTax:
			n, err := numberValue(field, v)
			if err != nil {
				return err
			}
			p.Tax = n
		case model.FieldPriceWithTax:
			n, err := numberValue(field, v)
			if err != nil {
				return err
			}
			p.PriceWithTax = n
		}
	}
	return nil
}

func patchCustomer(c *model.Customer, changes map[string]any) error {
	for field, v := range changes {
		switch field {
		case model.FieldName:
			s, err := textValue(field, v)
			if err != nil {
				return err
			}
			c.Name = s
		case model.FieldPhoneNumber:
			s, err := textValue(field, v)
			if err != nil {
				return err
			}
			c.PhoneNumber = s
		case model.FieldTotalPurchaseAmount:
			n, err := numberValue(field, v)
			if err != nil {
				return err
			}
			c.TotalPurchaseAmount = n
		}
	}
	return nil
}

func patchInvoice(inv *model.Invoice, changes map[string]any) error {
	for field, v := range changes {
		switch field {
		case model.FieldSerialNumber:
			s, err := textValue(field, v)
			if err != nil {
				return err
			}
			inv.SerialNumber = s
		case model.FieldCustomerName:
			s, err := textValue(field, v)
			if err != nil {
				return err
			}
			inv.CustomerName = s
		case model.FieldProductName:
			s, err := textValue(field, v)
			if err != nil {
				return err
			}
			inv.ProductName = s
		case model.FieldDate:
			s, err := textValue(field, v)
			if err != nil {
				return err
			}
			inv.Date = s
		case model.FieldQty:
			n, err := numberValue(field, v)
			if err != nil {
				return err
			}
			inv.Qty = n
		case model.FieldTax:
			n, err := numberValue(field, v)
			if err != nil {
				return err
			}
			inv.Tax = n
		case model.FieldTotalAmount:
			n, err := numberValue(field, v)
			if err != nil {
				return err
			}
			inv.TotalAmount = n
		}
	}
	return nil
}

// Invoice returns a clone of one invoice.
func (s *Store) Invoice(id string) (model.Invoice, bool) {
	inv, ok := s.invoices[id]
	if !ok {
		return model.Invoice{}, false
	}
	return inv.Clone(), true
}

// Product returns a clone of one product.
func (s *Store) Product(id string) (model.Product, bool) {
	p, ok := s.products[id]
	if !ok {
		return model.Product{}, false
	}
	return p.Clone(), true
}

// Customer returns a clone of one customer.
func (s *Store) Customer(id string) (model.Customer, bool) {
	c, ok := s.customers[id]
	if !ok {
		return model.Customer{}, false
	}
	return c.Clone(), true
}

// Invoices returns clones of all invoices in insertion order.
func (s *Store) Invoices() []model.Invoice {
	out := make([]model.Invoice, 0, len(s.invoiceOrder))
	for _, id := range s.invoiceOrder {
		out = append(out, s.invoices[id].Clone())
	}
	return out
}

// Products returns clones of all products in insertion order.
func (s *Store) Products() []model.Product {
	out := make([]model.Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		out = append(out, s.products[id].Clone())
	}
	return out
}

// Customers returns clones of all customers in insertion order.
func (s *Store) Customers() []model.Customer {
	out := make([]model.Customer, 0, len(s.customerOrder))
	for _, id := range s.customerOrder {
		out = append(out, s.customers[id].Clone())
	}
	return out
}

// Has reports whether a record exists.
func (s *Store) Has(c model.Collection, id string) bool {
	switch c {
	case model.Invoices:
		_, ok := s.invoices[id]
		return ok
	case model.Products:
		_, ok := s.products[id]
		return ok
	case model.Customers:
		_, ok := s.customers[id]
		return ok
	}
	return false
}

// Count returns the number of records in a collection.
func (s *Store) Count(c model.Collection) int {
	switch c {
	case model.Invoices:
		return len(s.invoices)
	case model.Products:
		return len(s.products)
	case model.Customers:
		return len(s.customers)
	}
	return 0
}
