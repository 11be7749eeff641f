package engine

import (
	"context"
	"fmt"

	"github.com/rowsync/rowsync/internal/model"
	"github.com/rowsync/rowsync/internal/oplog"
	"github.com/rowsync/rowsync/internal/schema"
	"github.com/rowsync/rowsync/internal/store"
)

// IngestReport summarizes one batch ingest.
type IngestReport struct {
	Invoices     int `json:"invoices"`
	NewProducts  int `json:"new_products"`
	NewCustomers int `json:"new_customers"`
	Propagated   int `json:"propagated"`
}

// EditReport summarizes one cell edit.
type EditReport struct {
	Applied    bool `json:"applied"`
	Propagated int  `json:"propagated"`
}

// IngestBatch resolves a validated batch against the current collections
// and applies the resulting upserts, then cascades derived fields.
//
// Ingest is all-or-nothing at the resolution stage: the store is not
// touched until the whole batch resolved. Entities are dispatched in
// dependency order so every invoice lands with its customer and products
// already present.
func (e *Engine) IngestBatch(ctx context.Context, batch []model.RawExtraction) (*IngestReport, error) {
	res := e.resolver.Resolve(e.store.Products(), e.store.Customers(), batch)

	c := &cascade{ctx: ctx}
	for _, m := range []store.Mutation{
		store.AddProducts(res.Products),
		store.AddCustomers(res.Customers),
		store.AddInvoices(res.Invoices),
	} {
		if len(m.Products) == 0 && len(m.Customers) == 0 && len(m.Invoices) == 0 {
			continue
		}
		if _, err := e.dispatch(c, m, oplog.OriginIngest, 0); err != nil {
			return nil, fmt.Errorf("ingest batch: %w", err)
		}
	}

	return &IngestReport{
		Invoices:     len(res.Invoices),
		NewProducts:  res.NewProducts,
		NewCustomers: res.NewCustomers,
		Propagated:   c.propagated,
	}, nil
}

// IngestJSON validates raw JSON against the batch schema and ingests it.
// Structural violations surface as a MalformedBatchError with nothing
// applied.
func (e *Engine) IngestJSON(ctx context.Context, data []byte) (*IngestReport, error) {
	batch, err := schema.ParseBatch(data)
	if err != nil {
		return nil, err
	}
	return e.IngestBatch(ctx, batch)
}

// EditCell patches one cell of one record from raw user text and
// cascades. Numeric cells parse leniently: blank or unparseable input
// clears the cell to null rather than failing the edit. Editing an
// unknown id is a no-op with Applied false.
func (e *Engine) EditCell(ctx context.Context, collection model.Collection, id, field, raw string) (*EditReport, error) {
	if !store.Patchable(collection, field) {
		return nil, fmt.Errorf("edit %s/%s: field %q is not editable", collection, id, field)
	}

	changes := map[string]any{}
	if store.NumericField(collection, field) {
		if v := model.ParseCell(raw); v != nil {
			changes[field] = *v
		} else {
			changes[field] = nil
		}
	} else {
		changes[field] = raw
	}

	c := &cascade{ctx: ctx}
	applied, err := e.dispatch(c, store.Patch(collection, id, changes), oplog.OriginUser, 0)
	if err != nil {
		return nil, fmt.Errorf("edit %s/%s: %w", collection, id, err)
	}
	return &EditReport{Applied: applied, Propagated: c.propagated}, nil
}

// ClearCollection drops every record in one collection. Records in the
// other collections keep their ids and cached values; later cascades
// simply skip the dangling references.
func (e *Engine) ClearCollection(ctx context.Context, collection model.Collection) error {
	c := &cascade{ctx: ctx}
	if _, err := e.dispatch(c, store.Clear(collection), oplog.OriginUser, 0); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}
	return nil
}
