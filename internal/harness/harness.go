package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rowsync/rowsync/internal/engine"
	"github.com/rowsync/rowsync/internal/model"
	"github.com/rowsync/rowsync/internal/oplog"
	"github.com/rowsync/rowsync/internal/query"
	"github.com/rowsync/rowsync/internal/store"
	"github.com/rowsync/rowsync/internal/testutil"
)

// IDPrefix is the sequential id prefix used for all scenario runs.
const IDPrefix = "id"

// Result is the outcome of one scenario run.
type Result struct {
	Scenario string
	Pass     bool
	Errors   []string

	// Snapshot is the converged final state, used for golden
	// comparison and the CLI run command.
	Snapshot query.Snapshot
}

func (r *Result) failf(format string, args ...any) {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Run executes a scenario against a fresh engine. baseDir anchors the
// scenario's relative fixture paths, normally the directory of the
// scenario file.
func Run(ctx context.Context, scenario *Scenario, baseDir string) (*Result, error) {
	res := &Result{Scenario: scenario.Name, Pass: true}

	log, err := oplog.Open()
	if err != nil {
		return nil, fmt.Errorf("open changelog: %w", err)
	}
	defer log.Close()

	var opts []engine.Option
	if scenario.TaxMode != "" {
		mode, ok := model.ParseTaxMode(scenario.TaxMode)
		if !ok {
			return nil, fmt.Errorf("scenario %s: unknown tax_mode %q", scenario.Name, scenario.TaxMode)
		}
		opts = append(opts, engine.WithTaxMode(mode))
	}
	if scenario.MaxDepth > 0 {
		opts = append(opts, engine.WithMaxDepth(scenario.MaxDepth))
	}

	eng := engine.New(store.New(), log, testutil.NewSequentialIDs(IDPrefix), opts...)

	for _, fixture := range scenario.Ingest {
		data, err := os.ReadFile(filepath.Join(baseDir, fixture))
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", fixture, err)
		}
		if _, err := eng.IngestJSON(ctx, data); err != nil {
			return nil, fmt.Errorf("ingest fixture %s: %w", fixture, err)
		}
	}

	for i, step := range scenario.Flow {
		if err := runStep(ctx, eng, i, step, res); err != nil {
			return nil, err
		}
	}

	projector := query.New(eng.Store())
	res.Snapshot = projector.Snapshot()
	for i, a := range scenario.Assertions {
		checkAssertion(ctx, eng, projector, i, a, res)
	}
	return res, nil
}

func runStep(ctx context.Context, eng *engine.Engine, i int, step FlowStep, res *Result) error {
	if step.Clear != "" {
		collection, err := model.ParseCollection(step.Clear)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		return eng.ClearCollection(ctx, collection)
	}

	collection, err := model.ParseCollection(step.Edit.Collection)
	if err != nil {
		return fmt.Errorf("flow step %d: %w", i, err)
	}
	rep, err := eng.EditCell(ctx, collection, step.Edit.ID, step.Edit.Field, step.Edit.Value)
	if err != nil {
		return fmt.Errorf("flow step %d: edit failed: %w", i, err)
	}

	if step.Expect != nil {
		if step.Expect.Applied != nil && rep.Applied != *step.Expect.Applied {
			res.failf("step %d: applied = %v, want %v", i, rep.Applied, *step.Expect.Applied)
		}
		if step.Expect.Propagated != nil && rep.Propagated != *step.Expect.Propagated {
			res.failf("step %d: propagated = %d, want %d", i, rep.Propagated, *step.Expect.Propagated)
		}
	}
	return nil
}

func checkAssertion(ctx context.Context, eng *engine.Engine, projector *query.Projector, i int, a Assertion, res *Result) {
	switch a.Type {
	case AssertCounts:
		counts := projector.Counts()
		got := map[string]int{
			string(model.Invoices):  counts.Invoices,
			string(model.Products):  counts.Products,
			string(model.Customers): counts.Customers,
		}
		for name, want := range a.Counts {
			if got[name] != want {
				res.failf("assertion %d: %s count = %d, want %d", i, name, got[name], want)
			}
		}

	case AssertFieldAmount:
		v, err := lookupAmount(eng.Store(), a)
		if err != nil {
			res.failf("assertion %d: %v", i, err)
			return
		}
		if !model.SameAmount(v, a.Amount) {
			res.failf("assertion %d: %s/%s.%s = %s, want %s",
				i, a.Collection, a.ID, a.Field, amountString(v), amountString(a.Amount))
		}

	case AssertFieldText:
		v, err := lookupText(eng.Store(), a)
		if err != nil {
			res.failf("assertion %d: %v", i, err)
			return
		}
		want := ""
		if a.Text != nil {
			want = *a.Text
		}
		if v != want {
			res.failf("assertion %d: %s/%s.%s = %q, want %q", i, a.Collection, a.ID, a.Field, v, want)
		}

	case AssertWarning:
		ws, err := lookupWarnings(eng.Store(), a)
		if err != nil {
			res.failf("assertion %d: %v", i, err)
			return
		}
		if len(model.FieldWarnings(ws, a.Field)) == 0 {
			res.failf("assertion %d: %s/%s has no warning for field %q", i, a.Collection, a.ID, a.Field)
		}

	case AssertChangelogCount:
		n, err := eng.Log().CountByOrigin(ctx, oplog.Origin(a.Origin))
		if err != nil {
			res.failf("assertion %d: changelog query failed: %v", i, err)
			return
		}
		if n != a.Count {
			res.failf("assertion %d: changelog %s count = %d, want %d", i, a.Origin, n, a.Count)
		}
	}
}

func lookupAmount(st *store.Store, a Assertion) (*float64, error) {
	switch model.Collection(a.Collection) {
	case model.Products:
		p, ok := st.Product(a.ID)
		if !ok {
			return nil, fmt.Errorf("product %s not found", a.ID)
		}
		switch a.Field {
		case model.FieldQuantity:
			return p.Quantity, nil
		case model.FieldUnitPrice:
			return p.UnitPrice, nil
		case model.FieldTax:
			return p.Tax, nil
		case model.FieldPriceWithTax:
			return p.PriceWithTax, nil
		}
	case model.Customers:
		c, ok := st.Customer(a.ID)
		if !ok {
			return nil, fmt.Errorf("customer %s not found", a.ID)
		}
		if a.Field == model.FieldTotalPurchaseAmount {
			return c.TotalPurchaseAmount, nil
		}
	case model.Invoices:
		inv, ok := st.Invoice(a.ID)
		if !ok {
			return nil, fmt.Errorf("invoice %s not found", a.ID)
		}
		switch a.Field {
		case model.FieldQty:
			return inv.Qty, nil
		case model.FieldTax:
			return inv.Tax, nil
		case model.FieldTotalAmount:
			return inv.TotalAmount, nil
		}
	}
	return nil, fmt.Errorf("no numeric field %s.%s", a.Collection, a.Field)
}

func lookupText(st *store.Store, a Assertion) (string, error) {
	switch model.Collection(a.Collection) {
	case model.Products:
		p, ok := st.Product(a.ID)
		if !ok {
			return "", fmt.Errorf("product %s not found", a.ID)
		}
		if a.Field == model.FieldName {
			return p.Name, nil
		}
	case model.Customers:
		c, ok := st.Customer(a.ID)
		if !ok {
			return "", fmt.Errorf("customer %s not found", a.ID)
		}
		switch a.Field {
		case model.FieldName:
			return c.Name, nil
		case model.FieldPhoneNumber:
			return c.PhoneNumber, nil
		}
	case model.Invoices:
		inv, ok := st.Invoice(a.ID)
		if !ok {
			return "", fmt.Errorf("invoice %s not found", a.ID)
		}
		switch a.Field {
		case model.FieldSerialNumber:
			return inv.SerialNumber, nil
		case model.FieldCustomerName:
			return inv.CustomerName, nil
		case model.FieldProductName:
			return inv.ProductName, nil
		case model.FieldDate:
			return inv.Date, nil
		}
	}
	return "", fmt.Errorf("no text field %s.%s", a.Collection, a.Field)
}

func lookupWarnings(st *store.Store, a Assertion) ([]model.Warning, error) {
	switch model.Collection(a.Collection) {
	case model.Products:
		if p, ok := st.Product(a.ID); ok {
			return p.Warnings, nil
		}
	case model.Customers:
		if c, ok := st.Customer(a.ID); ok {
			return c.Warnings, nil
		}
	case model.Invoices:
		if inv, ok := st.Invoice(a.ID); ok {
			return inv.Warnings, nil
		}
	}
	return nil, fmt.Errorf("%s/%s not found", a.Collection, a.ID)
}

func amountString(v *float64) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%g", *v)
}
