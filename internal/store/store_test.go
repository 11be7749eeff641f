package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowsync/rowsync/internal/model"
)

func TestApply_AddBatchAppendsInOrder(t *testing.T) {
	s := New()

	_, err := s.Apply(AddProducts([]model.Product{
		{ID: "p-1", Name: "Pen"},
		{ID: "p-2", Name: "Notebook"},
	}))
	require.NoError(t, err)

	products := s.Products()
	require.Len(t, products, 2)
	assert.Equal(t, "Pen", products[0].Name)
	assert.Equal(t, "Notebook", products[1].Name)
}

func TestApply_AddBatchUpsertsByID(t *testing.T) {
	s := New()

	_, err := s.Apply(AddCustomers([]model.Customer{{ID: "c-1", Name: "Jane"}}))
	require.NoError(t, err)

	// Same id again: record replaced, order and count unchanged.
	_, err = s.Apply(AddCustomers([]model.Customer{
		{ID: "c-1", Name: "Jane", PhoneNumber: "555-0100"},
		{ID: "c-2", Name: "Ravi"},
	}))
	require.NoError(t, err)

	customers := s.Customers()
	require.Len(t, customers, 2)
	assert.Equal(t, "c-1", customers[0].ID)
	assert.Equal(t, "555-0100", customers[0].PhoneNumber)
}

func TestApply_AddBatchRejectsMissingID(t *testing.T) {
	s := New()
	_, err := s.Apply(AddInvoices([]model.Invoice{{SerialNumber: "INV-1"}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without id")
}

func TestApply_PatchShallowMerges(t *testing.T) {
	s := New()
	_, err := s.Apply(AddProducts([]model.Product{
		{ID: "p-1", Name: "Pen", Quantity: model.Float(2), UnitPrice: model.Float(10)},
	}))
	require.NoError(t, err)

	applied, err := s.Apply(Patch(model.Products, "p-1", map[string]any{
		model.FieldUnitPrice: 20.0,
	}))
	require.NoError(t, err)
	assert.True(t, applied)

	p, ok := s.Product("p-1")
	require.True(t, ok)
	assert.Equal(t, 20.0, *p.UnitPrice)
	assert.Equal(t, 2.0, *p.Quantity, "untouched fields survive the merge")
	assert.Equal(t, "Pen", p.Name)
}

func TestApply_PatchAbsentIDIsNoop(t *testing.T) {
	s := New()
	applied, err := s.Apply(Patch(model.Products, "missing", map[string]any{
		model.FieldQuantity: 1.0,
	}))
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestApply_PatchCanClearToNull(t *testing.T) {
	s := New()
	_, err := s.Apply(AddProducts([]model.Product{{ID: "p-1", Tax: model.Float(15)}}))
	require.NoError(t, err)

	_, err = s.Apply(Patch(model.Products, "p-1", map[string]any{model.FieldTax: nil}))
	require.NoError(t, err)

	p, _ := s.Product("p-1")
	assert.Nil(t, p.Tax)
}

func TestApply_PatchRejectsNonPatchableField(t *testing.T) {
	s := New()
	_, err := s.Apply(AddInvoices([]model.Invoice{{ID: "inv-1"}}))
	require.NoError(t, err)

	_, err = s.Apply(Patch(model.Invoices, "inv-1", map[string]any{"product_ids": []string{}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not patchable")

	_, err = s.Apply(Patch(model.Invoices, "inv-1", map[string]any{"id": "other"}))
	require.Error(t, err)
}

func TestApply_PatchRejectsEmptyChangeSet(t *testing.T) {
	s := New()
	_, err := s.Apply(Patch(model.Customers, "c-1", nil))
	require.Error(t, err)
}

func TestApply_PatchRejectsWrongValueType(t *testing.T) {
	s := New()
	_, err := s.Apply(AddCustomers([]model.Customer{{ID: "c-1"}}))
	require.NoError(t, err)

	_, err = s.Apply(Patch(model.Customers, "c-1", map[string]any{model.FieldName: 42}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected string")
}

func TestApply_Clear(t *testing.T) {
	s := New()
	_, err := s.Apply(AddProducts([]model.Product{{ID: "p-1"}, {ID: "p-2"}}))
	require.NoError(t, err)

	_, err = s.Apply(Clear(model.Products))
	require.NoError(t, err)

	assert.Zero(t, s.Count(model.Products))
	assert.Empty(t, s.Products())

	// Cleared collection accepts fresh batches.
	_, err = s.Apply(AddProducts([]model.Product{{ID: "p-3"}}))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count(model.Products))
}

func TestReads_ReturnClones(t *testing.T) {
	s := New()
	_, err := s.Apply(AddInvoices([]model.Invoice{
		{ID: "inv-1", ProductIDs: []string{"p-1"}, TotalAmount: model.Float(23)},
	}))
	require.NoError(t, err)

	inv, ok := s.Invoice("inv-1")
	require.True(t, ok)
	inv.ProductIDs[0] = "hijacked"
	*inv.TotalAmount = 0

	fresh, _ := s.Invoice("inv-1")
	assert.Equal(t, "p-1", fresh.ProductIDs[0])
	assert.Equal(t, 23.0, *fresh.TotalAmount)
}

func TestHasAndCount(t *testing.T) {
	s := New()
	assert.False(t, s.Has(model.Customers, "c-1"))

	_, err := s.Apply(AddCustomers([]model.Customer{{ID: "c-1"}}))
	require.NoError(t, err)

	assert.True(t, s.Has(model.Customers, "c-1"))
	assert.Equal(t, 1, s.Count(model.Customers))
	assert.Zero(t, s.Count(model.Invoices))
}
