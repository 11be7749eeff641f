package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedBatch = `[
  {
    "invoice_details": {
      "serial_number": "INV-1",
      "total_quantity": 2,
      "total_tax_amount": 3,
      "total_amount": 23,
      "date": "2024-01-01"
    },
    "customer": {
      "customer_name": "Jane",
      "phone_number": null,
      "total_purchase_amount": null
    },
    "products": [
      {"name": "Pen", "quantity": 2, "unit_price": 10, "tax": "15%", "price_with_tax": 23}
    ]
  }
]`

func TestValidateBatch_WellFormed(t *testing.T) {
	require.NoError(t, ValidateBatch([]byte(wellFormedBatch)))
}

func TestValidateBatch_EmptyListIsValid(t *testing.T) {
	require.NoError(t, ValidateBatch([]byte(`[]`)))
}

func TestValidateBatch_AllFieldsOptional(t *testing.T) {
	require.NoError(t, ValidateBatch([]byte(`[{}]`)))
	require.NoError(t, ValidateBatch([]byte(`[{"products": []}]`)))
	require.NoError(t, ValidateBatch([]byte(`[{"invoice_details": null, "customer": null, "products": null}]`)))
}

func TestValidateBatch_FreeTextFieldsTolerateNumbers(t *testing.T) {
	require.NoError(t, ValidateBatch([]byte(`[
	  {"invoice_details": {"serial_number": 10042},
	   "customer": {"phone_number": 5550100},
	   "products": [{"name": "Pen", "tax": 15}]}
	]`)))
}

func TestValidateBatch_RejectsNonList(t *testing.T) {
	for _, raw := range []string{`{}`, `"batch"`, `42`, `null`} {
		t.Run(raw, func(t *testing.T) {
			err := ValidateBatch([]byte(raw))
			require.Error(t, err)
			assert.True(t, IsMalformedBatchError(err))
		})
	}
}

func TestValidateBatch_RejectsWrongFieldType(t *testing.T) {
	err := ValidateBatch([]byte(`[{"products": [{"quantity": "two"}]}]`))
	require.Error(t, err)
	assert.True(t, IsMalformedBatchError(err))
}

func TestValidateBatch_RejectsUnknownField(t *testing.T) {
	err := ValidateBatch([]byte(`[{"customer": {"customer_name": "Jane", "email": "j@x.io"}}]`))
	require.Error(t, err)
	assert.True(t, IsMalformedBatchError(err))
}

func TestParseBatch_RoundTrip(t *testing.T) {
	batch, err := ParseBatch([]byte(wellFormedBatch))
	require.NoError(t, err)
	require.Len(t, batch, 1)

	el := batch[0]
	require.NotNil(t, el.InvoiceDetails)
	assert.Equal(t, "INV-1", el.InvoiceDetails.SerialNumber.String())
	require.NotNil(t, el.Customer)
	assert.Equal(t, "Jane", *el.Customer.CustomerName)
	assert.Nil(t, el.Customer.PhoneNumber)
	require.Len(t, el.Products, 1)
	assert.Equal(t, "15%", el.Products[0].Tax.String())
	assert.Equal(t, 23.0, *el.Products[0].PriceWithTax)
}

func TestParseBatch_MalformedSurfacesAsOneAggregateFailure(t *testing.T) {
	_, err := ParseBatch([]byte(`{"not": "a list"}`))
	require.Error(t, err)
	assert.True(t, IsMalformedBatchError(err))

	wrapped := fmt.Errorf("ingest failed: %w", err)
	assert.True(t, IsMalformedBatchError(wrapped), "detection must survive wrapping")
	assert.False(t, IsMalformedBatchError(errors.New("other")))
}
