package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FreeText is a string field that tolerates JSON numbers. Extraction
// backends emit serial numbers, phone numbers and tax values as either
// strings or bare numbers depending on the source document.
type FreeText string

// UnmarshalJSON accepts a JSON string, number, or null.
func (f *FreeText) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FreeText(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FreeText(strconv.FormatFloat(n, 'f', -1, 64))
		return nil
	}
	return fmt.Errorf("free-text field must be a string or number, got %s", string(b))
}

// MarshalJSON always emits the string form.
func (f FreeText) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// String returns the text form.
func (f FreeText) String() string {
	return string(f)
}

// RawProduct is one extracted line item, exactly as the extraction
// collaborator reports it. Every field is nullable.
type RawProduct struct {
	Name         *string   `json:"name"`
	Quantity     *float64  `json:"quantity"`
	UnitPrice    *float64  `json:"unit_price"`
	Tax          *FreeText `json:"tax"` // free text: "15%", "3.00 (15%)", "15", ...
	PriceWithTax *float64  `json:"price_with_tax"`
}

// RawCustomer is the single extracted buyer for one document.
type RawCustomer struct {
	CustomerName        *string   `json:"customer_name"`
	PhoneNumber         *FreeText `json:"phone_number"`
	TotalPurchaseAmount *float64  `json:"total_purchase_amount"`
}

// RawInvoiceDetails carries the document-level metadata and totals.
type RawInvoiceDetails struct {
	SerialNumber   *FreeText `json:"serial_number"`
	TotalQuantity  *float64  `json:"total_quantity"`
	TotalTaxAmount *float64  `json:"total_tax_amount"`
	TotalAmount    *float64  `json:"total_amount"`
	Date           *string   `json:"date"`
}

// RawExtraction is one element of an ingest batch: one source document
// grouping to exactly one invoice. Sections may be entirely absent.
type RawExtraction struct {
	InvoiceDetails *RawInvoiceDetails `json:"invoice_details"`
	Customer       *RawCustomer       `json:"customer"`
	Products       []RawProduct       `json:"products"`
}
