package model

// Warning is a per-field advisory annotation. Warnings never block
// ingest or edits; callers use them for cell-level flags.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Fixed messages for fields absent at extraction time. Attached once,
// when the owning entity is created.
var missingFieldMessages = map[string]string{
	FieldPhoneNumber:         "Missing phone number",
	FieldTotalPurchaseAmount: "Missing total purchase amount",
	FieldQuantity:            "Missing quantity",
	FieldUnitPrice:           "Missing unit price",
	FieldTax:                 "Missing tax",
	FieldQty:                 "Missing quantity",
	FieldTotalAmount:         "Missing total amount",
	FieldDate:                "Missing date",
}

// MissingFieldWarning returns the fixed warning for an absent field.
func MissingFieldWarning(field string) Warning {
	msg, ok := missingFieldMessages[field]
	if !ok {
		msg = "Missing " + field
	}
	return Warning{Field: field, Message: msg}
}

// MergeWarnings unions two warning lists, deduplicating by the
// (field, message) pair and preserving first-seen order.
func MergeWarnings(existing, incoming []Warning) []Warning {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[Warning]bool, len(existing)+len(incoming))
	out := make([]Warning, 0, len(existing)+len(incoming))
	for _, w := range existing {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	for _, w := range incoming {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// FieldWarnings filters a warning list down to a single field. Pure
// lookup; nothing is recomputed.
func FieldWarnings(ws []Warning, field string) []Warning {
	var out []Warning
	for _, w := range ws {
		if w.Field == field {
			out = append(out, w)
		}
	}
	return out
}

// HasWarning reports whether the list already carries the exact
// (field, message) pair.
func HasWarning(ws []Warning, w Warning) bool {
	for _, have := range ws {
		if have == w {
			return true
		}
	}
	return false
}
