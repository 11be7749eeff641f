package resolver

import (
	"regexp"
	"strconv"

	"github.com/rowsync/rowsync/internal/model"
)

// Extraction backends report tax as free text: "15%", "3.00 (15%)",
// "15", 15. A percent-suffixed number wins over a bare number because
// mixed forms like "3.00 (15%)" carry the rate in the parenthesized
// part.
var (
	percentTaxRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	bareTaxRe    = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ParseTaxText scans a free-text tax field. The first percent-form match
// wins, then the first bare numeric; found is false when nothing
// numeric appears (or the field is absent), which earns the product a
// "Missing tax" warning at creation.
func ParseTaxText(raw *model.FreeText) (tax *float64, found bool) {
	if raw == nil {
		return nil, false
	}
	s := raw.String()

	if m := percentTaxRe.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return &v, true
		}
	}
	if m := bareTaxRe.FindString(s); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			return &v, true
		}
	}
	return nil, false
}
