// Package harness provides conformance testing for the rowsync engine.
//
// Scenarios are YAML files that ingest batch fixtures, run a flow of
// edits and clears against a real engine, and assert on the converged
// state and the changelog. Every scenario runs with sequential entity
// ids and a fresh in-memory changelog, so runs are deterministic and
// final snapshots can be compared against golden files.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	tax_mode: percentage
//	ingest:
//	  - ../batches/pen.json
//	flow:
//	  - edit: { collection: products, id: id-2, field: unit_price, value: "30" }
//	    expect: { applied: true, propagated: 3 }
//	  - clear: customers
//	assertions:
//	  - type: counts
//	    counts: { invoices: 1, products: 1, customers: 1 }
//	  - type: field_amount
//	    collection: products
//	    id: id-2
//	    field: price_with_tax
//	    amount: 69
//	  - type: changelog_count
//	    origin: propagation
//	    count: 3
//
// Fixture paths are relative to the scenario file. Entity ids follow
// resolution order with the fixed prefix "id": the first entity minted
// is id-1, the second id-2, and so on.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// TaxMode and MaxDepth override the engine defaults when set.
	TaxMode  string `yaml:"tax_mode,omitempty"`
	MaxDepth int    `yaml:"max_depth,omitempty"`

	// Ingest lists batch JSON fixtures, ingested in order before the
	// flow runs. Paths are relative to the scenario file.
	Ingest []string `yaml:"ingest"`

	// Flow contains the edits and clears to apply, in order.
	Flow []FlowStep `yaml:"flow,omitempty"`

	// Assertions validate the converged state and the changelog.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FlowStep is one mutation in the scenario flow. Exactly one of Edit
// and Clear must be set.
type FlowStep struct {
	Edit  *EditStep `yaml:"edit,omitempty"`
	Clear string    `yaml:"clear,omitempty"`

	// Expect validates the step outcome. Nil means the step only has
	// to not error.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// EditStep is one cell edit. Value is the raw cell text.
type EditStep struct {
	Collection string `yaml:"collection"`
	ID         string `yaml:"id"`
	Field      string `yaml:"field"`
	Value      string `yaml:"value"`
}

// ExpectClause holds expected step results. Unset fields are not
// checked.
type ExpectClause struct {
	Applied    *bool `yaml:"applied,omitempty"`
	Propagated *int  `yaml:"propagated,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type selects the assertion:
	//   - "counts": per-collection record counts
	//   - "field_amount": one numeric cell equals Amount (null when nil)
	//   - "field_text": one text cell equals Text
	//   - "warning": record carries a warning mentioning Field
	//   - "changelog_count": entries with Origin number exactly Count
	Type string `yaml:"type"`

	Collection string `yaml:"collection,omitempty"`
	ID         string `yaml:"id,omitempty"`
	Field      string `yaml:"field,omitempty"`

	Amount *float64       `yaml:"amount,omitempty"`
	Text   *string        `yaml:"text,omitempty"`
	Counts map[string]int `yaml:"counts,omitempty"`
	Origin string         `yaml:"origin,omitempty"`
	Count  int            `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertCounts         = "counts"
	AssertFieldAmount    = "field_amount"
	AssertFieldText      = "field_text"
	AssertWarning        = "warning"
	AssertChangelogCount = "changelog_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly instead of silently skipping a
// check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// Validate checks structural requirements before execution.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("missing required field: name")
	}
	if len(s.Ingest) == 0 && len(s.Flow) == 0 {
		return fmt.Errorf("scenario has no ingest fixtures and no flow steps")
	}
	for i, step := range s.Flow {
		hasEdit := step.Edit != nil
		hasClear := step.Clear != ""
		if hasEdit == hasClear {
			return fmt.Errorf("flow step %d: exactly one of edit and clear must be set", i)
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertCounts, AssertFieldAmount, AssertFieldText, AssertWarning, AssertChangelogCount:
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	return nil
}
