// Package schema validates raw extraction batches at the ingest
// boundary.
//
// The expected shape is declared in batch.cue and enforced with the CUE
// SDK's Go API. Validation is all-or-nothing at the batch-structure
// level: a batch that is not a list of the expected shape is rejected as
// a MalformedBatchError before any state changes, while per-field
// defects inside a well-shaped batch pass through and degrade to
// warnings during resolution.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	_ "embed"

	"github.com/rowsync/rowsync/internal/model"
)

//go:embed batch.cue
var batchCUE string

// MalformedBatchError rejects a whole ingest call: the raw batch is not
// a list of the expected shape. No partial state change occurs.
type MalformedBatchError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *MalformedBatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed batch: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed batch: %s", e.Reason)
}

// Unwrap exposes the underlying cause.
func (e *MalformedBatchError) Unwrap() error {
	return e.Err
}

// IsMalformedBatchError reports whether err is a MalformedBatchError.
// Uses errors.As to handle wrapped errors.
func IsMalformedBatchError(err error) bool {
	var me *MalformedBatchError
	return errors.As(err, &me)
}

var (
	compileOnce sync.Once
	batchSchema cue.Value
	compileErr  error
)

// compiled returns the compiled batch schema. The schema is embedded at
// build time, so compilation failure is a programming error surfaced on
// first use.
func compiled() (cue.Value, error) {
	compileOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(batchCUE)
		if err := v.Err(); err != nil {
			compileErr = fmt.Errorf("compile batch schema: %w", err)
			return
		}
		batchSchema = v
	})
	return batchSchema, compileErr
}

// ValidateBatch checks raw JSON against the batch schema.
func ValidateBatch(data []byte) error {
	v, err := compiled()
	if err != nil {
		return err
	}
	if err := cuejson.Validate(data, v); err != nil {
		return &MalformedBatchError{
			Reason: "batch does not match the extraction schema",
			Err:    fmt.Errorf("%s", cueerrors.Details(err, nil)),
		}
	}
	return nil
}

// ParseBatch validates raw JSON and unmarshals it into typed raw
// extraction records.
func ParseBatch(data []byte) ([]model.RawExtraction, error) {
	if err := ValidateBatch(data); err != nil {
		return nil, err
	}
	var batch []model.RawExtraction
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, &MalformedBatchError{Reason: "batch is not valid JSON", Err: err}
	}
	return batch, nil
}
