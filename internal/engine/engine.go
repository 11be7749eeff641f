package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rowsync/rowsync/internal/model"
	"github.com/rowsync/rowsync/internal/oplog"
	"github.com/rowsync/rowsync/internal/resolver"
	"github.com/rowsync/rowsync/internal/store"
)

// DefaultMaxDepth is the default maximum cascade depth per operation.
// Well-formed rules converge within a handful of steps; the limit only
// exists to turn a non-convergent rule into an error.
const DefaultMaxDepth = 16

// Engine owns the linked store and cascades derived-field recomputation
// after every mutation.
//
// INVARIANTS:
//   - the store is mutated exclusively through dispatch(), so every
//     applied mutation is recorded in the changelog and reacted to
//   - one operation runs at a time, to completion; there is no
//     re-entrancy beyond the engine's own cascade
type Engine struct {
	store    *store.Store
	log      *oplog.Log
	resolver *resolver.Resolver
	clock    *Clock

	taxMode  model.TaxMode
	maxDepth int
}

// Option configures engine parameters.
type Option func(*Engine)

// WithMaxDepth sets the cascade depth circuit breaker.
//
// Default: 16 (DefaultMaxDepth).
// Use WithMaxDepth(2) in tests to exercise DivergenceError.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		e.maxDepth = n
	}
}

// WithTaxMode sets how product tax values are aggregated. The source
// data is ambiguous between percentage and absolute amounts; the mode is
// an explicit policy choice, never guessed from the data.
func WithTaxMode(m model.TaxMode) Option {
	return func(e *Engine) {
		e.taxMode = m
	}
}

// New creates an Engine over a store and changelog. ids is used by the
// resolver to mint entity identifiers - pass resolver.UUIDGenerator{} in
// production and testutil.NewSequentialIDs in tests.
func New(st *store.Store, log *oplog.Log, ids resolver.IDGenerator, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		log:      log,
		resolver: resolver.New(ids),
		clock:    NewClock(),
		taxMode:  model.TaxPercentage,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the linked store for read-only projection.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Log exposes the mutation changelog.
func (e *Engine) Log() *oplog.Log {
	return e.log
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// TaxMode returns the configured tax aggregation mode.
func (e *Engine) TaxMode() model.TaxMode {
	return e.taxMode
}

// MaxDepth returns the configured cascade depth limit.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// cascade carries per-operation bookkeeping through one dispatch tree.
type cascade struct {
	ctx        context.Context
	propagated int
}

// dispatch applies one mutation, records it, and reacts to it.
// applied reports whether the mutation touched state: a patch on an
// absent record is a silent skip (CP-3), not an error.
func (e *Engine) dispatch(c *cascade, m store.Mutation, origin oplog.Origin, depth int) (applied bool, err error) {
	if depth > e.maxDepth {
		return false, &DivergenceError{
			Collection: m.Collection,
			EntityID:   m.ID,
			Depth:      depth,
			Limit:      e.maxDepth,
		}
	}

	applied, err = e.store.Apply(m)
	if err != nil {
		return false, fmt.Errorf("apply %s on %s: %w", m.Kind, m.Collection, err)
	}
	if !applied {
		slog.Debug("patch target missing, step skipped",
			"collection", m.Collection,
			"id", m.ID,
			"depth", depth,
		)
		return false, nil
	}

	if err := e.record(c.ctx, m, origin, depth); err != nil {
		return true, err
	}
	if origin == oplog.OriginPropagation {
		c.propagated++
		slog.Debug("propagated patch",
			"collection", m.Collection,
			"id", m.ID,
			"depth", depth,
			"changes", m.Changes,
		)
	}

	return true, e.react(c, m, depth)
}

// propagate dispatches a derived patch one level deeper.
func (e *Engine) propagate(c *cascade, m store.Mutation, depth int) error {
	_, err := e.dispatch(c, m, oplog.OriginPropagation, depth+1)
	return err
}

// record appends the mutation to the changelog with the next seq.
func (e *Engine) record(ctx context.Context, m store.Mutation, origin oplog.Origin, depth int) error {
	changes := "{}"
	switch m.Kind {
	case store.KindPatch:
		b, err := json.Marshal(m.Changes)
		if err != nil {
			return fmt.Errorf("encode change set: %w", err)
		}
		changes = string(b)
	case store.KindAddBatch:
		summary := map[string]int{}
		if n := len(m.Invoices); n > 0 {
			summary["invoices"] = n
		}
		if n := len(m.Products); n > 0 {
			summary["products"] = n
		}
		if n := len(m.Customers); n > 0 {
			summary["customers"] = n
		}
		b, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("encode batch summary: %w", err)
		}
		changes = string(b)
	}

	entry := oplog.Entry{
		Seq:        e.clock.Next(),
		Origin:     origin,
		Kind:       string(m.Kind),
		Collection: m.Collection,
		EntityID:   m.ID,
		Depth:      depth,
		Changes:    changes,
	}
	if err := e.log.Record(ctx, entry); err != nil {
		return fmt.Errorf("record mutation: %w", err)
	}
	return nil
}
