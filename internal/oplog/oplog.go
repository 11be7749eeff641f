package oplog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rowsync/rowsync/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Origin identifies what caused a mutation.
type Origin string

const (
	// OriginUser marks a direct cell edit or clear issued by the caller.
	OriginUser Origin = "user"
	// OriginIngest marks the add-or-merge batch emitted by the resolver.
	OriginIngest Origin = "ingest"
	// OriginPropagation marks a derived patch emitted by the engine.
	OriginPropagation Origin = "propagation"
)

// Entry is one recorded mutation.
type Entry struct {
	Seq        int64            `json:"seq"`
	Origin     Origin           `json:"origin"`
	Kind       string           `json:"kind"`
	Collection model.Collection `json:"collection"`
	EntityID   string           `json:"entity_id,omitempty"`
	Depth      int              `json:"depth"`
	Changes    string           `json:"changes"` // JSON-encoded change set or batch summary
}

// Log is the append-only mutation changelog.
type Log struct {
	db *sql.DB
}

// Open creates a fresh in-memory changelog.
func Open() (*Log, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open changelog: %w", err)
	}

	// One connection, or each conn would see its own empty :memory: db.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect changelog: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply changelog schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Close closes the changelog database.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record appends one entry. Seq values come from the engine's logical
// clock and must be unique and increasing.
func (l *Log) Record(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO mutations (seq, origin, kind, collection, entity_id, depth, changes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Seq, string(e.Origin), e.Kind, string(e.Collection), e.EntityID, e.Depth, e.Changes,
	)
	if err != nil {
		return fmt.Errorf("record mutation seq %d: %w", e.Seq, err)
	}
	return nil
}

// Entries returns the full changelog in seq order.
func (l *Log) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT seq, origin, kind, collection, entity_id, depth, changes
		FROM mutations
		ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("read changelog: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var origin, collection string
		if err := rows.Scan(&e.Seq, &origin, &e.Kind, &collection, &e.EntityID, &e.Depth, &e.Changes); err != nil {
			return nil, fmt.Errorf("scan changelog row: %w", err)
		}
		e.Origin = Origin(origin)
		e.Collection = model.Collection(collection)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changelog: %w", err)
	}
	return out, nil
}

// EntriesSince returns entries with seq strictly greater than after, in
// seq order. Used to inspect the cascade of a single operation.
func (l *Log) EntriesSince(ctx context.Context, after int64) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT seq, origin, kind, collection, entity_id, depth, changes
		FROM mutations
		WHERE seq > ?
		ORDER BY seq ASC`, after)
	if err != nil {
		return nil, fmt.Errorf("read changelog after seq %d: %w", after, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var origin, collection string
		if err := rows.Scan(&e.Seq, &origin, &e.Kind, &collection, &e.EntityID, &e.Depth, &e.Changes); err != nil {
			return nil, fmt.Errorf("scan changelog row: %w", err)
		}
		e.Origin = Origin(origin)
		e.Collection = model.Collection(collection)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changelog: %w", err)
	}
	return out, nil
}

// CountByOrigin returns the number of recorded mutations with the given
// origin.
func (l *Log) CountByOrigin(ctx context.Context, origin Origin) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mutations WHERE origin = ?`, string(origin),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s mutations: %w", origin, err)
	}
	return n, nil
}

// Len returns the total number of recorded mutations.
func (l *Log) Len(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mutations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count mutations: %w", err)
	}
	return n, nil
}
