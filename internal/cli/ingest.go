package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rowsync/rowsync/internal/engine"
	"github.com/rowsync/rowsync/internal/model"
	"github.com/rowsync/rowsync/internal/oplog"
	"github.com/rowsync/rowsync/internal/query"
	"github.com/rowsync/rowsync/internal/resolver"
	"github.com/rowsync/rowsync/internal/schema"
	"github.com/rowsync/rowsync/internal/store"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	TaxMode  string
	MaxDepth int
}

// IngestSummary is the aggregate outcome of ingesting one or more batch
// files.
type IngestSummary struct {
	Files    []FileReport       `json:"files"`
	Counts   query.Counts       `json:"counts"`
	Flagged  []query.FlaggedRow `json:"flagged,omitempty"`
	Snapshot *query.Snapshot    `json:"snapshot,omitempty"`
}

// FileReport is the per-file ingest report.
type FileReport struct {
	File string `json:"file"`
	engine.IngestReport
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	ingestOpts := &IngestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest <batch.json> [more.json...]",
		Short: "Ingest batch files and print the converged tables",
		Long: `Ingest one or more raw extraction batch files into a fresh engine,
in order, and report the converged state.

Entities deduplicate by normalized name within and across files. The
final snapshot is printed in JSON format; text format prints a summary
with per-file reports and warning flags.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(rootOpts, ingestOpts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&ingestOpts.TaxMode, "tax-mode", string(model.TaxPercentage),
		"product tax interpretation (percentage|absolute)")
	cmd.Flags().IntVar(&ingestOpts.MaxDepth, "max-depth", engine.DefaultMaxDepth,
		"propagation depth limit")

	return cmd
}

func runIngest(opts *RootOptions, ingestOpts *IngestOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	taxMode, ok := model.ParseTaxMode(ingestOpts.TaxMode)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown tax mode %q", ingestOpts.TaxMode))
	}

	log, err := oplog.Open()
	if err != nil {
		return WrapExitError(ExitCommandError, "open changelog", err)
	}
	defer log.Close()

	eng := engine.New(store.New(), log, resolver.UUIDGenerator{},
		engine.WithTaxMode(taxMode),
		engine.WithMaxDepth(ingestOpts.MaxDepth),
	)

	summary := IngestSummary{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			formatter.Error(fmt.Sprintf("cannot read %s: %v", path, err))
			return WrapExitError(ExitCommandError, "read batch file", err)
		}
		rep, err := eng.IngestJSON(cmd.Context(), data)
		if err != nil {
			formatter.Error(fmt.Sprintf("%s: %v", path, err))
			if schema.IsMalformedBatchError(err) {
				return WrapExitError(ExitFailure, "batch is malformed", err)
			}
			return WrapExitError(ExitCommandError, "ingest failed", err)
		}
		formatter.VerboseLog("Ingested %s: %d invoice(s), %d new product(s), %d new customer(s)",
			path, rep.Invoices, rep.NewProducts, rep.NewCustomers)
		summary.Files = append(summary.Files, FileReport{File: path, IngestReport: *rep})
	}

	projector := query.New(eng.Store())
	summary.Counts = projector.Counts()
	summary.Flagged = projector.Flagged()
	if opts.Format == "json" {
		snap := projector.Snapshot()
		summary.Snapshot = &snap
	}

	return formatter.SuccessText(ingestText(&summary), summary)
}

func ingestText(s *IngestSummary) string {
	var b strings.Builder
	for _, f := range s.Files {
		fmt.Fprintf(&b, "%s: %d invoice(s), %d new product(s), %d new customer(s), %d propagated\n",
			f.File, f.Invoices, f.NewProducts, f.NewCustomers, f.Propagated)
	}
	fmt.Fprintf(&b, "Totals: %d invoice(s), %d product(s), %d customer(s)",
		s.Counts.Invoices, s.Counts.Products, s.Counts.Customers)
	if len(s.Flagged) > 0 {
		fmt.Fprintf(&b, "\nFlagged records:")
		for _, row := range s.Flagged {
			for _, w := range row.Warnings {
				fmt.Fprintf(&b, "\n  %s/%s: %s", row.Collection, row.ID, w.Message)
			}
		}
	}
	return b.String()
}
