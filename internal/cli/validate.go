package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rowsync/rowsync/internal/schema"
)

// ValidationResult holds the outcome of a batch validation.
type ValidationResult struct {
	File   string `json:"file"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <batch.json>",
		Short: "Validate a batch file against the extraction schema",
		Long: `Validate a raw extraction batch against the batch schema without
ingesting it.

Only structural violations fail validation: a non-list payload, wrong
field types, unknown fields. Missing values are fine; they become
per-field warnings at ingest time.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		formatter.Error(fmt.Sprintf("cannot read %s: %v", path, err))
		return WrapExitError(ExitCommandError, "read batch file", err)
	}
	formatter.VerboseLog("Validating %s (%d bytes)", path, len(data))

	if err := schema.ValidateBatch(data); err != nil {
		var malformed *schema.MalformedBatchError
		reason := err.Error()
		if errors.As(err, &malformed) {
			reason = malformed.Reason
		}
		if err := formatter.SuccessText(
			fmt.Sprintf("%s: INVALID\n%s", path, reason),
			ValidationResult{File: path, Valid: false, Reason: reason},
		); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "batch is malformed")
	}

	return formatter.SuccessText(
		fmt.Sprintf("%s: OK", path),
		ValidationResult{File: path, Valid: true},
	)
}
