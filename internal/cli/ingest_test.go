package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestSingleFile(t *testing.T) {
	out, err := execute(t, "ingest", penFixture)
	require.NoError(t, err)
	assert.Contains(t, out, "1 invoice(s), 1 new product(s), 1 new customer(s)")
	assert.Contains(t, out, "Totals: 1 invoice(s), 1 product(s), 1 customer(s)")
}

func TestIngestSameFileTwiceDeduplicates(t *testing.T) {
	out, err := execute(t, "ingest", penFixture, penFixture)
	require.NoError(t, err)
	assert.Contains(t, out, "Totals: 2 invoice(s), 1 product(s), 1 customer(s)")
}

func TestIngestJSONOutputIncludesSnapshot(t *testing.T) {
	out, err := execute(t, "--format", "json", "ingest", penFixture)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   IngestSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data.Snapshot)
	assert.Len(t, resp.Data.Snapshot.Invoices, 1)
	assert.Equal(t, 1, resp.Data.Counts.Products)
}

func TestIngestMalformedBatchFails(t *testing.T) {
	path := writeFile(t, "bad.json", `[{"products":"nope"}]`)
	_, err := execute(t, "ingest", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestIngestRejectsUnknownTaxMode(t *testing.T) {
	_, err := execute(t, "ingest", "--tax-mode", "flat", penFixture)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
