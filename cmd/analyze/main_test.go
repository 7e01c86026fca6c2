package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobNames_SuffixRepeatedBaseNames(t *testing.T) {
	names := jobNames([]string{
		"march/transactions.csv",
		"april/transactions.csv",
		"transactions-2.csv",
		"may/transactions.csv",
		"extra.txt",
	})

	assert.Equal(t, []string{"transactions", "transactions-2", "transactions-2-2", "transactions-3", "extra"}, names)
}

func TestLoadCSVJobs_DistinctReportPaths(t *testing.T) {
	dir := t.TempDir()
	csv := "transaction_id,sender_id,receiver_id,amount,timestamp\nT1,A,B,5,2024-01-01\n"
	var paths []string
	for _, sub := range []string{"a", "b"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
		path := filepath.Join(dir, sub, "batch.csv")
		require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))
		paths = append(paths, path)
	}

	jobs, err := loadCSVJobs(paths)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "batch", jobs[0].Name)
	assert.Equal(t, "batch-2", jobs[1].Name)
	assert.Len(t, jobs[1].Rows, 1)
}

// run must hand its exit code back rather than exiting, so deferred closers
// get to run. Flags are registered on the global set, so call it only once.
func TestRun_ReturnsUsageCodeWithoutInput(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_LEVEL", "error")

	assert.Equal(t, 2, run())
}
