package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.csv", "x\n1\n")
	b := writeTemp(t, dir, "b.csv", "x\n2\n")

	out, err := execute(t, NewBatchCommand(), a, b, "--to", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "2 converted, 0 skipped, 0 failed")

	_, err = os.Stat(filepath.Join(dir, "a.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "b.json"))
	assert.NoError(t, err)
}

func TestBatchCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	ok := writeTemp(t, dir, "ok.csv", "x\n1\n")

	out, err := execute(t, NewBatchCommand(), "missing.csv", ok, "--to", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 units failed")
	assert.Contains(t, out, "1 converted, 0 skipped, 1 failed")
	assert.Contains(t, out, "missing.csv")
}

func TestBatchCommandJSONReport(t *testing.T) {
	dir := t.TempDir()
	src := writeTemp(t, dir, "a.csv", "x\n1\n")

	out, err := execute(t, NewBatchCommand(), src, "--to", "json", "--json")
	require.NoError(t, err)

	var report struct {
		RunID     string `json:"run_id"`
		Converted int    `json:"converted"`
		Results   []struct {
			Source string `json:"source"`
			Status string `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Converted)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "converted", report.Results[0].Status)
}
