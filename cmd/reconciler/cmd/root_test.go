package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setFlag(t *testing.T, key, value string) {
	t.Helper()
	v.Set(key, value)
	t.Cleanup(func() { v.Set(key, "") })
}

func TestTenantFlag(t *testing.T) {
	_, err := tenantFlag()
	assert.Error(t, err, "missing tenant")

	setFlag(t, keyTenant, "not-a-uuid")
	_, err = tenantFlag()
	assert.Error(t, err)

	setFlag(t, keyTenant, uuid.Nil.String())
	_, err = tenantFlag()
	assert.Error(t, err)

	id := uuid.New()
	setFlag(t, keyTenant, id.String())
	got, err := tenantFlag()
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestOutputFlag(t *testing.T) {
	for _, out := range []string{"text", "json"} {
		setFlag(t, keyOutput, out)
		got, err := outputFlag()
		require.NoError(t, err)
		assert.Equal(t, out, got)
	}

	setFlag(t, keyOutput, "yaml")
	_, err := outputFlag()
	assert.Error(t, err)
}

func TestParseDateFlag(t *testing.T) {
	got, err := parseDateFlag("from", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseDateFlag("from", "2025-01-31")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), *got)

	_, err = parseDateFlag("to", "31/01/2025")
	assert.ErrorContains(t, err, "--to")
}

func TestReportRange(t *testing.T) {
	t.Cleanup(func() { reportFrom, reportTo = "", "" })

	reportFrom, reportTo = "2025-01-01", "2025-01-31"
	rng, err := reportRange()
	require.NoError(t, err)
	require.NotNil(t, rng.From)
	require.NotNil(t, rng.To)

	reportFrom, reportTo = "2025-02-01", "2025-01-31"
	_, err = reportRange()
	assert.Error(t, err)

	reportFrom, reportTo = "", ""
	rng, err = reportRange()
	require.NoError(t, err)
	assert.Nil(t, rng.From)
	assert.Nil(t, rng.To)
}

func TestValidateImportFlags(t *testing.T) {
	dir := t.TempDir()
	csvFile := filepath.Join(dir, "january.csv")
	txtFile := filepath.Join(dir, "export.txt")
	require.NoError(t, os.WriteFile(csvFile, []byte("Date,Amount,Description\n"), 0o644))
	require.NoError(t, os.WriteFile(txtFile, []byte("Date,Amount,Description\n"), 0o644))

	setFlag(t, keyTenant, uuid.NewString())
	setFlag(t, keyOutput, "text")
	t.Cleanup(func() { importFile, importFormat = "", "" })

	tests := []struct {
		name    string
		file    string
		format  string
		wantErr bool
	}{
		{name: "detected from extension", file: csvFile},
		{name: "explicit format", file: txtFile, format: "ofx"},
		{name: "undetectable extension", file: txtFile, wantErr: true},
		{name: "unknown format", file: csvFile, format: "mt940", wantErr: true},
		{name: "missing file", file: filepath.Join(dir, "missing.csv"), wantErr: true},
		{name: "directory", file: dir, format: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			importFile, importFormat = tt.file, tt.format
			err := validateImportFlags(importCmd, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateAutomatchFlags(t *testing.T) {
	setFlag(t, keyTenant, uuid.NewString())
	setFlag(t, keyOutput, "json")
	t.Cleanup(func() { automatchBatch, automatchMinScore = "", 70 })

	automatchBatch, automatchMinScore = uuid.NewString(), 80
	assert.NoError(t, validateAutomatchFlags(automatchCmd, nil))

	automatchBatch = "batch-1"
	assert.Error(t, validateAutomatchFlags(automatchCmd, nil))

	automatchBatch, automatchMinScore = "", 101
	assert.Error(t, validateAutomatchFlags(automatchCmd, nil))
}
