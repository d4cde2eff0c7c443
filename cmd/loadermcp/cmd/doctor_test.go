package cmd

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorCmd_JSON(t *testing.T) {
	// Given: a seeded corpus
	isolateEnv(t)
	seedCorpus(t)

	// When: running doctor with JSON output
	out, err := execute(t, "doctor", "--json", "--dir", t.TempDir())

	// Then: every check is reported and nothing is critical
	require.NoError(t, err)
	var report JSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.NotEqual(t, "failed", report.Status)

	byName := make(map[string]JSONCheckResult)
	for _, c := range report.Checks {
		byName[c.Name] = c
	}
	assert.Equal(t, "pass", byName["config"].Status)
	assert.Equal(t, "pass", byName["catalog"].Status)
	assert.Equal(t, "3 documents", byName["catalog"].Message)
	assert.Equal(t, "pass", byName["embedder"].Status)
	assert.Empty(t, report.Errors)
}

func TestDoctorCmd_MissingCatalogFails(t *testing.T) {
	home := isolateEnv(t)
	t.Setenv("LOADERMCP_CATALOG_PATH", home+"/data/catalog.db")

	out, err := execute(t, "doctor", "--dir", t.TempDir())

	require.Error(t, err)
	var de *doctorError
	assert.True(t, errors.As(err, &de))
	assert.Contains(t, out, "[FAIL] catalog")
	assert.Contains(t, out, "Status: FAILED")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{0.5, "less than 1 hour"},
		{1.5, "1 hour"},
		{5, "5 hours"},
		{30, "1 day"},
		{24 * 12, "12 days"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.hours))
		})
	}
}
