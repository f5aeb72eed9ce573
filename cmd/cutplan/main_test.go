package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"madera-precisa/internal/config"
	"madera-precisa/internal/cutplan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReadsStdin(t *testing.T) {
	var out bytes.Buffer
	cfg := config.CutPlanConfig{SheetWidth: 1000, SheetLength: 1000, Kerf: 0}

	err := run(strings.NewReader("id,width,length,quantity\n1,500,500,4\n"), &out, "", false, cfg)
	require.NoError(t, err)

	var plan cutplan.Plan
	require.NoError(t, json.Unmarshal(out.Bytes(), &plan))
	assert.Equal(t, 4, plan.Pieces)
	assert.Len(t, plan.Sheets, 1)
	assert.InDelta(t, 1.0, plan.Utilization, 1e-9)
}

func TestRunReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parts.csv")
	require.NoError(t, os.WriteFile(path, []byte("id;ancho;largo;cantidad\n1;100,5;200;1\n"), 0o600))

	var out bytes.Buffer
	err := run(strings.NewReader(""), &out, path, true, config.CutPlanConfig{})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "\n  \"sheetWidth\": 1210")
	assert.Contains(t, out.String(), "\"width\": 100.5")
}

func TestRunMissingFile(t *testing.T) {
	err := run(strings.NewReader(""), &bytes.Buffer{}, filepath.Join(t.TempDir(), "missing.csv"), false, config.CutPlanConfig{})
	assert.Error(t, err)
}

func TestRunRejectsNonFiniteDimensions(t *testing.T) {
	var out bytes.Buffer
	err := run(strings.NewReader("id,ancho,largo,cantidad\n1,NaN,500,1\n"), &out, "", false, config.CutPlanConfig{})

	assert.ErrorIs(t, err, cutplan.ErrInvalidCSV)
	assert.Empty(t, out.String())
}
