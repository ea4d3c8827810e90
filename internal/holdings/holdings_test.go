package holdings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minghuang/etfdca/internal/contracts"
)

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "holdings.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadNormalizesTickers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.csv")
	data := "ticker,shares\niwy, 3.5\nSPMO,4\n,0\nrsp,0\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	h, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 3.5, h["IWY"], 1e-9)
	assert.InDelta(t, 4, h["SPMO"], 1e-9)
	assert.Zero(t, h["RSP"])
	assert.Len(t, h, 3)
}

func TestLoadRejectsBadShareCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.csv")
	require.NoError(t, os.WriteFile(path, []byte("ticker,shares\nIWY,three\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.csv")
	require.NoError(t, os.WriteFile(path, []byte("symbol,qty\nIWY,3\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ticker and shares")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.csv")
	in := contracts.Holdings{"VNQ": 5, "IWY": 3.25, "PFF": 10}
	require.NoError(t, Save(path, in))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
