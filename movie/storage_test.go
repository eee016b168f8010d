package movie

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStorageInfoCalculation tests disk space detection for a temp directory
func TestStorageInfoCalculation(t *testing.T) {
	info, err := GetStorageInfo(t.TempDir())
	require.NoError(t, err)

	assert.NotZero(t, info.TotalBytes)
	assert.LessOrEqual(t, info.AvailableBytes, info.TotalBytes)
	assert.LessOrEqual(t, info.UsedBytes, info.TotalBytes)

	t.Logf("Total: %.2f GB, available: %.2f GB",
		float64(info.TotalBytes)/(1<<30), float64(info.AvailableBytes)/(1<<30))
}

func TestStorageInfoRejectsFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := GetStorageInfo(path)
	assert.Error(t, err)

	_, err = GetStorageInfo(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, checkFreeSpace(dir, 0))
	assert.NoError(t, checkFreeSpace(dir, 1))

	err := checkFreeSpace(dir, math.MaxUint64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStorage))
}
