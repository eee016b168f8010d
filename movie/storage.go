package movie

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// StorageInfo describes the volume holding an output directory.
type StorageInfo struct {
	TotalBytes     uint64
	AvailableBytes uint64
	UsedBytes      uint64
}

// GetStorageInfo returns storage information for the volume containing dir.
// dir must exist.
func GetStorageInfo(dir string) (*StorageInfo, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}

	fi, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absDir)
	}

	info, err := volumeInfo(absDir)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "GetStorageInfo",
			"dir":      absDir,
			"error":    err.Error(),
		}).Error("Failed to query volume statistics")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":        "GetStorageInfo",
		"dir":             absDir,
		"total_bytes":     info.TotalBytes,
		"available_bytes": info.AvailableBytes,
	}).Debug("Storage information retrieved")

	return info, nil
}

// checkFreeSpace fails with ErrInsufficientStorage when dir's volume has
// less than minFree bytes available. A zero floor disables the check.
func checkFreeSpace(dir string, minFree uint64) error {
	if minFree == 0 {
		return nil
	}
	info, err := GetStorageInfo(dir)
	if err != nil {
		return err
	}
	if info.AvailableBytes < minFree {
		return fmt.Errorf("%w: %d bytes available, %d required", ErrInsufficientStorage, info.AvailableBytes, minFree)
	}
	return nil
}
