//go:build windows

package movie

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func volumeInfo(dir string) (*StorageInfo, error) {
	path, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to convert path to UTF-16: %w", err)
	}

	var available, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(path, &available, &total, &free); err != nil {
		return nil, fmt.Errorf("GetDiskFreeSpaceEx %s: %w", dir, err)
	}

	return &StorageInfo{
		TotalBytes:     total,
		AvailableBytes: available,
		UsedBytes:      total - free,
	}, nil
}
