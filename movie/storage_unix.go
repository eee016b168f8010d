//go:build !windows

package movie

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func volumeInfo(dir string) (*StorageInfo, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return nil, fmt.Errorf("statfs %s: %w", dir, err)
	}

	bsize := uint64(stat.Bsize)
	total := uint64(stat.Blocks) * bsize
	return &StorageInfo{
		TotalBytes:     total,
		AvailableBytes: uint64(stat.Bavail) * bsize,
		UsedBytes:      total - uint64(stat.Bfree)*bsize,
	}, nil
}
