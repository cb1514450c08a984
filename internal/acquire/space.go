package acquire

import (
	"fmt"

	"golang.org/x/sys/unix"

	"deepcheck/internal/services"
)

type statfsFunc func(path string) (free uint64, err error)

func realStatfs(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// ensureFreeSpace fails when dir has less than minMiB available.
func ensureFreeSpace(statfs statfsFunc, dir string, minMiB int) error {
	if minMiB <= 0 {
		return nil
	}
	free, err := statfs(dir)
	if err != nil {
		return services.Wrap(services.ErrAcquisition, "acquire", "free space", "statfs "+dir, err)
	}
	need := uint64(minMiB) * 1024 * 1024
	if free < need {
		return services.Wrap(services.ErrAcquisition, "acquire", "free space",
			fmt.Sprintf("staging directory has %d MiB free, need %d MiB", free/(1024*1024), minMiB), nil)
	}
	return nil
}
