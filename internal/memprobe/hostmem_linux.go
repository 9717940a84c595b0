//go:build linux

package memprobe

import "golang.org/x/sys/unix"

// hostMemoryMB returns this machine's physical RAM in MiB, read via
// Sysinfo's totalram/unit fields (the kernel's own page-count × page-size
// accounting, matching the design's "physical RAM page-count × page-size").
func hostMemoryMB() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}
	totalBytes := uint64(info.Totalram) * uint64(info.Unit)
	return totalBytes / (1024 * 1024), nil
}
