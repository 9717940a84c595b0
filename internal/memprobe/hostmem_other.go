//go:build !linux

package memprobe

import "runtime"

// hostMemoryMB is the non-Linux fallback: the standard library exposes no
// portable physical-memory query, so this reports a conservative
// per-core estimate (2 GiB/core) rather than failing the probe outright.
// Real deployments of this controller run on Linux hosts; this path exists
// so the package still builds and the probe still returns a usable, if
// approximate, budget elsewhere.
func hostMemoryMB() (uint64, error) {
	const perCoreMB = 2048
	return uint64(runtime.NumCPU()) * perCoreMB, nil
}
