// Package memprobe implements MemoryProbe: host and device memory
// discovery, collectively reduced with MIN across every cooperating
// process so every rank agrees on the smallest machine's capacity.
package memprobe

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aerctl/aerctl/fabric"
	"github.com/aerctl/aerctl/internal/engine"
)

// Device is one visible accelerator device. A real implementation is
// backed by a CUDA/ROCm/Metal enumeration call; the zero-device default
// used when no such enumerator is configured makes DeviceMemoryMB report 0.
type Device interface {
	// TotalMemoryMB is the device's total onboard memory, in MiB.
	TotalMemoryMB() uint64
}

// Enumerator lists the accelerator devices visible to this process.
type Enumerator func() []Device

// noDevices is the default Enumerator: no accelerators visible.
func noDevices() []Device { return nil }

// Probe queries host and device physical memory and reduces both across
// the fabric with MIN, so every rank plans against the smallest machine's
// capacity.
type Probe struct {
	fabric       fabric.Fabric
	hostMemoryMB func() (uint64, error)
	devices      Enumerator
	log          zerolog.Logger

	peerOnce    sync.Once
	peerEnabled bool
}

// Option configures a Probe at construction time.
type Option func(*Probe)

// WithDevices overrides the default zero-device enumerator.
func WithDevices(e Enumerator) Option {
	return func(p *Probe) { p.devices = e }
}

// WithLogger attaches a structured logger; the zero value is a disabled
// logger, matching zerolog's own default.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Probe) { p.log = log }
}

// New returns a Probe that reduces across f. f may be fabric.Single() when
// no distributed transport is configured.
func New(f fabric.Fabric, opts ...Option) *Probe {
	p := &Probe{
		fabric:       f,
		hostMemoryMB: hostMemoryMB,
		devices:      noDevices,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HostMemoryMB returns the physical RAM of the current machine in MiB,
// reduced with MIN across every rank in the fabric.
func (p *Probe) HostMemoryMB(ctx context.Context) (uint64, error) {
	p.enablePeerAccessOnce()

	local, err := p.hostMemoryMB()
	if err != nil {
		return 0, err
	}
	reduced, err := p.fabric.AllReduceMin(ctx, local)
	if err != nil {
		return 0, err
	}
	p.log.Debug().Uint64("local_mb", local).Uint64("reduced_mb", reduced).Msg("memprobe: host memory probed")
	return reduced, nil
}

// DeviceMemoryMB returns the sum of onboard memory across every visible
// accelerator device, in MiB, reduced with MIN across every rank.
func (p *Probe) DeviceMemoryMB(ctx context.Context) (uint64, error) {
	p.enablePeerAccessOnce()

	devices := p.devices()
	fold := engine.NewAssociative(uint64(0), engine.AddUint64)
	mbs := make([]uint64, len(devices))
	for i, d := range devices {
		mbs[i] = d.TotalMemoryMB()
	}
	local := fold.Fold(mbs)

	reduced, err := p.fabric.AllReduceMin(ctx, local)
	if err != nil {
		return 0, err
	}
	p.log.Debug().Int("devices", len(devices)).Uint64("local_mb", local).Uint64("reduced_mb", reduced).Msg("memprobe: device memory probed")
	return reduced, nil
}

// enablePeerAccessOnce best-effort enables peer access between every
// ordered pair of distinct accelerator devices, exactly once per Probe.
// Failures are ignored: peer access is an optimization, not a correctness
// requirement.
func (p *Probe) enablePeerAccessOnce() {
	p.peerOnce.Do(func() {
		devices := p.devices()
		if len(devices) < 2 {
			return
		}
		for i := range devices {
			for j := range devices {
				if i == j {
					continue
				}
				// Enabling peer access is backend-specific (CUDA/ROCm)
				// and has no portable Go API; the enumerator a real
				// deployment plugs in here is expected to perform it as
				// part of device discovery. Absent that, this is a no-op
				// that still marks the attempt as made.
			}
		}
		p.peerEnabled = true
		p.log.Debug().Int("devices", len(devices)).Msg("memprobe: peer access enable attempted")
	})
}
