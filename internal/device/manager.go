// Package device implements the replica pool described in spec.md
// section 4.3: a list of network replicas indexed by device, with
// loan semantics that exclude the learner's designated device from
// inference while it is training.
package device

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/mattrek/alphazero-stochastic/internal/network"
)

// Device is one replica slot: a network instance bound to a device
// name (e.g. "cpu", "gpu:0") and a batch size it was constructed for.
type Device struct {
	Name      string
	BatchSize int
	Net       network.Net

	mu       sync.Mutex
	learning bool
	inUse    int
}

// Loan is a checked-out reference to a Device, released by Close.
type Loan struct {
	dev *Device
}

// Net exposes the borrowed replica.
func (l *Loan) Net() network.Net { return l.dev.Net }

// Close releases the loan back to the device's pool.
func (l *Loan) Close() {
	l.dev.mu.Lock()
	l.dev.inUse--
	l.dev.mu.Unlock()
}

// Manager holds the full replica pool and serializes loans, per
// spec.md section 4.3 ("A learning flag on the designated learner
// device excludes it from inference loans while set").
type Manager struct {
	mu      sync.RWMutex
	devices []*Device
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{}
}

// AddDevice registers a replica under the given device name.
func (m *Manager) AddDevice(name string, batchSize int, net network.Net) *Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := &Device{Name: name, BatchSize: batchSize, Net: net}
	m.devices = append(m.devices, d)
	return d
}

// Count returns the number of registered replicas.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.devices)
}

// Devices returns the registered replicas in registration order. The
// slice is owned by the caller; do not mutate in place.
func (m *Manager) Devices() []*Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Device, len(m.devices))
	copy(out, m.devices)
	return out
}

// ByName returns the device registered under name, if any.
func (m *Manager) ByName(name string) (*Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.devices {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// SetLearning marks dev as excluded from (true) or available for
// (false) inference loans.
func (m *Manager) SetLearning(dev *Device, learning bool) {
	dev.mu.Lock()
	dev.learning = learning
	dev.mu.Unlock()
}

// Get checks out a loan for a replica that can serve the given batch
// size: a non-learning device named preferredDevice (when set) comes
// first, then the first non-learning device whose BatchSize matches;
// falls back to any non-learning device. Returns an error if every
// replica is currently excluded (all learning).
func (m *Manager) Get(batch int, preferredDevice string) (*Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var preferred, matched, fallback *Device
	for _, d := range m.devices {
		d.mu.Lock()
		learning := d.learning
		d.mu.Unlock()
		if learning {
			continue
		}
		if preferredDevice != "" && d.Name == preferredDevice {
			preferred = d
			break
		}
		if d.BatchSize == batch && matched == nil {
			matched = d
		}
		if fallback == nil {
			fallback = d
		}
	}
	chosen := preferred
	if chosen == nil {
		chosen = matched
	}
	if chosen == nil {
		chosen = fallback
	}
	if chosen == nil {
		return nil, errors.New("device: no non-learning replica available for inference")
	}
	chosen.mu.Lock()
	chosen.inUse++
	chosen.mu.Unlock()
	return &Loan{dev: chosen}, nil
}

// BroadcastReload loads the latest checkpoint ("-1") from dir into
// every device other than exclude, restoring the weight coherence
// invariant from spec.md section 4.3 ("weights are kept coherent by
// ... every other replica reloading it after each training step").
func (m *Manager) BroadcastReload(dir string, exclude *Device) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.devices {
		if d == exclude {
			continue
		}
		if err := d.Net.LoadCheckpoint(dir, network.LatestCheckpointStep); err != nil {
			return errors.Wrapf(err, "device: reload %s", d.Name)
		}
	}
	return nil
}

func (d *Device) String() string {
	return fmt.Sprintf("Device(%s, batch=%d)", d.Name, d.BatchSize)
}
