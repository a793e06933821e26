package state

import (
	"sync"
	"time"

	"github.com/mosaicnetworks/servicenode/src/node/mode"
)

// ActivationState captures the lifecycle of a service node: Initial,
// SyncInProgress, InputTooNew, NotCapable or Started. The numeric values are
// stable and reported by the status API.
type ActivationState uint32

const (
	// Initial is the state of a node that has not been evaluated yet, or that
	// is not configured.
	Initial ActivationState = iota

	// SyncInProgress is the state in which the node waits for the local chain
	// to catch up with the network.
	SyncInProgress

	// InputTooNew is the state in which the collateral is valid but not
	// buried under enough confirmations yet.
	InputTooNew

	// NotCapable is the state of a node that fails a capability check. The
	// snapshot reason says which.
	NotCapable

	// Started is the state of an active service node. It is the only state in
	// which liveness pings are sent.
	Started
)

// String returns the label of an ActivationState.
func (s ActivationState) String() string {
	switch s {
	case Initial:
		return "INITIAL"
	case SyncInProgress:
		return "SYNC_IN_PROGRESS"
	case InputTooNew:
		return "INPUT_TOO_NEW"
	case NotCapable:
		return "NOT_CAPABLE"
	case Started:
		return "STARTED"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is a consistent view of an active node. State and Reason are always
// written together.
type Snapshot struct {
	State  ActivationState
	Reason string
	Mode   mode.Kind

	// PingerEnabled is set while a self-hosted node is Started.
	PingerEnabled bool

	ServiceAddr string
	LastPing    int64
	ChangedAt   time.Time
	LastTick    time.Time

	PingsSent         uint64
	AnnouncementsSent uint64
	BroadcastFailures uint64
	Transitions       uint64
}

// Manager guards a Snapshot. Writers take the write lock for the whole update,
// readers get a copy under the read lock.
type Manager struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewManager creates a Manager in the Initial state.
func NewManager(kind mode.Kind) *Manager {
	return &Manager{
		snap: Snapshot{
			State: Initial,
			Mode:  kind,
		},
	}
}

// Get returns a copy of the current snapshot.
func (m *Manager) Get() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.snap
}

// GetState returns the current state.
func (m *Manager) GetState() ActivationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.snap.State
}

// Update applies f to the snapshot under the write lock.
func (m *Manager) Update(f func(s *Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f(&m.snap)
}

// SetState sets state and reason together and returns the previous state.
// ChangedAt only moves when the state changes.
func (m *Manager) SetState(s ActivationState, reason string, now time.Time) ActivationState {
	return m.SetStateWith(s, reason, now, nil)
}

// SetStateWith is SetState with f applied to the snapshot under the same write
// lock, so readers see the extra fields and the new state together.
func (m *Manager) SetStateWith(s ActivationState, reason string, now time.Time, f func(s *Snapshot)) ActivationState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f != nil {
		f(&m.snap)
	}

	prev := m.snap.State
	if prev != s {
		m.snap.ChangedAt = now
		m.snap.Transitions++
	}
	m.snap.State = s
	m.snap.Reason = reason
	m.snap.PingerEnabled = s == Started && m.snap.Mode == mode.SelfHostedKind

	return prev
}
