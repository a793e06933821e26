package chain

import (
	"context"
	"sync"
)

// SyncService reports whether the local view of the chain is up to date.
type SyncService interface {
	IsSynced(ctx context.Context) bool
}

// Tracker is a SyncService fed with the local tip height and the best height
// announced by the network. The local view is synced when it lags the network
// by no more than the configured tolerance. It also serves as the tip source
// used to turn output heights into confirmation counts.
type Tracker struct {
	sync.RWMutex

	localHeight   int64
	networkHeight int64
	tolerance     int64
}

// NewTracker creates a Tracker with the given lag tolerance, in blocks.
func NewTracker(tolerance int64) *Tracker {
	return &Tracker{
		tolerance: tolerance,
	}
}

// SetHeights records the local tip and the best known network height.
func (t *Tracker) SetHeights(local, network int64) {
	t.Lock()
	defer t.Unlock()

	t.localHeight = local
	t.networkHeight = network
}

// SetLocalHeight records the local tip height.
func (t *Tracker) SetLocalHeight(h int64) {
	t.Lock()
	defer t.Unlock()

	t.localHeight = h
}

// SetNetworkHeight records the best height announced by the network.
func (t *Tracker) SetNetworkHeight(h int64) {
	t.Lock()
	defer t.Unlock()

	t.networkHeight = h
}

// Heights returns the local and network heights.
func (t *Tracker) Heights() (local, network int64) {
	t.RLock()
	defer t.RUnlock()

	return t.localHeight, t.networkHeight
}

// Tip returns the local tip height.
func (t *Tracker) Tip() int64 {
	t.RLock()
	defer t.RUnlock()

	return t.localHeight
}

// Lag returns how many blocks the local view is behind the network.
func (t *Tracker) Lag() int64 {
	t.RLock()
	defer t.RUnlock()

	if t.networkHeight <= t.localHeight {
		return 0
	}
	return t.networkHeight - t.localHeight
}

// IsSynced implements SyncService. A node that has not seen any block yet is
// never synced.
func (t *Tracker) IsSynced(ctx context.Context) bool {
	t.RLock()
	defer t.RUnlock()

	if t.localHeight <= 0 {
		return false
	}
	return t.networkHeight-t.localHeight <= t.tolerance
}
