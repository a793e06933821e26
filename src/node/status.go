package node

import (
	"fmt"

	"github.com/mosaicnetworks/servicenode/src/node/mode"
	"github.com/mosaicnetworks/servicenode/src/node/state"
)

// GetState returns the current activation state.
func (n *ActiveNode) GetState() state.ActivationState {
	return n.state.GetState()
}

// GetType returns the kind of mode the node was configured with.
func (n *ActiveNode) GetType() mode.Kind {
	return mode.Type(n.mode)
}

// StateLabel returns the label of the current state.
func (n *ActiveNode) StateLabel() string {
	return n.GetState().String()
}

// TypeLabel returns the label of the node's mode.
func (n *ActiveNode) TypeLabel() string {
	return n.GetType().String()
}

// Snapshot returns a consistent copy of the node's state.
func (n *ActiveNode) Snapshot() state.Snapshot {
	return n.state.Get()
}

// GetStatusSummary returns a human-readable description of the current state
// and, where relevant, its reason.
func (n *ActiveNode) GetStatusSummary() string {
	return StatusSummary(n.state.Get(), n.conf.MinConfirmations)
}

// StatusSummary describes a snapshot.
func StatusSummary(s state.Snapshot, minConfirmations int) string {
	switch s.State {
	case state.Initial:
		if s.Reason != "" {
			return fmt.Sprintf("Node just started, not yet activated (%s)", s.Reason)
		}
		return "Node just started, not yet activated"
	case state.SyncInProgress:
		return "Sync in progress. Must wait until sync is complete to start service node"
	case state.InputTooNew:
		return fmt.Sprintf("Service node input must have at least %d confirmations", minConfirmations)
	case state.NotCapable:
		return "Not capable service node: " + s.Reason
	case state.Started:
		return "Service node successfully started"
	default:
		return "Unknown"
	}
}
