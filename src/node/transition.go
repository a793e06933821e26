package node

import (
	"github.com/mosaicnetworks/servicenode/src/node/state"
)

// Transition returns the state a node in cur moves to given the result of a
// probe. Capable always maps to Started; re-entry debounce and announcement
// signing are the ActiveNode's business.
func Transition(cur state.ActivationState, c Capability) state.ActivationState {
	switch c.Kind {
	case Capable:
		return state.Started
	case NotYetSyncing:
		// Started only falls to a failure state
		if cur == state.Started {
			return state.NotCapable
		}
		return state.SyncInProgress
	default:
		if c.InputTooNew {
			return state.InputTooNew
		}
		return state.NotCapable
	}
}

// transitionReason returns the reason stored with the state Transition picks.
func transitionReason(cur state.ActivationState, c Capability) string {
	if c.Kind == NotYetSyncing && cur == state.Started {
		return ReasonSyncLost
	}
	return c.Reason
}
