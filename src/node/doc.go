// Package node implements the activation state machine of a service node.
//
// A service node proves it deserves its privileged role by holding collateral
// and by regularly broadcasting signed liveness pings. ActiveNode decides,
// once per tick of its control loop, whether the local process is currently
// able to act as a service node, and walks the lifecycle defined in the state
// package:
//
//	INITIAL -> SYNC_IN_PROGRESS -> {INPUT_TOO_NEW | NOT_CAPABLE | STARTED}
//
// # Capability
//
// Each tick starts with a Prober run. Checks are ordered and the first failure
// is reported: chain sync, collateral (existence, value, confirmations and
// controlling key), service address (format, routability, required port and an
// open TCP port), and finally the wallet. A collateral that only lacks
// confirmations maps to INPUT_TOO_NEW, a lagging chain to SYNC_IN_PROGRESS and
// every other failure to NOT_CAPABLE with its reason. No state is a sink; a
// node keeps oscillating between STARTED and the failure states as conditions
// change.
//
// # Modes
//
// A self-hosted node holds its signing and collateral keys. On entering STARTED
// it broadcasts an announcement signed with the collateral key, then sends
// pings signed with the signing key, at most one every PingInterval, with
// strictly increasing timestamps. An operator-hosted node only authorizes a
// remote operator: its announcement carries the operator key and address, and
// pinging is left to the operator.
//
// # Failures
//
// A signing failure is a capability loss and takes the node to NOT_CAPABLE.
// Broadcast failures are transient: they are logged and retried on the next
// tick without changing state. After leaving STARTED, capability must hold for
// ReentryTicks consecutive ticks before STARTED is entered again; the first
// activation is immediate. Concurrent calls to ManageState are a programming
// error and panic.
//
// # Status
//
// GetState, GetType, GetStatusSummary and Snapshot read the state under a read
// lock and can be called from any goroutine. The state and its reason are
// always updated together.
package node
