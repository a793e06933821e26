// Package peers keeps track of the other service nodes.
//
// A ServiceNodeList is the receiving side of the activation protocol. It
// records the announcements and liveness pings broadcast by service nodes,
// after checking their signatures, and rejects pings that are not strictly
// newer than the last one accepted for the same collateral.
//
// Upon starting up, a node looks for a peers.json file in its data directory.
// It lists the network addresses of the nodes to broadcast to, and optionally a
// non-unique user-friendly moniker for each of them.
package peers
