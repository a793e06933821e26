// Package net implements the transports service nodes use to broadcast their
// announcements and liveness pings, and to receive those of other nodes.
//
// There are two implementations of the Transport interface:
//
// - Inmem: in-memory transport used only for testing
//
// - TCP: communicating over plain TCP
//
// Broadcast is fire-and-forget. It returns as soon as the message has been
// handed to one delivery goroutine per known peer, and only fails when there
// is nobody to send to or the transport is closed. Receivers get an RPC on the
// channel returned by Consumer, carrying an AnnounceRequest or a PingRequest,
// and answer with an AckResponse.
//
// # TCP
//
// To use a TCP transport, set the following configuration options in the
// Config object (cf config package):
//
// - BindAddr: the IP:PORT of the TCP socket the node binds to.
//
// - AdvertiseAddr: (optional) The address that is advertised to other nodes. If
// BindAddr is a local address not reachable by other peers, it is useful to
// set AdvertiseAddr to the reachable public address. The advertised address is
// also the node's service address.
//
// The package also provides ServiceAddress validation and a PortChecker used
// to confirm that the advertised service port accepts connections.
package net
