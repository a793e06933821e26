// Package message defines the two network-visible messages produced by an
// active service node: the one-time Announcement published when the node
// enters the STARTED state, and the recurring liveness Ping.
//
// Both messages are signed over a deterministic byte string (SigningBytes).
// The wallet hashes those bytes with SHA256 before signing, and receivers
// verify against the same digest.
package message
