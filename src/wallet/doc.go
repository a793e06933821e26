// Package wallet implements the keystore collaborator of a service node.
//
// The Keystore holds private keys by key id and only ever signs on behalf of
// its callers; raw key material never leaves the package. It also answers
// collateral output lookups from an OutputStore, turning the height at which
// an output was mined into a confirmation count against the current chain
// tip.
//
// Two OutputStore implementations are provided: an in-memory store for tests
// and single-process setups, and a Badger-backed store for persistence across
// restarts.
package wallet
