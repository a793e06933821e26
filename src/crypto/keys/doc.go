// Package keys implements the public key cryptography used by service nodes.
//
// A service node involves up to two key-pairs: the collateral key, which
// controls the funding output and signs the one-time announcement, and the
// signing key, which signs the recurring liveness pings. In self-hosted mode
// both live in the local wallet; in operator-hosted mode only the collateral
// key is local and the signing key belongs to the remote operator.
//
// Keys are ECDSA over secp256k1. Signatures are produced over SHA256 digests
// and encoded as the base-36 text of R and S separated by a pipe.
package keys
