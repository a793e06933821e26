package wallet

import (
	"github.com/mosaicnetworks/servicenode/src/collateral"
)

// Wallet is the keystore seen by the activation state machine.
type Wallet interface {
	collateral.OutputSource

	// Sign signs the SHA256 digest of msg with the key identified by keyID
	// and returns the encoded signature.
	Sign(keyID string, msg []byte) (string, error)

	// PublicKey returns the uncompressed public key of keyID.
	PublicKey(keyID string) ([]byte, error)

	// IsUnlocked reports whether the wallet accepts to sign.
	IsUnlocked() bool

	// Close releases the key material.
	Close() error
}

// TipSource returns the current chain tip height.
type TipSource interface {
	Tip() int64
}

var _ Wallet = (*Keystore)(nil)

// confirmations returns the depth of an output mined at height, given tip. An
// unmined output (height 0) has no confirmations.
func confirmations(height, tip int64) int {
	if height <= 0 || tip < height {
		return 0
	}
	return int(tip - height + 1)
}
