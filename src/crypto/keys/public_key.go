package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"

	"github.com/mosaicnetworks/servicenode/src/common"
	"github.com/mosaicnetworks/servicenode/src/crypto"
)

// fingerprintLen is the number of digest bytes kept in a key fingerprint.
const fingerprintLen = 20

// ToPublicKey is a wrapper around elliptic.Unmarshal which calls Curve() to
// determine which elliptic.Curve to use. The argument pub is expected to be the
// uncompressed form of a point on the curve, as returned by FromPublicKey.
func ToPublicKey(pub []byte) *ecdsa.PublicKey {
	if len(pub) == 0 {
		return nil
	}
	x, y := elliptic.Unmarshal(Curve(), pub)
	if x == nil {
		return nil
	}
	return &ecdsa.PublicKey{Curve: Curve(), X: x, Y: y}
}

// FromPublicKey is a wrapper around elliptic.Marshal which calls Curve() to
// determine which elliptic.Curve to use. It outputs the point in uncompressed
// form.
func FromPublicKey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return elliptic.Marshal(Curve(), pub.X, pub.Y)
}

// PublicKeyHex returns the hexadecimal reprentation of the uncompressed form of
// the public key
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return common.EncodeToString(FromPublicKey(pub))
}

// ParsePublicKeyHex decodes a public key produced by PublicKeyHex, and checks
// that it is a point on the curve.
func ParsePublicKeyHex(pubHex string) ([]byte, error) {
	if len(pubHex) < 2 {
		return nil, fmt.Errorf("public key %q is too short", pubHex)
	}
	pub, err := common.DecodeFromString(pubHex)
	if err != nil {
		return nil, err
	}
	if ToPublicKey(pub) == nil {
		return nil, fmt.Errorf("public key %q is not a point on the curve", pubHex)
	}
	return pub, nil
}

// Fingerprint returns a short identifier of a public key: the hexadecimal form
// of the first 20 bytes of its SHA256 digest. Announcements carry it so that
// peers can match pings to operators without comparing whole keys.
func Fingerprint(pubBytes []byte) string {
	if len(pubBytes) == 0 {
		return ""
	}
	return common.EncodeToString(crypto.SHA256(pubBytes)[:fingerprintLen])
}
