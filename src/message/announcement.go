package message

import (
	"bytes"
	"fmt"

	"github.com/mosaicnetworks/servicenode/src/collateral"
	"github.com/mosaicnetworks/servicenode/src/common"
	"github.com/mosaicnetworks/servicenode/src/crypto"
	"github.com/mosaicnetworks/servicenode/src/crypto/keys"
)

// Announcement is published once each time a node enters STARTED. It binds the
// collateral to the key that will sign pings and to the address where the
// service is reachable, and is signed with the collateral key.
//
// For an operator-hosted node, SigningPubKey and ServiceAddr are those of the
// remote operator, and OperatorHosted is set.
type Announcement struct {
	Collateral       collateral.Outpoint
	CollateralPubKey []byte
	SigningPubKey    []byte
	Fingerprint      string
	ServiceAddr      string
	ProtocolVersion  uint32
	OperatorHosted   bool
	Timestamp        int64
	Signature        string
}

// NewAnnouncement creates an unsigned Announcement. The fingerprint is derived
// from the signing public key.
func NewAnnouncement(ref collateral.Outpoint,
	collateralPubKey []byte,
	signingPubKey []byte,
	serviceAddr string,
	protocolVersion uint32,
	operatorHosted bool,
	timestamp int64) *Announcement {

	return &Announcement{
		Collateral:       ref,
		CollateralPubKey: collateralPubKey,
		SigningPubKey:    signingPubKey,
		Fingerprint:      keys.Fingerprint(signingPubKey),
		ServiceAddr:      serviceAddr,
		ProtocolVersion:  protocolVersion,
		OperatorHosted:   operatorHosted,
		Timestamp:        timestamp,
	}
}

// SigningBytes returns the deterministic payload covered by the signature.
func (a *Announcement) SigningBytes() []byte {
	return []byte(fmt.Sprintf("%s|%s|%s|%s|%d|%t|%d",
		a.Collateral.String(),
		common.EncodeToString(a.CollateralPubKey),
		a.Fingerprint,
		a.ServiceAddr,
		a.ProtocolVersion,
		a.OperatorHosted,
		a.Timestamp))
}

// Verify checks that the fingerprint matches the signing key and that the
// signature was produced by the collateral key. It does not check that the
// collateral key actually controls the collateral output.
func (a *Announcement) Verify() bool {
	if a.Signature == "" || len(a.CollateralPubKey) == 0 || len(a.SigningPubKey) == 0 {
		return false
	}
	if a.Fingerprint != keys.Fingerprint(a.SigningPubKey) {
		return false
	}
	return keys.VerifyEncoded(a.CollateralPubKey, crypto.SHA256(a.SigningBytes()), a.Signature)
}

// Equivalent reports whether b announces the same binding as a, ignoring the
// timestamp and signature.
func (a *Announcement) Equivalent(b *Announcement) bool {
	return a.Collateral == b.Collateral &&
		bytes.Equal(a.CollateralPubKey, b.CollateralPubKey) &&
		bytes.Equal(a.SigningPubKey, b.SigningPubKey) &&
		a.ServiceAddr == b.ServiceAddr &&
		a.ProtocolVersion == b.ProtocolVersion &&
		a.OperatorHosted == b.OperatorHosted
}

// Marshal - json encoding of Announcement
func (a *Announcement) Marshal() ([]byte, error) {
	return encode(a)
}

// Unmarshal ...
func (a *Announcement) Unmarshal(data []byte) error {
	return decode(data, a)
}
