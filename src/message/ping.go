package message

import (
	"fmt"

	"github.com/mosaicnetworks/servicenode/src/collateral"
	"github.com/mosaicnetworks/servicenode/src/crypto"
	"github.com/mosaicnetworks/servicenode/src/crypto/keys"
)

// Ping is the periodic liveness message. It is built fresh on every send and
// never persisted. Timestamp is in unix seconds and strictly increases between
// consecutive pings for the same collateral.
type Ping struct {
	Collateral collateral.Outpoint
	Timestamp  int64
	Signature  string
}

// NewPing creates an unsigned Ping.
func NewPing(ref collateral.Outpoint, timestamp int64) *Ping {
	return &Ping{
		Collateral: ref,
		Timestamp:  timestamp,
	}
}

// SigningBytes returns collateral ‖ timestamp, the payload covered by the
// signature.
func (p *Ping) SigningBytes() []byte {
	return []byte(fmt.Sprintf("%s|%d", p.Collateral.String(), p.Timestamp))
}

// Verify checks the signature against the signing public key.
func (p *Ping) Verify(signingPubKey []byte) bool {
	if p.Signature == "" {
		return false
	}
	return keys.VerifyEncoded(signingPubKey, crypto.SHA256(p.SigningBytes()), p.Signature)
}

// Marshal - json encoding of Ping
func (p *Ping) Marshal() ([]byte, error) {
	return encode(p)
}

// Unmarshal ...
func (p *Ping) Unmarshal(data []byte) error {
	return decode(data, p)
}
