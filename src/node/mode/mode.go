// Package mode defines how a service node is hosted.
//
// A node is either self-hosted, holding its signing and collateral keys and
// pinging the network itself, or operator-hosted, in which case its collateral
// key authorizes a separately-run operator process to do the pinging. The mode
// is fixed at configuration time. A nil Mode means the node is not configured.
package mode

import (
	"fmt"

	"github.com/mosaicnetworks/servicenode/src/crypto/keys"
	"github.com/mosaicnetworks/servicenode/src/net"
)

// Kind identifies the variant of a Mode.
type Kind uint32

const (
	// Unknown is the kind of a nil Mode.
	Unknown Kind = iota
	// SelfHostedKind is the kind of SelfHosted.
	SelfHostedKind
	// OperatorHostedKind is the kind of OperatorHosted.
	OperatorHostedKind
)

// String returns the label of a Kind.
func (k Kind) String() string {
	switch k {
	case SelfHostedKind:
		return "SELF_HOSTED"
	case OperatorHostedKind:
		return "OPERATOR_HOSTED"
	default:
		return "UNKNOWN"
	}
}

// Mode is implemented by SelfHosted and OperatorHosted only.
type Mode interface {
	Kind() Kind

	// CollateralKey returns the id of the wallet key controlling the
	// collateral.
	CollateralKey() string

	isMode()
}

// Type returns the Kind of m, Unknown for nil.
func Type(m Mode) Kind {
	if m == nil {
		return Unknown
	}
	return m.Kind()
}

// SelfHosted is a node that holds its keys and determines its own reachable
// address.
type SelfHosted struct {
	SigningKeyID    string
	CollateralKeyID string

	// ServiceAddr is optional. When empty, the transport's reachable address
	// is used.
	ServiceAddr net.ServiceAddress
}

// Kind implements Mode.
func (SelfHosted) Kind() Kind { return SelfHostedKind }

// CollateralKey implements Mode.
func (m SelfHosted) CollateralKey() string { return m.CollateralKeyID }

func (SelfHosted) isMode() {}

// Authorization designates the remote operator an operator-hosted node
// delegates pinging to.
type Authorization struct {
	OperatorPubKey string
	OperatorAddr   net.ServiceAddress
}

// PubKeyBytes parses the operator public key.
func (a Authorization) PubKeyBytes() ([]byte, error) {
	pub, err := keys.ParsePublicKeyHex(a.OperatorPubKey)
	if err != nil {
		return nil, fmt.Errorf("invalid operator public key: %v", err)
	}
	return pub, nil
}

// OperatorHosted is a node whose collateral key authorizes a remote operator.
type OperatorHosted struct {
	CollateralKeyID string
	Authorization   Authorization
}

// Kind implements Mode.
func (OperatorHosted) Kind() Kind { return OperatorHostedKind }

// CollateralKey implements Mode.
func (m OperatorHosted) CollateralKey() string { return m.CollateralKeyID }

func (OperatorHosted) isMode() {}
