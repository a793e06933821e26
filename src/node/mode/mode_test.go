package mode

import (
	"testing"

	"github.com/mosaicnetworks/servicenode/src/crypto/keys"
)

func TestType(t *testing.T) {
	var m Mode
	if Type(m) != Unknown || Type(m).String() != "UNKNOWN" {
		t.Fatalf("nil mode should be UNKNOWN")
	}

	m = SelfHosted{SigningKeyID: "signing", CollateralKeyID: "collateral"}
	if Type(m).String() != "SELF_HOSTED" || m.CollateralKey() != "collateral" {
		t.Fatalf("unexpected self-hosted mode %v", Type(m))
	}

	m = OperatorHosted{CollateralKeyID: "collateral"}
	if Type(m).String() != "OPERATOR_HOSTED" || m.CollateralKey() != "collateral" {
		t.Fatalf("unexpected operator-hosted mode %v", Type(m))
	}
}

func TestAuthorizationPubKey(t *testing.T) {
	key, _ := keys.GenerateECDSAKey()

	auth := Authorization{OperatorPubKey: keys.PublicKeyHex(&key.PublicKey)}
	pub, err := auth.PubKeyBytes()
	if err != nil {
		t.Fatal(err)
	}
	if keys.Fingerprint(pub) != keys.Fingerprint(keys.FromPublicKey(&key.PublicKey)) {
		t.Fatalf("parsed key should match")
	}

	if _, err := (Authorization{OperatorPubKey: "0XZZ"}).PubKeyBytes(); err == nil {
		t.Fatalf("garbage key should not parse")
	}
	if _, err := (Authorization{}).PubKeyBytes(); err == nil {
		t.Fatalf("empty key should not parse")
	}
}
