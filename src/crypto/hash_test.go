package crypto

import (
	"bytes"
	"testing"
)

func TestSHA256Concat(t *testing.T) {
	whole := SHA256([]byte("abc-0|1600000000"))
	parts := SHA256Concat([]byte("abc-0"), []byte("|"), []byte("1600000000"))

	if !bytes.Equal(whole, parts) {
		t.Fatalf("SHA256Concat should hash the concatenation of its parts")
	}

	if len(whole) != 32 {
		t.Fatalf("SHA256 should be 32 bytes, not %d", len(whole))
	}
}
