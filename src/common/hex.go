package common

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// EncodeToString returns the UPPERCASE hex representation of b with the 0X
// prefix. Announcements and the status API use this form for keys.
func EncodeToString(b []byte) string {
	return fmt.Sprintf("0X%X", b)
}

// DecodeFromString parses hex with or without a 0X or 0x prefix, in either
// case.
func DecodeFromString(s string) ([]byte, error) {
	if len(s) >= 2 && (s[:2] == "0X" || s[:2] == "0x") {
		s = s[2:]
	}
	return hex.DecodeString(strings.ToLower(s))
}
