package collateral

import (
	"fmt"
	"strconv"
	"strings"
)

// Outpoint references a transaction output: the funding transaction id and the
// index of the output within it. It is immutable once a node is configured.
type Outpoint struct {
	TxID  string `json:"txid" mapstructure:"txid"`
	Index uint32 `json:"index" mapstructure:"index"`
}

// String returns the canonical txid-index form used in keys and signed
// payloads.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s-%d", o.TxID, o.Index)
}

// IsEmpty reports whether the outpoint was left unset.
func (o Outpoint) IsEmpty() bool {
	return o.TxID == ""
}

// ParseOutpoint parses the txid-index form produced by String.
func ParseOutpoint(s string) (Outpoint, error) {
	i := strings.LastIndex(s, "-")
	if i <= 0 || i == len(s)-1 {
		return Outpoint{}, fmt.Errorf("outpoint %q should have the form txid-index", s)
	}
	index, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil {
		return Outpoint{}, fmt.Errorf("outpoint %q has an invalid index: %v", s, err)
	}
	return Outpoint{TxID: s[:i], Index: uint32(index)}, nil
}

// Output is the view of a collateral output as reported by the wallet.
type Output struct {
	Value          int64
	Confirmations  int
	ControllingKey []byte
	Spent          bool
}
