package wallet

import (
	"bytes"

	"github.com/mosaicnetworks/servicenode/src/collateral"
	"github.com/ugorji/go/codec"
)

// OutputRecord is a stored collateral candidate: an outpoint, its value, the
// height of the block that mined it and the key that controls it.
type OutputRecord struct {
	Outpoint       collateral.Outpoint
	Value          int64
	Height         int64
	ControllingKey []byte
	Spent          bool
}

// Marshal - json encoding of OutputRecord
func (o *OutputRecord) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(o); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (o *OutputRecord) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(o)
}

// OutputStore persists OutputRecords keyed by outpoint.
type OutputStore interface {
	GetOutput(ref collateral.Outpoint) (*OutputRecord, error)
	SetOutput(rec *OutputRecord) error
	ListOutputs() ([]*OutputRecord, error)
	Close() error
}
