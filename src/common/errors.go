package common

import "fmt"

// ErrType classifies the errors produced by the service node components.
type ErrType uint32

const (
	// KeyNotFound is returned when a store or keystore lookup misses.
	KeyNotFound ErrType = iota
	// KeyAlreadyExists is returned when inserting a duplicate key.
	KeyAlreadyExists
	// Locked is returned when the wallet refuses to sign because it is locked.
	Locked
	// Closed is returned by components used after Close.
	Closed
	// BadSignature is returned when a message signature does not verify.
	BadSignature
	// Replay is returned when a message is not newer than the last accepted
	// one for the same collateral.
	Replay
	// UnknownNode is returned when a ping refers to a collateral that was
	// never announced.
	UnknownNode
	// NoPeers is returned by transports that have nobody to broadcast to.
	NoPeers
)

// Err is a typed error carrying the kind of data involved, the kind of error
// and the key that caused it.
type Err struct {
	dataType string
	errType  ErrType
	key      string
}

// NewErr creates an Err.
func NewErr(dataType string, errType ErrType, key string) Err {
	return Err{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error implements the error interface.
func (e Err) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case KeyAlreadyExists:
		m = "Key Already Exists"
	case Locked:
		m = "Locked"
	case Closed:
		m = "Closed"
	case BadSignature:
		m = "Bad Signature"
	case Replay:
		m = "Replay"
	case UnknownNode:
		m = "Unknown Node"
	case NoPeers:
		m = "No Peers"
	}

	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// Is checks that an error is of type Err and that its code matches the
// provided ErrType. Wrapped errors are unwrapped through Cause() first.
func Is(err error, t ErrType) bool {
	for err != nil {
		if e, ok := err.(Err); ok {
			return e.errType == t
		}
		c, ok := err.(interface{ Cause() error })
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}
