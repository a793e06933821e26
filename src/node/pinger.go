package node

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaicnetworks/servicenode/src/collateral"
	"github.com/mosaicnetworks/servicenode/src/message"
	"github.com/sirupsen/logrus"
)

// Signer signs messages with a wallet key.
type Signer interface {
	Sign(keyID string, msg []byte) (string, error)
}

// Broadcaster hands messages to the network.
type Broadcaster interface {
	Broadcast(msg interface{}) error
}

// PingResult says whether MaybeSendPing sent a ping.
type PingResult uint32

const (
	// Skipped means no ping was due.
	Skipped PingResult = iota
	// Sent means a ping was handed to the network.
	Sent
)

// String returns the name of a PingResult.
func (r PingResult) String() string {
	if r == Sent {
		return "Sent"
	}
	return "Skipped"
}

// PingErrKind classifies ping failures.
type PingErrKind uint32

const (
	// SigningFailed is a capability loss: the owner leaves STARTED.
	SigningFailed PingErrKind = iota
	// BroadcastFailed is transient: the ping is retried on the next tick.
	BroadcastFailed
)

// PingErr is returned by MaybeSendPing.
type PingErr struct {
	Kind PingErrKind
	Err  error
}

// Error implements the error interface.
func (e PingErr) Error() string {
	switch e.Kind {
	case SigningFailed:
		return fmt.Sprintf("ping signing failed: %v", e.Err)
	default:
		return fmt.Sprintf("ping broadcast failed: %v", e.Err)
	}
}

// Cause returns the underlying error.
func (e PingErr) Cause() error {
	return e.Err
}

// Pinger builds, signs and broadcasts liveness pings. It is owned by the
// control loop and is not safe for concurrent use.
type Pinger struct {
	ref    collateral.Outpoint
	keyID  string
	signer Signer
	trans  Broadcaster

	interval time.Duration

	lastSent      time.Time
	lastTimestamp int64

	logger *logrus.Entry
}

// NewPinger creates a Pinger signing with keyID.
func NewPinger(ref collateral.Outpoint,
	keyID string,
	signer Signer,
	trans Broadcaster,
	interval time.Duration,
	logger *logrus.Entry) *Pinger {

	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	return &Pinger{
		ref:      ref,
		keyID:    keyID,
		signer:   signer,
		trans:    trans,
		interval: interval,
		logger:   logger,
	}
}

// MaybeSendPing sends a ping unless one was sent less than the ping interval
// before now, or now would not give a timestamp strictly greater than the last
// one sent.
func (p *Pinger) MaybeSendPing(ctx context.Context, now time.Time) (PingResult, error) {
	if !p.lastSent.IsZero() && now.Sub(p.lastSent) < p.interval {
		return Skipped, nil
	}

	ts := now.Unix()
	if ts <= p.lastTimestamp {
		return Skipped, nil
	}

	if err := ctx.Err(); err != nil {
		return Skipped, err
	}

	ping := message.NewPing(p.ref, ts)

	sig, err := p.signer.Sign(p.keyID, ping.SigningBytes())
	if err != nil {
		return Skipped, PingErr{Kind: SigningFailed, Err: err}
	}
	ping.Signature = sig

	if err := p.trans.Broadcast(ping); err != nil {
		return Skipped, PingErr{Kind: BroadcastFailed, Err: err}
	}

	p.lastSent = now
	p.lastTimestamp = ts

	p.logger.WithFields(logrus.Fields{
		"collateral": p.ref.String(),
		"timestamp":  ts,
	}).Debug("Sent ping")

	return Sent, nil
}

// LastTimestamp returns the timestamp of the last ping sent, 0 if none.
func (p *Pinger) LastTimestamp() int64 {
	return p.lastTimestamp
}
