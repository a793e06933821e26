package net

import (
	"fmt"

	"github.com/mosaicnetworks/servicenode/src/message"
)

// AnnounceRequest carries a service node announcement to a peer.
type AnnounceRequest struct {
	Announcement message.Announcement
}

// PingRequest carries a liveness ping to a peer.
type PingRequest struct {
	Ping message.Ping
}

// AckResponse tells the sender whether the receiving node recorded the
// message.
type AckResponse struct {
	Accepted bool
}

// newRequest wraps a broadcast message in the request type the transports
// send over the wire.
func newRequest(msg interface{}) (interface{}, uint8, error) {
	switch m := msg.(type) {
	case *message.Announcement:
		return &AnnounceRequest{Announcement: *m}, rpcAnnounce, nil
	case *message.Ping:
		return &PingRequest{Ping: *m}, rpcPing, nil
	default:
		return nil, 0, fmt.Errorf("cannot broadcast %T", msg)
	}
}

// RPCResponse is the reply of the consumer of an RPC.
type RPCResponse struct {
	Response interface{}
	Error    error
}

// RPC is a request received by a transport, waiting for its consumer to
// respond.
type RPC struct {
	Command  interface{}
	RespChan chan<- RPCResponse
}

// Kind names the message carried by the RPC, for logs.
func (r *RPC) Kind() string {
	switch r.Command.(type) {
	case *AnnounceRequest:
		return "announce"
	case *PingRequest:
		return "ping"
	default:
		return "unknown"
	}
}

// Respond sends the reply back to the transport. It must be called exactly
// once per RPC.
func (r *RPC) Respond(resp interface{}, err error) {
	r.RespChan <- RPCResponse{resp, err}
}
