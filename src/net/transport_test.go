package net

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/mosaicnetworks/servicenode/src/collateral"
	"github.com/mosaicnetworks/servicenode/src/common"
	"github.com/mosaicnetworks/servicenode/src/message"
)

const (
	INMEM = iota
	TCP
	numTestTransports // NOTE: must be last
)

type testTransport interface {
	Transport
	Peers() []string
}

func NewTestTransport(ttype int, t *testing.T) testTransport {
	switch ttype {
	case INMEM:
		_, it := NewInmemTransport("")
		return it
	case TCP:
		tt, err := NewTCPTransport("127.0.0.1:0", "", 2, time.Second, common.NewTestEntry(t, "net"))
		if err != nil {
			t.Fatal(err)
		}
		go tt.Listen()
		return tt
	default:
		panic("Unknown transport type")
	}
}

func connect(from, to testTransport) {
	switch f := from.(type) {
	case *InmemTransport:
		f.Connect(to.AdvertiseAddr(), to)
	case *NetworkTransport:
		f.AddPeer(to.AdvertiseAddr())
	}
}

func TestTransport_StartStop(t *testing.T) {
	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans := NewTestTransport(ttype, t)
		if err := trans.Close(); err != nil {
			t.Fatalf("err: %v", err)
		}
	}
}

func TestTransport_BroadcastNoPeers(t *testing.T) {
	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans := NewTestTransport(ttype, t)

		err := trans.Broadcast(message.NewPing(collateral.Outpoint{TxID: "aa"}, 1))
		if !common.Is(err, common.NoPeers) {
			t.Fatalf("%d: broadcast without peers should return NoPeers, got %v", ttype, err)
		}

		if err := trans.Broadcast("hello"); err == nil {
			t.Fatalf("%d: broadcasting an unknown type should fail", ttype)
		}

		trans.Close()

		if err := trans.Broadcast(message.NewPing(collateral.Outpoint{TxID: "aa"}, 1)); err != ErrTransportShutdown {
			t.Fatalf("%d: broadcast after close should return ErrTransportShutdown, got %v", ttype, err)
		}
	}
}

func TestTransport_Broadcast(t *testing.T) {
	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans1 := NewTestTransport(ttype, t)
		trans2 := NewTestTransport(ttype, t)
		trans3 := NewTestTransport(ttype, t)

		connect(trans1, trans2)
		connect(trans1, trans3)

		if len(trans1.Peers()) != 2 {
			t.Fatalf("%d: trans1 should have 2 peers", ttype)
		}

		ping := message.NewPing(collateral.Outpoint{TxID: "aa", Index: 2}, 1600000000)
		ping.Signature = "sig"

		if err := trans1.Broadcast(ping); err != nil {
			t.Fatalf("%d: err: %v", ttype, err)
		}

		for _, recv := range []testTransport{trans2, trans3} {
			select {
			case rpc := <-recv.Consumer():
				req, ok := rpc.Command.(*PingRequest)
				if !ok {
					t.Fatalf("%d: expected PingRequest, got %T", ttype, rpc.Command)
				}
				if req.Ping != *ping {
					t.Fatalf("%d: ping mismatch: %#v %#v", ttype, req.Ping, *ping)
				}
				rpc.Respond(&AckResponse{Accepted: true}, nil)
			case <-time.After(time.Second):
				t.Fatalf("%d: timeout", ttype)
			}
		}

		ann := &message.Announcement{
			Collateral:      collateral.Outpoint{TxID: "aa", Index: 2},
			ServiceAddr:     "203.0.113.7:9999",
			ProtocolVersion: 1,
			Timestamp:       1600000000,
		}

		if err := trans1.Broadcast(ann); err != nil {
			t.Fatalf("%d: err: %v", ttype, err)
		}

		for _, recv := range []testTransport{trans2, trans3} {
			select {
			case rpc := <-recv.Consumer():
				req, ok := rpc.Command.(*AnnounceRequest)
				if !ok {
					t.Fatalf("%d: expected AnnounceRequest, got %T", ttype, rpc.Command)
				}
				if !req.Announcement.Equivalent(ann) {
					t.Fatalf("%d: announcement mismatch", ttype)
				}
				rpc.Respond(&AckResponse{Accepted: false}, nil)
			case <-time.After(time.Second):
				t.Fatalf("%d: timeout", ttype)
			}
		}

		trans1.Close()
		trans2.Close()
		trans3.Close()
	}
}

func TestServiceAddressValidate(t *testing.T) {
	cases := []struct {
		addr         ServiceAddress
		requiredPort int
		allowLocal   bool
		valid        bool
	}{
		{"203.0.113.7:9999", 9999, false, true},
		{"203.0.113.7:9999", 0, false, true},
		{"203.0.113.7:1234", 9999, false, false},
		{"203.0.113.7", 9999, false, false},
		{"example.com:9999", 9999, false, false},
		{"127.0.0.1:9999", 9999, false, false},
		{"127.0.0.1:9999", 9999, true, true},
		{"192.168.1.10:9999", 9999, false, false},
		{"192.168.1.10:9999", 9999, true, true},
		{"0.0.0.0:9999", 9999, true, false},
		{"[2001:db8::1]:9999", 9999, false, true},
		{"[::1]:9999", 9999, false, false},
	}

	for _, c := range cases {
		err := c.addr.Validate(c.requiredPort, c.allowLocal)
		if c.valid && err != nil {
			t.Fatalf("%s should be valid: %v", c.addr, err)
		}
		if !c.valid && err == nil {
			t.Fatalf("%s should not be valid", c.addr)
		}
	}
}

func TestTCPPortChecker(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	addr := ServiceAddress(l.Addr().String())
	checker := NewTCPPortChecker()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := checker.CheckPort(ctx, addr); err != nil {
		t.Fatalf("port should be open: %v", err)
	}

	l.Close()

	if err := checker.CheckPort(ctx, addr); err == nil {
		t.Fatalf("port should be closed")
	}
}
