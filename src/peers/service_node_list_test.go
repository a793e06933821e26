package peers

import (
	"context"
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/mosaicnetworks/servicenode/src/collateral"
	"github.com/mosaicnetworks/servicenode/src/common"
	"github.com/mosaicnetworks/servicenode/src/crypto"
	"github.com/mosaicnetworks/servicenode/src/crypto/keys"
	"github.com/mosaicnetworks/servicenode/src/message"
	"github.com/mosaicnetworks/servicenode/src/net"
)

type testNode struct {
	ref           collateral.Outpoint
	collateralKey *ecdsa.PrivateKey
	signingKey    *ecdsa.PrivateKey
}

func newTestNode(t *testing.T, txid string) *testNode {
	ck, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}
	sk, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}
	return &testNode{
		ref:           collateral.Outpoint{TxID: txid, Index: 0},
		collateralKey: ck,
		signingKey:    sk,
	}
}

func (n *testNode) announcement(t *testing.T, ts int64) *message.Announcement {
	a := message.NewAnnouncement(n.ref,
		keys.FromPublicKey(&n.collateralKey.PublicKey),
		keys.FromPublicKey(&n.signingKey.PublicKey),
		"203.0.113.7:9999",
		1,
		false,
		ts)

	sig, err := keys.SignEncoded(n.collateralKey, crypto.SHA256(a.SigningBytes()))
	if err != nil {
		t.Fatal(err)
	}
	a.Signature = sig
	return a
}

func (n *testNode) ping(t *testing.T, ts int64) *message.Ping {
	p := message.NewPing(n.ref, ts)
	sig, err := keys.SignEncoded(n.signingKey, crypto.SHA256(p.SigningBytes()))
	if err != nil {
		t.Fatal(err)
	}
	p.Signature = sig
	return p
}

func TestServiceNodeListAnnouncement(t *testing.T) {
	list := NewServiceNodeList(nil, 0, common.NewTestEntry(t, "peers"))
	node := newTestNode(t, "aa")
	now := time.Unix(1000, 0)

	if err := list.ProcessAnnouncement(node.announcement(t, 100), now); err != nil {
		t.Fatal(err)
	}

	if list.Len() != 1 {
		t.Fatalf("list should contain 1 node, not %d", list.Len())
	}

	if err := list.ProcessAnnouncement(node.announcement(t, 100), now); !common.Is(err, common.Replay) {
		t.Fatalf("same announcement should be a replay, got %v", err)
	}

	if err := list.ProcessAnnouncement(node.announcement(t, 101), now); err != nil {
		t.Fatalf("newer announcement should be accepted: %v", err)
	}

	bad := node.announcement(t, 200)
	bad.ServiceAddr = "198.51.100.1:9999"
	if err := list.ProcessAnnouncement(bad, now); !common.Is(err, common.BadSignature) {
		t.Fatalf("tampered announcement should be rejected, got %v", err)
	}

	nodes := list.Nodes()
	if len(nodes) != 1 || nodes[0].Collateral != "aa-0" || nodes[0].AnnouncedAt != 101 {
		t.Fatalf("unexpected nodes %+v", nodes)
	}
}

func TestServiceNodeListPing(t *testing.T) {
	list := NewServiceNodeList(nil, 0, common.NewTestEntry(t, "peers"))
	node := newTestNode(t, "aa")
	other := newTestNode(t, "bb")

	if err := list.ProcessPing(node.ping(t, 10), time.Unix(10, 0)); !common.Is(err, common.UnknownNode) {
		t.Fatalf("ping from an unannounced node should be rejected, got %v", err)
	}

	if err := list.ProcessAnnouncement(node.announcement(t, 5), time.Unix(5, 0)); err != nil {
		t.Fatal(err)
	}

	if err := list.ProcessPing(node.ping(t, 10), time.Unix(10, 0)); err != nil {
		t.Fatal(err)
	}

	if err := list.ProcessPing(node.ping(t, 10), time.Unix(11, 0)); !common.Is(err, common.Replay) {
		t.Fatalf("ping with the same timestamp should be a replay, got %v", err)
	}

	if err := list.ProcessPing(node.ping(t, 9), time.Unix(11, 0)); !common.Is(err, common.Replay) {
		t.Fatalf("older ping should be a replay, got %v", err)
	}

	// Signed by another node's key
	forged := other.ping(t, 20)
	forged.Collateral = node.ref
	if err := list.ProcessPing(forged, time.Unix(20, 0)); !common.Is(err, common.BadSignature) {
		t.Fatalf("forged ping should be rejected, got %v", err)
	}

	if err := list.ProcessPing(node.ping(t, 20), time.Unix(20, 0)); err != nil {
		t.Fatal(err)
	}

	e, ok := list.Get(node.ref)
	if !ok {
		t.Fatalf("node should be recorded")
	}
	if e.LastPing != 20 || !e.LastSeen.Equal(time.Unix(20, 0)) {
		t.Fatalf("unexpected entry %+v", e)
	}

	// A newer announcement does not reopen older pings
	if err := list.ProcessAnnouncement(node.announcement(t, 25), time.Unix(25, 0)); err != nil {
		t.Fatal(err)
	}
	if err := list.ProcessPing(node.ping(t, 10), time.Unix(26, 0)); !common.Is(err, common.Replay) {
		t.Fatalf("old ping should stay a replay after a new announcement, got %v", err)
	}
	if e, _ := list.Get(node.ref); e.LastPing != 20 || e.Announcement.Timestamp != 25 {
		t.Fatalf("unexpected entry after re-announcement %+v", e)
	}
	if err := list.ProcessPing(node.ping(t, 30), time.Unix(30, 0)); err != nil {
		t.Fatal(err)
	}

	if n := list.Prune(time.Unix(15, 0)); n != 0 {
		t.Fatalf("nothing should be pruned, pruned %d", n)
	}
	if n := list.Prune(time.Unix(40, 0)); n != 1 {
		t.Fatalf("1 node should be pruned, pruned %d", n)
	}
}

type mapSource map[collateral.Outpoint]collateral.Output

func (m mapSource) GetCollateralOutput(ctx context.Context, ref collateral.Outpoint) (collateral.Output, error) {
	out, ok := m[ref]
	if !ok {
		return collateral.Output{}, common.NewErr("Output", common.KeyNotFound, ref.String())
	}
	return out, nil
}

func TestServiceNodeListCollateral(t *testing.T) {
	node := newTestNode(t, "aa")
	stranger := newTestNode(t, "bb")

	source := mapSource{
		node.ref: {
			Value:          1000,
			Confirmations:  20,
			ControllingKey: keys.FromPublicKey(&node.collateralKey.PublicKey),
		},
		stranger.ref: {
			Value:          1000,
			Confirmations:  20,
			ControllingKey: keys.FromPublicKey(&node.collateralKey.PublicKey),
		},
	}

	list := NewServiceNodeList(collateral.NewVerifier(source, 1000, 15), time.Second, common.NewTestEntry(t, "peers"))

	if err := list.ProcessAnnouncement(node.announcement(t, 1), time.Unix(1, 0)); err != nil {
		t.Fatal(err)
	}

	if err := list.ProcessAnnouncement(stranger.announcement(t, 1), time.Unix(1, 0)); err == nil {
		t.Fatalf("announcement for a collateral controlled by another key should be rejected")
	}
}

func TestServiceNodeListServe(t *testing.T) {
	list := NewServiceNodeList(nil, 0, common.NewTestEntry(t, "peers"))
	node := newTestNode(t, "aa")

	_, sender := net.NewInmemTransport("")
	receiverAddr, receiver := net.NewInmemTransport("")
	sender.Connect(receiverAddr, receiver)

	shutdownCh := make(chan struct{})
	defer close(shutdownCh)
	go list.Serve(receiver.Consumer(), shutdownCh)

	if err := sender.Broadcast(node.announcement(t, 1)); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(time.Second)
	for list.Len() == 0 {
		select {
		case <-deadline:
			t.Fatalf("announcement was not recorded")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := sender.Broadcast(node.ping(t, 2)); err != nil {
		t.Fatal(err)
	}

	for {
		e, _ := list.Get(node.ref)
		if e.LastPing == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("ping was not recorded")
		case <-time.After(5 * time.Millisecond):
		}
	}

	sender.Close()
}
