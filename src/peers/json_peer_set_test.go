package peers

import (
	"fmt"
	"testing"
)

func TestJSONPeerSet(t *testing.T) {
	dir := t.TempDir()

	// Create the store
	store := NewJSONPeerSet(dir)

	// Try a read, should get nothing
	peers, err := store.Peers()
	if err == nil {
		t.Fatalf("store.Peers() should generate an error")
	}
	if peers != nil {
		t.Fatalf("peers: %v", peers)
	}

	newPeers := []*Peer{}
	for i := 0; i < 3; i++ {
		newPeers = append(newPeers, NewPeer(fmt.Sprintf("addr%d", i), fmt.Sprintf("peer%d", i)))
	}

	if err := store.Write(newPeers); err != nil {
		t.Fatalf("err: %v", err)
	}

	// Try a read, should find 3 peers
	peers, err = store.Peers()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(peers) != 3 {
		t.Fatalf("peers: %v", peers)
	}

	for i := 0; i < 3; i++ {
		if peers[i].NetAddr != newPeers[i].NetAddr {
			t.Fatalf("peers[%d] NetAddr should be %s, not %s", i,
				newPeers[i].NetAddr, peers[i].NetAddr)
		}
		if peers[i].Moniker != newPeers[i].Moniker {
			t.Fatalf("peers[%d] Moniker should be %s, not %s", i,
				newPeers[i].Moniker, peers[i].Moniker)
		}
	}

	addrs := BroadcastAddrs(append(peers, NewPeer("addr2", "dup"), NewPeer("", "")), "addr1")
	if len(addrs) != 2 || addrs[0] != "addr0" || addrs[1] != "addr2" {
		t.Fatalf("BroadcastAddrs should drop self and duplicates, got %v", addrs)
	}
}
