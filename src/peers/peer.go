package peers

// Peer is a seed node the transport broadcasts to.
type Peer struct {
	NetAddr string
	Moniker string `json:",omitempty"`
}

// NewPeer creates a Peer.
func NewPeer(netAddr, moniker string) *Peer {
	return &Peer{
		NetAddr: netAddr,
		Moniker: moniker,
	}
}

// BroadcastAddrs returns the distinct addresses of peers, leaving out self and
// empty entries, in file order.
func BroadcastAddrs(peers []*Peer, self string) []string {
	seen := make(map[string]bool, len(peers))
	addrs := make([]string, 0, len(peers))

	for _, p := range peers {
		if p == nil || p.NetAddr == "" || p.NetAddr == self || seen[p.NetAddr] {
			continue
		}
		seen[p.NetAddr] = true
		addrs = append(addrs, p.NetAddr)
	}

	return addrs
}
