package net

import (
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	cm "github.com/mosaicnetworks/servicenode/src/common"
)

// NewInmemAddr returns a new in-memory addr with
// a randomly generate UUID as the ID.
func NewInmemAddr() string {
	return generateUUID()
}

// generateUUID is used to generate a random UUID.
func generateUUID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%12x",
		buf[0:4],
		buf[4:6],
		buf[6:8],
		buf[8:10],
		buf[10:16])
}

// InmemTransport Implements the Transport interface, to allow service nodes to
// be tested in-memory without going over a network.
type InmemTransport struct {
	sync.RWMutex
	consumerCh chan RPC
	localAddr  string
	reachable  ServiceAddress
	peers      map[string]*InmemTransport
	timeout    time.Duration
	closed     bool
	wg         sync.WaitGroup
}

// NewInmemTransport is used to initialize a new transport
// and generates a random local address if none is specified
func NewInmemTransport(addr string) (string, *InmemTransport) {
	if addr == "" {
		addr = NewInmemAddr()
	}
	trans := &InmemTransport{
		consumerCh: make(chan RPC, 16),
		localAddr:  addr,
		peers:      make(map[string]*InmemTransport),
		timeout:    50 * time.Millisecond,
	}
	return addr, trans
}

// Consumer implements the Transport interface.
func (i *InmemTransport) Consumer() <-chan RPC {
	return i.consumerCh
}

// LocalAddr implements the Transport interface.
func (i *InmemTransport) LocalAddr() string {
	return i.localAddr
}

// AdvertiseAddr implements the Transport interface.
func (i *InmemTransport) AdvertiseAddr() string {
	return i.localAddr
}

// SetReachableAddress sets the address returned by LocalReachableAddress. An
// empty address means none is known.
func (i *InmemTransport) SetReachableAddress(addr ServiceAddress) {
	i.Lock()
	defer i.Unlock()
	i.reachable = addr
}

// LocalReachableAddress implements the Transport interface.
func (i *InmemTransport) LocalReachableAddress() (ServiceAddress, bool) {
	i.RLock()
	defer i.RUnlock()
	return i.reachable, i.reachable != ""
}

// Broadcast implements the Transport interface.
func (i *InmemTransport) Broadcast(msg interface{}) error {
	req, _, err := newRequest(msg)
	if err != nil {
		return err
	}

	i.RLock()
	defer i.RUnlock()

	if i.closed {
		return ErrTransportShutdown
	}

	if len(i.peers) == 0 {
		return cm.NewErr("Transport", cm.NoPeers, i.localAddr)
	}

	for _, peer := range i.peers {
		i.wg.Add(1)
		go func(peer *InmemTransport) {
			defer i.wg.Done()
			i.makeRPC(peer, req, i.timeout)
		}(peer)
	}

	return nil
}

func (i *InmemTransport) makeRPC(peer *InmemTransport, args interface{}, timeout time.Duration) (rpcResp RPCResponse, err error) {
	// Send the RPC over
	respCh := make(chan RPCResponse, 1)
	select {
	case peer.consumerCh <- RPC{
		Command:  args,
		RespChan: respCh,
	}:
	case <-time.After(timeout):
		err = fmt.Errorf("send timed out")
		return
	}

	// Wait for a response
	select {
	case rpcResp = <-respCh:
		if rpcResp.Error != nil {
			err = rpcResp.Error
		}
	case <-time.After(timeout):
		err = fmt.Errorf("command timed out")
	}
	return
}

// Connect is used to connect this transport to another transport for
// a given peer name. This allows for local routing.
func (i *InmemTransport) Connect(peer string, t Transport) {
	trans := t.(*InmemTransport)
	i.Lock()
	defer i.Unlock()
	i.peers[peer] = trans
}

// Disconnect is used to remove the ability to route to a given peer.
func (i *InmemTransport) Disconnect(peer string) {
	i.Lock()
	defer i.Unlock()
	delete(i.peers, peer)
}

// DisconnectAll is used to remove all routes to peers.
func (i *InmemTransport) DisconnectAll() {
	i.Lock()
	defer i.Unlock()
	i.peers = make(map[string]*InmemTransport)
}

// Peers returns the sorted names of the connected peers.
func (i *InmemTransport) Peers() []string {
	i.RLock()
	defer i.RUnlock()

	res := make([]string, 0, len(i.peers))
	for p := range i.peers {
		res = append(res, p)
	}
	sort.Strings(res)
	return res
}

// Close is used to permanently disable the transport
func (i *InmemTransport) Close() error {
	i.Lock()
	i.closed = true
	i.peers = make(map[string]*InmemTransport)
	i.Unlock()

	i.wg.Wait()
	return nil
}

// Listen is an empty function as there is no need to defer
// initialisation of the InMem service
func (i *InmemTransport) Listen() {
}
