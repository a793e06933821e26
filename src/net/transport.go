package net

// Transport provides an interface for network transports to allow a service
// node to publish its announcements and pings, and to receive those of the
// other nodes.
type Transport interface {

	// Starts the transport listening
	Listen()

	// Consumer returns a channel that can be used to
	// consume and respond to RPC requests.
	Consumer() <-chan RPC

	// LocalAddr is used to return our local address
	LocalAddr() string

	// AdvertiseAddr is used to return our advertise address where other peers
	// can reach us
	AdvertiseAddr() string

	// LocalReachableAddress returns the address other nodes can reach this
	// node's service at, if the transport knows one.
	LocalReachableAddress() (ServiceAddress, bool)

	// Broadcast hands msg to every known peer and returns without waiting for
	// acknowledgements. It only fails when the message cannot be sent to
	// anyone.
	Broadcast(msg interface{}) error

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}
