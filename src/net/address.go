package net

import (
	"fmt"
	"net"
	"strconv"
)

// ServiceAddress is the host:port a service node advertises to the network.
type ServiceAddress string

// String implements fmt.Stringer.
func (a ServiceAddress) String() string {
	return string(a)
}

// Port returns the numeric port of the address.
func (a ServiceAddress) Port() (int, error) {
	_, portStr, err := net.SplitHostPort(string(a))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}

// Validate checks that the address is an IP:port, that the port equals
// requiredPort when requiredPort is not 0, and, unless allowLocal is set, that
// the IP is routable on the public network.
func (a ServiceAddress) Validate(requiredPort int, allowLocal bool) error {
	host, portStr, err := net.SplitHostPort(string(a))
	if err != nil {
		return fmt.Errorf("invalid service address %q: %v", string(a), err)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("service address host %q is not an IP address", host)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("service address %s has an invalid port", string(a))
	}

	if requiredPort != 0 && port != requiredPort {
		return fmt.Errorf("service address %s must use port %d", string(a), requiredPort)
	}

	if ip.IsUnspecified() {
		return fmt.Errorf("service address %s is unspecified", string(a))
	}

	if !allowLocal {
		switch {
		case ip.IsLoopback():
			return fmt.Errorf("service address %s is a loopback address", string(a))
		case ip.IsPrivate(), ip.IsLinkLocalUnicast():
			return fmt.Errorf("service address %s is not routable", string(a))
		}
	}

	return nil
}
