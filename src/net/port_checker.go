package net

import (
	"context"
	"net"
)

// PortChecker verifies that something accepts connections at a service
// address.
type PortChecker interface {
	CheckPort(ctx context.Context, addr ServiceAddress) error
}

// TCPPortChecker is a PortChecker that opens, and immediately closes, a TCP
// connection.
type TCPPortChecker struct {
	dialer net.Dialer
}

// NewTCPPortChecker creates a TCPPortChecker. The dial is bounded by the
// context passed to CheckPort.
func NewTCPPortChecker() *TCPPortChecker {
	return &TCPPortChecker{}
}

// CheckPort implements PortChecker.
func (c *TCPPortChecker) CheckPort(ctx context.Context, addr ServiceAddress) error {
	conn, err := c.dialer.DialContext(ctx, "tcp", string(addr))
	if err != nil {
		return err
	}
	return conn.Close()
}
