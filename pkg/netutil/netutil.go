// Package netutil discovers the local machine's network address.
package netutil

import (
	"fmt"
	"net"
)

// LocalIP returns the IPv4 address the machine would use for outbound
// traffic. Dialing UDP performs no handshake, so nothing is actually sent;
// the kernel just picks the route and the source address with it.
func LocalIP() (string, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "", fmt.Errorf("failed to detect local IP: %w", err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address type %T", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}
