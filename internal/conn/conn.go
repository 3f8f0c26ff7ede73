// Package conn owns the TCP side of the client: single connections
// with per-operation deadlines, and a bounded pool of them per logical
// endpoint set. Endpoint choice on dial goes through a registered
// Picker so balancing is deterministic under test.
package conn

import (
	"net"
	"time"
)

// Dialer opens one TCP connection. Injectable so tests can fail
// connects deterministically.
type Dialer func(addr string, timeout time.Duration) (net.Conn, error)

func netDialer(addr string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, timeout)
}

// Conn is one pooled TCP connection. While borrowed it belongs to
// exactly one caller; the pool owns it otherwise. Reads and writes
// refresh the socket deadline, so the network timeout applies per
// operation rather than per connection lifetime.
type Conn struct {
	nc      net.Conn
	addr    string
	timeout time.Duration
	gen     uint64
	broken  bool
}

// Addr is the remote endpoint this connection was dialed to.
func (c *Conn) Addr() string { return c.addr }

func (c *Conn) Read(p []byte) (int, error) {
	if err := c.nc.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	n, err := c.nc.Read(p)
	if err != nil {
		c.broken = true
	}
	return n, err
}

func (c *Conn) Write(p []byte) (int, error) {
	if err := c.nc.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	n, err := c.nc.Write(p)
	if err != nil {
		c.broken = true
	}
	return n, err
}

func (c *Conn) Close() error {
	return c.nc.Close()
}
