// Package client implements the request side of the protocol: the
// tracker client, the per-node storage client, and the facade that
// sequences them. Each call borrows one pooled connection, runs one
// header+payload exchange, and gives the connection back before
// returning, on every path.
package client

import (
	"io"

	"github.com/pkg/errors"

	"fdfs/internal/conn"
	"fdfs/internal/proto"
	"fdfs/types"
)

// sendFrame writes one request frame: header, fixed payload, then an
// optional streamed body of exactly bodyLen bytes.
func sendFrame(c *conn.Conn, cmd byte, payload []byte, body io.Reader, bodyLen int64) error {
	hdr := proto.Header{PkgLen: uint64(len(payload)) + uint64(bodyLen), Cmd: cmd}
	if _, err := c.Write(hdr.Marshal()); err != nil {
		return types.NewConnectionError(c.Addr(), err, "write header")
	}
	if len(payload) > 0 {
		if _, err := c.Write(payload); err != nil {
			return types.NewConnectionError(c.Addr(), err, "write payload")
		}
	}
	if body != nil && bodyLen > 0 {
		if _, err := io.CopyN(c, body, bodyLen); err != nil {
			return types.NewConnectionError(c.Addr(), err, "stream request body")
		}
	}
	return nil
}

// recvHeader reads a response header and maps a nonzero status to a
// ResponseError carrying the code.
func recvHeader(c *conn.Conn) (proto.Header, error) {
	buf := make([]byte, proto.HeaderSize)
	if _, err := io.ReadFull(c, buf); err != nil {
		return proto.Header{}, types.NewConnectionError(c.Addr(), err, "read header")
	}
	hdr, err := proto.UnmarshalHeader(buf)
	if err != nil {
		return proto.Header{}, err
	}
	if hdr.Status != 0 {
		return proto.Header{}, types.NewResponseError(hdr.Status, "server returned status %d for cmd %d", hdr.Status, hdr.Cmd)
	}
	return hdr, nil
}

// recvBody reads exactly the declared payload length. A stream that
// ends early is a protocol desync, not a short result.
func recvBody(c *conn.Conn, pkgLen uint64) ([]byte, error) {
	if pkgLen == 0 {
		return nil, nil
	}
	body := make([]byte, pkgLen)
	if _, err := io.ReadFull(c, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, types.NewResponseError(0, "protocol desync: declared %d payload bytes, stream ended early", pkgLen)
		}
		return nil, types.NewConnectionError(c.Addr(), err, "read payload")
	}
	return body, nil
}

// exchange runs one full request/response cycle for commands whose
// whole payload fits in memory.
func exchange(c *conn.Conn, cmd byte, payload []byte) ([]byte, error) {
	if err := sendFrame(c, cmd, payload, nil, 0); err != nil {
		return nil, err
	}
	hdr, err := recvHeader(c)
	if err != nil {
		return nil, err
	}
	return recvBody(c, hdr.PkgLen)
}

// done returns a borrowed connection to its pool: removed when the
// socket itself is suspect, released otherwise. Protocol-status
// failures keep the connection; it is still in a clean frame boundary.
func done(p *conn.Pool, c *conn.Conn, err error) {
	if err != nil && types.IsConnectionError(err) {
		p.Remove(c)
		return
	}
	p.Release(c)
}
