package proto

import (
	"encoding/binary"

	"fdfs/types"
)

// Header is the 10-byte frame prefix carried by every request and
// response: payload length, command code, status.
type Header struct {
	PkgLen uint64
	Cmd    byte
	Status byte
}

// Marshal encodes the header into its 10-byte wire form.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint64(buf[:8], h.PkgLen)
	buf[8] = h.Cmd
	buf[9] = h.Status
	return buf
}

// UnmarshalHeader decodes a 10-byte frame prefix. Short input is a
// malformed frame.
func UnmarshalHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, types.NewResponseError(0, "malformed frame: header is %d bytes, want %d", len(buf), HeaderSize)
	}
	return Header{
		PkgLen: binary.BigEndian.Uint64(buf[:8]),
		Cmd:    buf[8],
		Status: buf[9],
	}, nil
}
