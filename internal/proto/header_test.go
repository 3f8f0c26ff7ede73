package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdfs/types"
)

func TestHeaderRoundTrip(t *testing.T) {
	cases := []Header{
		{PkgLen: 0, Cmd: TRACKER_PROTO_CMD_RESP, Status: 0},
		{PkgLen: 1, Cmd: STORAGE_PROTO_CMD_UPLOAD_FILE, Status: 0},
		{PkgLen: 40, Cmd: TRACKER_PROTO_CMD_SERVICE_QUERY_STORE_WITHOUT_GROUP_ONE, Status: 2},
		{PkgLen: 1<<40 + 7, Cmd: STORAGE_PROTO_CMD_MODIFY_FILE, Status: 255},
	}
	for _, want := range cases {
		buf := want.Marshal()
		require.Len(t, buf, HeaderSize)
		got, err := UnmarshalHeader(buf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestHeaderBigEndian(t *testing.T) {
	buf := Header{PkgLen: 0x0102030405060708, Cmd: 11, Status: 1}.Marshal()
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 11, 1}, buf)
}

func TestHeaderShortInput(t *testing.T) {
	for n := 0; n < HeaderSize; n++ {
		_, err := UnmarshalHeader(make([]byte, n))
		require.Error(t, err)
		var re *types.ResponseError
		assert.ErrorAs(t, err, &re)
	}
}
