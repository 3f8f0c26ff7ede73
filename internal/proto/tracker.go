package proto

import (
	"encoding/binary"

	"fdfs/types"
)

// Tracker command payloads. Query requests carry at most a group name
// and a filename; query responses carry a resolved storage server.

// PackGroupName encodes the fixed-width group field alone, the whole
// request body for group-scoped commands.
func PackGroupName(group string) ([]byte, error) {
	if len(group) > GroupNameMaxLen {
		return nil, types.NewDataError("group name %q longer than %d", group, GroupNameMaxLen)
	}
	buf := make([]byte, GroupNameMaxLen)
	writeFixed(buf, group, GroupNameMaxLen)
	return buf, nil
}

// PackGroupAndFilename encodes the body shared by query-fetch,
// query-update, delete and get-metadata.
func PackGroupAndFilename(group, filename string) ([]byte, error) {
	prefix, err := PackGroupName(group)
	if err != nil {
		return nil, err
	}
	return append(prefix, filename...), nil
}

// UnpackGroupAndFilename is the inverse, also the shape of every upload
// response body.
func UnpackGroupAndFilename(body []byte) (string, string, error) {
	if len(body) <= GroupNameMaxLen {
		return "", "", types.NewResponseError(0, "body is %d bytes, want group + filename", len(body))
	}
	return readFixed(body[:GroupNameMaxLen]), string(body[GroupNameMaxLen:]), nil
}

// PackStorageServer encodes a query-store response body (40 bytes with
// the store path index) or a query-fetch/update body (39 bytes without).
func PackStorageServer(srv types.StorageServer, withPathIndex bool) []byte {
	n := QueryFetchBodyLen
	if withPathIndex {
		n = QueryStoreBodyLen
	}
	buf := make([]byte, n)
	writeFixed(buf, srv.GroupName, GroupNameMaxLen)
	writeFixed(buf[GroupNameMaxLen:], srv.IPAddr, IPAddrWireLen)
	binary.BigEndian.PutUint64(buf[GroupNameMaxLen+IPAddrWireLen:], uint64(srv.Port))
	if withPathIndex {
		buf[n-1] = srv.StorePathIndex
	}
	return buf
}

// UnpackStorageServer decodes a tracker query response body.
func UnpackStorageServer(body []byte, withPathIndex bool) (types.StorageServer, error) {
	want := QueryFetchBodyLen
	if withPathIndex {
		want = QueryStoreBodyLen
	}
	if len(body) != want {
		return types.StorageServer{}, types.NewResponseError(0, "query response body is %d bytes, want %d", len(body), want)
	}
	srv := types.StorageServer{
		GroupName: readFixed(body[:GroupNameMaxLen]),
		IPAddr:    readFixed(body[GroupNameMaxLen : GroupNameMaxLen+IPAddrWireLen]),
		Port:      int(binary.BigEndian.Uint64(body[GroupNameMaxLen+IPAddrWireLen : GroupNameMaxLen+IPAddrWireLen+8])),
	}
	if withPathIndex {
		srv.StorePathIndex = body[want-1]
	}
	return srv, nil
}

// PackListServers encodes a list-storage request: group plus an
// optional trailing storage ip to narrow the listing to one server.
func PackListServers(group, storageIP string) ([]byte, error) {
	body, err := PackGroupName(group)
	if err != nil {
		return nil, err
	}
	return append(body, storageIP...), nil
}
