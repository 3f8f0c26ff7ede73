package client

import (
	"fmt"
	"io"
	"net"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"fdfs/internal/proto"
	"fdfs/types"
)

// mockCluster is an in-process tracker plus storage node speaking the
// real frame protocol over loopback TCP.
type mockCluster struct {
	t       *testing.T
	group   string
	tracker net.Listener
	storage net.Listener

	// pathIndex is handed out by store resolutions; the storage node
	// rejects uploads that do not echo it back.
	pathIndex byte

	mu    sync.Mutex
	seq   int
	files map[string][]byte
	metas map[string]map[string]string

	// forcedStatus, when nonzero, makes the storage node answer every
	// command with that status.
	forcedStatus byte
	// shortDownload makes download responses declare more bytes than
	// they carry, then drop the connection.
	shortDownload bool
}

func newMockCluster(t *testing.T) *mockCluster {
	t.Helper()
	m := &mockCluster{
		t:         t,
		group:     "group1",
		pathIndex: 3,
		files:     make(map[string][]byte),
		metas:     make(map[string]map[string]string),
	}
	var err error
	m.tracker, err = net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	m.storage, err = net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go m.serve(m.tracker, m.handleTracker)
	go m.serve(m.storage, m.handleStorage)
	t.Cleanup(func() {
		m.tracker.Close()
		m.storage.Close()
	})
	return m
}

func (m *mockCluster) trackerEndpoint() types.Endpoint {
	addr := m.tracker.Addr().(*net.TCPAddr)
	return types.Endpoint{Host: "127.0.0.1", Port: addr.Port}
}

func (m *mockCluster) storagePort() int {
	return m.storage.Addr().(*net.TCPAddr).Port
}

func (m *mockCluster) storageServer(withPathIndex bool) []byte {
	return proto.PackStorageServer(types.StorageServer{
		GroupName:      m.group,
		IPAddr:         "127.0.0.1",
		Port:           m.storagePort(),
		StorePathIndex: m.pathIndex,
	}, withPathIndex)
}

// serve accepts connections and handles frames sequentially per
// connection, mirroring the per-connection FIFO of real servers.
func (m *mockCluster) serve(ln net.Listener, handle func(net.Conn, proto.Header, []byte) (byte, []byte)) {
	for {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		go func(c net.Conn) {
			defer c.Close()
			for {
				hb := make([]byte, proto.HeaderSize)
				if _, err := io.ReadFull(c, hb); err != nil {
					return
				}
				hdr, err := proto.UnmarshalHeader(hb)
				if err != nil {
					return
				}
				body := make([]byte, hdr.PkgLen)
				if _, err := io.ReadFull(c, body); err != nil {
					return
				}
				status, resp := handle(c, hdr, body)
				if status == 0xff {
					return // handler already wrote (or aborted)
				}
				out := proto.Header{PkgLen: uint64(len(resp)), Cmd: proto.TRACKER_PROTO_CMD_RESP, Status: status}.Marshal()
				if _, err := c.Write(append(out, resp...)); err != nil {
					return
				}
			}
		}(c)
	}
}

func (m *mockCluster) handleTracker(_ net.Conn, hdr proto.Header, body []byte) (byte, []byte) {
	switch hdr.Cmd {
	case proto.TRACKER_PROTO_CMD_SERVICE_QUERY_STORE_WITHOUT_GROUP_ONE,
		proto.TRACKER_PROTO_CMD_SERVICE_QUERY_STORE_WITH_GROUP_ONE:
		return 0, m.storageServer(true)
	case proto.TRACKER_PROTO_CMD_SERVICE_QUERY_FETCH_ONE,
		proto.TRACKER_PROTO_CMD_SERVICE_QUERY_UPDATE:
		return 0, m.storageServer(false)
	case proto.TRACKER_PROTO_CMD_SERVER_LIST_ONE_GROUP:
		g := types.GroupStat{GroupName: m.group, TotalMB: 1024, FreeMB: 512, ServerCount: 1, ActiveCount: 1}
		return 0, proto.PackGroupStat(&g)
	case proto.TRACKER_PROTO_CMD_SERVER_LIST_ALL_GROUPS:
		g1 := types.GroupStat{GroupName: m.group, TotalMB: 1024, FreeMB: 512}
		g2 := types.GroupStat{GroupName: "group2", TotalMB: 2048, FreeMB: 2048}
		return 0, append(proto.PackGroupStat(&g1), proto.PackGroupStat(&g2)...)
	case proto.TRACKER_PROTO_CMD_SERVER_LIST_STORAGE:
		s := types.StorageStat{Status: 7, IPAddr: "127.0.0.1", Version: "6.06", StoragePort: uint64(m.storagePort())}
		return 0, proto.PackStorageStat(&s)
	case proto.FDFS_PROTO_CMD_ACTIVE_TEST:
		return 0, nil
	}
	return 22, nil // EINVAL for anything unexpected
}

func (m *mockCluster) nextFilename(ext string) string {
	m.seq++
	name := fmt.Sprintf("M00/00/00/wKgBAl%06d", m.seq)
	if ext != "" {
		name += "." + ext
	}
	return name
}

func (m *mockCluster) handleStorage(c net.Conn, hdr proto.Header, body []byte) (byte, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedStatus != 0 {
		return m.forcedStatus, nil
	}
	switch hdr.Cmd {
	case proto.STORAGE_PROTO_CMD_UPLOAD_FILE, proto.STORAGE_PROTO_CMD_UPLOAD_APPENDER_FILE:
		idx, size, ext, err := proto.UnpackUploadPrefix(body)
		if err != nil {
			return 22, nil
		}
		if idx != m.pathIndex {
			// The client must echo the index from its own store
			// resolution, never a stale cached one.
			return 22, nil
		}
		content := body[1+8+proto.FileExtNameLen:]
		if int64(len(content)) != size {
			return 22, nil
		}
		name := m.nextFilename(ext)
		m.files[name] = append([]byte(nil), content...)
		resp, _ := proto.PackGroupAndFilename(m.group, name)
		return 0, resp

	case proto.STORAGE_PROTO_CMD_UPLOAD_SLAVE_FILE:
		master, prefix, ext, size, err := proto.UnpackSlavePrefix(body)
		if err != nil {
			return 22, nil
		}
		head := 8 + 8 + proto.FilePrefixMaxLen + proto.FileExtNameLen + len(master)
		content := body[head:]
		if int64(len(content)) != size {
			return 22, nil
		}
		base := strings.TrimSuffix(master, path.Ext(master))
		name := base + prefix
		if ext != "" {
			name += "." + ext
		}
		m.files[name] = append([]byte(nil), content...)
		resp, _ := proto.PackGroupAndFilename(m.group, name)
		return 0, resp

	case proto.STORAGE_PROTO_CMD_DOWNLOAD_FILE:
		_, name, offset, length, err := proto.UnpackDownload(body)
		if err != nil {
			return 22, nil
		}
		f, ok := m.files[name]
		if !ok {
			return 2, nil // ENOENT
		}
		if offset > int64(len(f)) {
			return 22, nil
		}
		end := int64(len(f))
		if length > 0 && offset+length < end {
			end = offset + length
		}
		chunk := f[offset:end]
		if m.shortDownload {
			out := proto.Header{PkgLen: uint64(len(chunk)) + 5, Cmd: proto.TRACKER_PROTO_CMD_RESP}.Marshal()
			c.Write(append(out, chunk...))
			c.Close()
			return 0xff, nil
		}
		return 0, chunk

	case proto.STORAGE_PROTO_CMD_DELETE_FILE:
		_, name, err := proto.UnpackGroupAndFilename(body)
		if err != nil {
			return 22, nil
		}
		if _, ok := m.files[name]; !ok {
			return 2, nil
		}
		delete(m.files, name)
		delete(m.metas, name)
		return 0, nil

	case proto.STORAGE_PROTO_CMD_APPEND_FILE:
		name, data, err := proto.UnpackAppend(body)
		if err != nil {
			return 22, nil
		}
		if _, ok := m.files[name]; !ok {
			return 2, nil
		}
		m.files[name] = append(m.files[name], data...)
		return 0, nil

	case proto.STORAGE_PROTO_CMD_MODIFY_FILE:
		name, offset, data, err := proto.UnpackModify(body)
		if err != nil {
			return 22, nil
		}
		f, ok := m.files[name]
		if !ok {
			return 2, nil
		}
		if offset+int64(len(data)) > int64(len(f)) {
			grown := make([]byte, offset+int64(len(data)))
			copy(grown, f)
			f = grown
		}
		copy(f[offset:], data)
		m.files[name] = f
		return 0, nil

	case proto.STORAGE_PROTO_CMD_TRUNCATE_FILE:
		name, size, err := proto.UnpackTruncate(body)
		if err != nil {
			return 22, nil
		}
		f, ok := m.files[name]
		if !ok {
			return 2, nil
		}
		if size > int64(len(f)) {
			grown := make([]byte, size)
			copy(grown, f)
			f = grown
		} else {
			f = f[:size]
		}
		m.files[name] = f
		return 0, nil

	case proto.STORAGE_PROTO_CMD_SET_METADATA:
		_, name, block, flag, err := proto.UnpackSetMetadata(body)
		if err != nil {
			return 22, nil
		}
		if _, ok := m.files[name]; !ok {
			return 2, nil
		}
		meta, err := proto.UnpackMetadata(block)
		if err != nil {
			return 22, nil
		}
		if flag == proto.STORAGE_SET_METADATA_FLAG_MERGE && m.metas[name] != nil {
			for k, v := range meta {
				m.metas[name][k] = v
			}
		} else {
			m.metas[name] = meta
		}
		return 0, nil

	case proto.STORAGE_PROTO_CMD_GET_METADATA:
		_, name, err := proto.UnpackGroupAndFilename(body)
		if err != nil {
			return 22, nil
		}
		if _, ok := m.files[name]; !ok {
			return 2, nil
		}
		block, _ := proto.PackMetadata(m.metas[name])
		return 0, block
	}
	return 22, nil
}
