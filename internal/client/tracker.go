package client

import (
	"github.com/pkg/errors"

	"fdfs/internal/conn"
	"fdfs/internal/proto"
	"fdfs/types"
)

// TrackerClient issues tracker commands over the shared tracker pool.
// Every call is a single attempt: connect-level retries live inside
// the pool, and a nonzero tracker status is never retried here.
type TrackerClient struct {
	pool *conn.Pool
}

func NewTrackerClient(pool *conn.Pool) *TrackerClient {
	return &TrackerClient{pool: pool}
}

func (tc *TrackerClient) query(cmd byte, payload []byte) (body []byte, err error) {
	c, err := tc.pool.Get()
	if err != nil {
		return nil, err
	}
	defer func() { done(tc.pool, c, err) }()
	body, err = exchange(c, cmd, payload)
	return body, errors.Wrapf(err, "tracker cmd %d", cmd)
}

// QueryStorageStore resolves a storage server that may accept a new
// file. An empty group lets the tracker pick one by its own policy; a
// named group pins placement, which slave uploads need.
func (tc *TrackerClient) QueryStorageStore(group string) (types.StorageServer, error) {
	cmd := byte(proto.TRACKER_PROTO_CMD_SERVICE_QUERY_STORE_WITHOUT_GROUP_ONE)
	var payload []byte
	if group != "" {
		var err error
		if payload, err = proto.PackGroupName(group); err != nil {
			return types.StorageServer{}, err
		}
		cmd = proto.TRACKER_PROTO_CMD_SERVICE_QUERY_STORE_WITH_GROUP_ONE
	}
	body, err := tc.query(cmd, payload)
	if err != nil {
		return types.StorageServer{}, err
	}
	return proto.UnpackStorageServer(body, true)
}

// QueryStorageUpdate resolves the storage server holding an existing
// file, for mutation.
func (tc *TrackerClient) QueryStorageUpdate(group, filename string) (types.StorageServer, error) {
	return tc.queryExisting(proto.TRACKER_PROTO_CMD_SERVICE_QUERY_UPDATE, group, filename)
}

// QueryStorageFetch resolves the storage server holding an existing
// file, for read.
func (tc *TrackerClient) QueryStorageFetch(group, filename string) (types.StorageServer, error) {
	return tc.queryExisting(proto.TRACKER_PROTO_CMD_SERVICE_QUERY_FETCH_ONE, group, filename)
}

func (tc *TrackerClient) queryExisting(cmd byte, group, filename string) (types.StorageServer, error) {
	payload, err := proto.PackGroupAndFilename(group, filename)
	if err != nil {
		return types.StorageServer{}, err
	}
	body, err := tc.query(cmd, payload)
	if err != nil {
		return types.StorageServer{}, err
	}
	srv, err := proto.UnpackStorageServer(body, false)
	if err != nil {
		return types.StorageServer{}, err
	}
	if srv.GroupName == "" {
		srv.GroupName = group
	}
	return srv, nil
}

// ListOneGroup fetches the stat block of one group.
func (tc *TrackerClient) ListOneGroup(group string) (*types.GroupStat, error) {
	payload, err := proto.PackGroupName(group)
	if err != nil {
		return nil, err
	}
	body, err := tc.query(proto.TRACKER_PROTO_CMD_SERVER_LIST_ONE_GROUP, payload)
	if err != nil {
		return nil, err
	}
	stats, err := proto.UnpackGroupStats(body)
	if err != nil {
		return nil, err
	}
	if len(stats) != 1 {
		return nil, types.NewResponseError(0, "list-one-group returned %d blocks", len(stats))
	}
	return &stats[0], nil
}

// ListServers fetches the stat blocks of a group's storage servers,
// narrowed to one server when storageIP is set.
func (tc *TrackerClient) ListServers(group, storageIP string) ([]types.StorageStat, error) {
	payload, err := proto.PackListServers(group, storageIP)
	if err != nil {
		return nil, err
	}
	body, err := tc.query(proto.TRACKER_PROTO_CMD_SERVER_LIST_STORAGE, payload)
	if err != nil {
		return nil, err
	}
	return proto.UnpackStorageStats(body)
}

// ListAllGroups fetches the stat blocks of every group.
func (tc *TrackerClient) ListAllGroups() ([]types.GroupStat, error) {
	body, err := tc.query(proto.TRACKER_PROTO_CMD_SERVER_LIST_ALL_GROUPS, nil)
	if err != nil {
		return nil, err
	}
	return proto.UnpackGroupStats(body)
}

// ActiveTest pings any tracker, a liveness probe with an empty body.
func (tc *TrackerClient) ActiveTest() error {
	_, err := tc.query(proto.FDFS_PROTO_CMD_ACTIVE_TEST, nil)
	return err
}
