package client

import (
	"io"
	"os"
	"sync"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"fdfs/config"
	"fdfs/internal/conn"
	_ "fdfs/internal/conn/lb"
	"fdfs/internal/proto"
	"fdfs/types"
)

// Client is the facade: it sequences the tracker resolution and the
// storage operation behind every public call. It owns the tracker pool
// and a cache of per-node storage clients whose idle entries expire
// and close their pools.
type Client struct {
	cfg  *config.Config
	opts options

	trackerPool *conn.Pool

	mu       sync.Mutex // guards storage-client creation
	storages *cache.Cache
}

// New builds a client from a validated configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, types.NewConfigError("nil configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{cfg: cfg}
	c.opts.init(opts...)
	maxConns := cfg.MaxConns
	if c.opts.maxConns > 0 {
		maxConns = c.opts.maxConns
	}
	pool, err := conn.NewPool(conn.Config{
		Name:           "tracker",
		Endpoints:      cfg.TrackerServers,
		MaxConns:       maxConns,
		ConnectTimeout: cfg.ConnectTimeout,
		NetworkTimeout: cfg.NetworkTimeout,
		Picker:         conn.Use(c.opts.pickerTag),
		Dialer:         c.opts.dialer,
	})
	if err != nil {
		return nil, err
	}
	c.trackerPool = pool
	c.storages = cache.New(c.opts.storageTTL, c.opts.storageTTL/3)
	c.storages.OnEvicted(func(key string, v interface{}) {
		log.Debugf("closing idle storage client %s", key)
		v.(*StorageClient).Close()
	})
	return c, nil
}

// Close tears down the tracker pool and every cached storage client.
func (c *Client) Close() {
	c.trackerPool.Destroy()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, item := range c.storages.Items() {
		item.Object.(*StorageClient).Close()
		c.storages.Delete(key)
	}
}

func (c *Client) tracker() *TrackerClient {
	return NewTrackerClient(c.trackerPool)
}

// storage returns the cached client for a resolved node, building one
// on first use. Clients are shared across goroutines and never
// mutated; resolution-specific data like the store path index is
// passed into each operation instead.
func (c *Client) storage(srv types.StorageServer) (*StorageClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := srv.Addr()
	if v, ok := c.storages.Get(key); ok {
		sc := v.(*StorageClient)
		c.storages.SetDefault(key, sc)
		return sc, nil
	}
	maxConns := c.cfg.MaxConns
	if c.opts.maxConns > 0 {
		maxConns = c.opts.maxConns
	}
	sc, err := NewStorageClient(srv, conn.Config{
		MaxConns:       maxConns,
		ConnectTimeout: c.cfg.ConnectTimeout,
		NetworkTimeout: c.cfg.NetworkTimeout,
		Picker:         conn.Use(c.opts.pickerTag),
		Dialer:         c.opts.dialer,
	})
	if err != nil {
		return nil, err
	}
	c.storages.SetDefault(key, sc)
	return sc, nil
}

// checkLocalFile rejects a missing or non-regular local file before
// any network traffic.
func checkLocalFile(local string) error {
	fi, err := os.Stat(local)
	if err != nil {
		return types.NewDataError("local file %s does not exist", local)
	}
	if !fi.Mode().IsRegular() {
		return types.NewDataError("%s is not a regular file", local)
	}
	return nil
}

// storeServ resolves a new-file placement, optionally pinned to a
// group. The returned StorageServer carries the store path index for
// this resolution.
func (c *Client) storeServ(group string) (*StorageClient, types.StorageServer, error) {
	srv, err := c.tracker().QueryStorageStore(group)
	if err != nil {
		return nil, srv, err
	}
	sc, err := c.storage(srv)
	return sc, srv, err
}

// updateServ resolves the node holding an existing file, for mutation.
func (c *Client) updateServ(fileID string) (*StorageClient, types.RemoteFileID, error) {
	id, err := types.SplitRemoteFileID(fileID)
	if err != nil {
		return nil, id, err
	}
	srv, err := c.tracker().QueryStorageUpdate(id.GroupName, id.Filename)
	if err != nil {
		return nil, id, err
	}
	sc, err := c.storage(srv)
	return sc, id, err
}

// GetStoreServ resolves a file id to the storage server currently
// holding it.
func (c *Client) GetStoreServ(fileID string) (types.StorageServer, error) {
	id, err := types.SplitRemoteFileID(fileID)
	if err != nil {
		return types.StorageServer{}, err
	}
	return c.tracker().QueryStorageUpdate(id.GroupName, id.Filename)
}

// UploadByFilename stores a local file as a new remote file.
func (c *Client) UploadByFilename(local string, meta map[string]string) (*types.UploadResult, error) {
	if err := checkLocalFile(local); err != nil {
		return nil, err
	}
	sc, srv, err := c.storeServ("")
	if err != nil {
		return nil, err
	}
	return sc.UploadByFilename(srv.StorePathIndex, local, meta)
}

// UploadByBuffer stores a memory buffer as a new remote file.
func (c *Client) UploadByBuffer(buf []byte, ext string, meta map[string]string) (*types.UploadResult, error) {
	if len(buf) == 0 {
		return nil, types.NewDataError("upload buffer is empty")
	}
	sc, srv, err := c.storeServ("")
	if err != nil {
		return nil, err
	}
	return sc.UploadByBuffer(srv.StorePathIndex, buf, ext, meta)
}

// UploadByReader stores a stream of known size as a new remote file.
func (c *Client) UploadByReader(r io.Reader, size int64, ext string, meta map[string]string) (*types.UploadResult, error) {
	if r == nil || size <= 0 {
		return nil, types.NewDataError("upload reader must be non-nil with positive size")
	}
	sc, srv, err := c.storeServ("")
	if err != nil {
		return nil, err
	}
	return sc.UploadByReader(srv.StorePathIndex, r, size, ext, meta)
}

// UploadAppenderByFilename stores a local file as a new appender file.
func (c *Client) UploadAppenderByFilename(local string, meta map[string]string) (*types.UploadResult, error) {
	if err := checkLocalFile(local); err != nil {
		return nil, err
	}
	sc, srv, err := c.storeServ("")
	if err != nil {
		return nil, err
	}
	return sc.UploadAppenderByFilename(srv.StorePathIndex, local, meta)
}

// UploadAppenderByBuffer stores a memory buffer as a new appender
// file.
func (c *Client) UploadAppenderByBuffer(buf []byte, ext string, meta map[string]string) (*types.UploadResult, error) {
	if len(buf) == 0 {
		return nil, types.NewDataError("upload buffer is empty")
	}
	sc, srv, err := c.storeServ("")
	if err != nil {
		return nil, err
	}
	return sc.UploadAppenderByBuffer(srv.StorePathIndex, buf, ext, meta)
}

// UploadSlaveByFilename stores a local file as a companion of an
// existing master file, in the master's group.
func (c *Client) UploadSlaveByFilename(local, masterFileID, prefix string, meta map[string]string) (*types.UploadResult, error) {
	if err := checkLocalFile(local); err != nil {
		return nil, err
	}
	master, err := slaveMaster(masterFileID, prefix)
	if err != nil {
		return nil, err
	}
	sc, _, err := c.storeServ(master.GroupName)
	if err != nil {
		return nil, err
	}
	return sc.UploadSlaveByFilename(local, master.Filename, prefix, meta)
}

// UploadSlaveByBuffer stores a memory buffer as a companion of an
// existing master file.
func (c *Client) UploadSlaveByBuffer(buf []byte, masterFileID, prefix, ext string, meta map[string]string) (*types.UploadResult, error) {
	if len(buf) == 0 {
		return nil, types.NewDataError("upload buffer is empty")
	}
	master, err := slaveMaster(masterFileID, prefix)
	if err != nil {
		return nil, err
	}
	sc, _, err := c.storeServ(master.GroupName)
	if err != nil {
		return nil, err
	}
	return sc.UploadSlaveByBuffer(buf, master.Filename, prefix, ext, meta)
}

func slaveMaster(masterFileID, prefix string) (types.RemoteFileID, error) {
	if prefix == "" {
		return types.RemoteFileID{}, types.NewDataError("slave prefix is empty")
	}
	return types.SplitRemoteFileID(masterFileID)
}

// DownloadToBuffer fetches a whole file or a byte range into memory.
// Zero offset and length mean the whole file.
func (c *Client) DownloadToBuffer(fileID string, offset, length int64) (*types.DownloadResult, error) {
	id, err := types.SplitRemoteFileID(fileID)
	if err != nil {
		return nil, err
	}
	srv, err := c.tracker().QueryStorageFetch(id.GroupName, id.Filename)
	if err != nil {
		return nil, err
	}
	sc, err := c.storage(srv)
	if err != nil {
		return nil, err
	}
	return sc.DownloadToBuffer(id.GroupName, id.Filename, offset, length)
}

// DownloadToFile fetches a whole file or a byte range into a local
// file.
func (c *Client) DownloadToFile(local, fileID string, offset, length int64) (*types.DownloadResult, error) {
	id, err := types.SplitRemoteFileID(fileID)
	if err != nil {
		return nil, err
	}
	srv, err := c.tracker().QueryStorageFetch(id.GroupName, id.Filename)
	if err != nil {
		return nil, err
	}
	sc, err := c.storage(srv)
	if err != nil {
		return nil, err
	}
	return sc.DownloadToFile(local, id.GroupName, id.Filename, offset, length)
}

// DeleteFile removes a remote file.
func (c *Client) DeleteFile(fileID string) (*types.OpResult, error) {
	sc, id, err := c.updateServ(fileID)
	if err != nil {
		return nil, err
	}
	return sc.DeleteFile(id.GroupName, id.Filename)
}

// AppendByFilename appends a local file to a remote appender file.
func (c *Client) AppendByFilename(local, appenderFileID string) (*types.OpResult, error) {
	if err := checkLocalFile(local); err != nil {
		return nil, err
	}
	sc, id, err := c.updateServ(appenderFileID)
	if err != nil {
		return nil, err
	}
	return sc.AppendByFilename(local, id.GroupName, id.Filename)
}

// AppendByBuffer appends a memory buffer to a remote appender file.
func (c *Client) AppendByBuffer(buf []byte, appenderFileID string) (*types.OpResult, error) {
	if len(buf) == 0 {
		return nil, types.NewDataError("append buffer is empty")
	}
	sc, id, err := c.updateServ(appenderFileID)
	if err != nil {
		return nil, err
	}
	return sc.AppendByBuffer(buf, id.GroupName, id.Filename)
}

// ModifyByFilename overwrites a range of a remote appender file with a
// local file's contents.
func (c *Client) ModifyByFilename(local, appenderFileID string, offset int64) (*types.OpResult, error) {
	if err := checkLocalFile(local); err != nil {
		return nil, err
	}
	sc, id, err := c.updateServ(appenderFileID)
	if err != nil {
		return nil, err
	}
	return sc.ModifyByFilename(local, id.GroupName, id.Filename, offset)
}

// ModifyByBuffer overwrites a range of a remote appender file with a
// memory buffer.
func (c *Client) ModifyByBuffer(buf []byte, appenderFileID string, offset int64) (*types.OpResult, error) {
	if len(buf) == 0 {
		return nil, types.NewDataError("modify buffer is empty")
	}
	sc, id, err := c.updateServ(appenderFileID)
	if err != nil {
		return nil, err
	}
	return sc.ModifyByBuffer(buf, id.GroupName, id.Filename, offset)
}

// TruncateFile truncates a remote appender file to the given size.
func (c *Client) TruncateFile(truncatedSize int64, appenderFileID string) (*types.OpResult, error) {
	sc, id, err := c.updateServ(appenderFileID)
	if err != nil {
		return nil, err
	}
	return sc.TruncateFile(id.GroupName, id.Filename, truncatedSize)
}

// GetMetadata fetches a remote file's metadata map.
func (c *Client) GetMetadata(fileID string) (map[string]string, error) {
	sc, id, err := c.updateServ(fileID)
	if err != nil {
		return nil, err
	}
	return sc.GetMetadata(id.GroupName, id.Filename)
}

// SetMetadata replaces (flag 'O') or merges (flag 'M') a remote file's
// metadata.
func (c *Client) SetMetadata(fileID string, meta map[string]string, flag byte) (*types.OpResult, error) {
	sc, id, err := c.updateServ(fileID)
	if err != nil {
		return nil, err
	}
	return sc.SetMetadata(id.GroupName, id.Filename, meta, flag)
}

// SetMetadataFlags re-exported for callers.
const (
	MetadataOverwrite = proto.STORAGE_SET_METADATA_FLAG_OVERWRITE
	MetadataMerge     = proto.STORAGE_SET_METADATA_FLAG_MERGE
)

// ListOneGroup returns one group's stat block.
func (c *Client) ListOneGroup(group string) (*types.GroupStat, error) {
	return c.tracker().ListOneGroup(group)
}

// ListServers returns the storage stat blocks of a group, optionally
// narrowed to one server ip.
func (c *Client) ListServers(group, storageIP string) ([]types.StorageStat, error) {
	return c.tracker().ListServers(group, storageIP)
}

// ListAllGroups returns every group's stat block.
func (c *Client) ListAllGroups() ([]types.GroupStat, error) {
	return c.tracker().ListAllGroups()
}

// ActiveTest pings a tracker.
func (c *Client) ActiveTest() error {
	return c.tracker().ActiveTest()
}
