package client

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdfs/config"
	"fdfs/types"
)

func newTestClient(t *testing.T, m *mockCluster) *Client {
	t.Helper()
	cfg := &config.Config{
		TrackerServers: []types.Endpoint{m.trackerEndpoint()},
		ConnectTimeout: 2 * time.Second,
		NetworkTimeout: 2 * time.Second,
	}
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	up, err := c.UploadByBuffer([]byte("hello"), "txt", nil)
	require.NoError(t, err)
	assert.Equal(t, "group1", up.GroupName)
	assert.Equal(t, int64(5), up.FileSize)
	assert.NotEmpty(t, up.StorageIP)

	down, err := c.DownloadToBuffer(up.RemoteFileID().String(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), down.Content)
	assert.Equal(t, int64(5), down.DownloadSize)
}

func TestDownloadRange(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	up, err := c.UploadByBuffer([]byte("0123456789"), "bin", nil)
	require.NoError(t, err)

	down, err := c.DownloadToBuffer(up.RemoteFileID().String(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("234"), down.Content)
	assert.Equal(t, int64(3), down.DownloadSize)
}

func TestUploadByFilenameAndDownloadToFile(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	dir := t.TempDir()
	local := filepath.Join(dir, "in.jpg")
	require.NoError(t, os.WriteFile(local, []byte("image-bytes"), 0o644))

	up, err := c.UploadByFilename(local, nil)
	require.NoError(t, err)
	assert.Equal(t, local, up.LocalFilename)
	assert.Contains(t, up.RemoteFilename, ".jpg")

	out := filepath.Join(dir, "out.jpg")
	down, err := c.DownloadToFile(out, up.RemoteFileID().String(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(len("image-bytes")), down.DownloadSize)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), got)
}

func TestUploadByReader(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	up, err := c.UploadByReader(bytes.NewReader([]byte("streamed")), 8, "dat", nil)
	require.NoError(t, err)
	down, err := c.DownloadToBuffer(up.RemoteFileID().String(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("streamed"), down.Content)
}

func TestMetadataRoundTrip(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	up, err := c.UploadByBuffer([]byte("x"), "txt", nil)
	require.NoError(t, err)
	id := up.RemoteFileID().String()

	_, err = c.SetMetadata(id, map[string]string{"width": "100"}, MetadataOverwrite)
	require.NoError(t, err)
	meta, err := c.GetMetadata(id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"width": "100"}, meta)

	// Merge keeps existing keys, overwrite replaces the whole set.
	_, err = c.SetMetadata(id, map[string]string{"height": "80"}, MetadataMerge)
	require.NoError(t, err)
	meta, err = c.GetMetadata(id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"width": "100", "height": "80"}, meta)

	_, err = c.SetMetadata(id, map[string]string{"ext": "txt"}, MetadataOverwrite)
	require.NoError(t, err)
	meta, err = c.GetMetadata(id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ext": "txt"}, meta)
}

func TestUploadCarriesMetadata(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	up, err := c.UploadByBuffer([]byte("x"), "jpg", map[string]string{"width": "640"})
	require.NoError(t, err)
	meta, err := c.GetMetadata(up.RemoteFileID().String())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"width": "640"}, meta)
}

func TestSlaveUpload(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	master, err := c.UploadByBuffer([]byte("full-size"), "jpg", nil)
	require.NoError(t, err)

	slave, err := c.UploadSlaveByBuffer([]byte("thumb"), master.RemoteFileID().String(), "_150x150", "jpg", nil)
	require.NoError(t, err)
	assert.Equal(t, master.GroupName, slave.GroupName)
	assert.Contains(t, slave.RemoteFilename, "_150x150")

	down, err := c.DownloadToBuffer(slave.RemoteFileID().String(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("thumb"), down.Content)
}

func TestAppenderLifecycle(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	up, err := c.UploadAppenderByBuffer([]byte("hello"), "log", nil)
	require.NoError(t, err)
	id := up.RemoteFileID().String()

	_, err = c.AppendByBuffer([]byte(" world"), id)
	require.NoError(t, err)
	down, err := c.DownloadToBuffer(id, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), down.Content)

	_, err = c.ModifyByBuffer([]byte("J"), id, 0)
	require.NoError(t, err)
	down, err = c.DownloadToBuffer(id, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("Jello world"), down.Content)

	_, err = c.TruncateFile(5, id)
	require.NoError(t, err)
	down, err = c.DownloadToBuffer(id, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("Jello"), down.Content)
}

func TestDeleteFile(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	up, err := c.UploadByBuffer([]byte("x"), "txt", nil)
	require.NoError(t, err)
	id := up.RemoteFileID().String()

	_, err = c.DeleteFile(id)
	require.NoError(t, err)

	_, err = c.DeleteFile(id)
	require.Error(t, err)
	assert.Equal(t, 2, types.ResponseCode(err))
}

func TestStatusMapping(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	up, err := c.UploadByBuffer([]byte("x"), "txt", nil)
	require.NoError(t, err)

	m.mu.Lock()
	m.forcedStatus = 2
	m.mu.Unlock()

	_, err = c.DownloadToBuffer(up.RemoteFileID().String(), 0, 0)
	require.Error(t, err)
	assert.Equal(t, 2, types.ResponseCode(err), "status 2 must surface, never an empty result")
}

func TestProtocolDesync(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	up, err := c.UploadByBuffer([]byte("payload"), "txt", nil)
	require.NoError(t, err)

	m.mu.Lock()
	m.shortDownload = true
	m.mu.Unlock()

	_, err = c.DownloadToBuffer(up.RemoteFileID().String(), 0, 0)
	require.Error(t, err)
	assert.Equal(t, 0, types.ResponseCode(err), "a short response body is a protocol error")
}

func TestBadFileIDRejectedLocally(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	for _, call := range []func() error{
		func() error { _, err := c.DownloadToBuffer("no-slash", 0, 0); return err },
		func() error { _, err := c.DeleteFile("no-slash"); return err },
		func() error { _, err := c.GetMetadata("no-slash"); return err },
		func() error { _, err := c.AppendByBuffer([]byte("x"), "no-slash"); return err },
	} {
		err := call()
		require.Error(t, err)
		assert.True(t, types.IsDataError(err))
	}
}

func TestEmptyBufferRejectedLocally(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	_, err := c.UploadByBuffer(nil, "txt", nil)
	require.Error(t, err)
	assert.True(t, types.IsDataError(err))
}

func TestMissingLocalFileRejected(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	_, err := c.UploadByFilename(filepath.Join(t.TempDir(), "absent.bin"), nil)
	require.Error(t, err)
	assert.True(t, types.IsDataError(err))
}

func TestClusterIntrospection(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	g, err := c.ListOneGroup("group1")
	require.NoError(t, err)
	assert.Equal(t, "group1", g.GroupName)
	assert.Equal(t, uint64(512), g.FreeMB)

	groups, err := c.ListAllGroups()
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "group2", groups[1].GroupName)

	servers, err := c.ListServers("group1", "")
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "127.0.0.1", servers[0].IPAddr)

	require.NoError(t, c.ActiveTest())
}

func TestGetStoreServ(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	up, err := c.UploadByBuffer([]byte("x"), "txt", nil)
	require.NoError(t, err)
	srv, err := c.GetStoreServ(up.RemoteFileID().String())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", srv.IPAddr)
	assert.Equal(t, m.storagePort(), srv.Port)
}

func TestConcurrentFacadeOps(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	// Seed a file so readers and writers hit the same cached storage
	// client from different goroutines.
	seed, err := c.UploadByBuffer([]byte("seed"), "txt", nil)
	require.NoError(t, err)
	seedID := seed.RemoteFileID().String()

	var wg sync.WaitGroup
	errs := make(chan error, 8*20)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := c.UploadByBuffer([]byte("payload"), "txt", nil); err != nil {
					errs <- err
				}
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				down, err := c.DownloadToBuffer(seedID, 0, 0)
				if err != nil {
					errs <- err
					continue
				}
				if string(down.Content) != "seed" {
					errs <- types.NewDataError("unexpected content %q", down.Content)
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent op failed: %v", err)
	}
}

func TestTrackerPoolNotLeaked(t *testing.T) {
	m := newMockCluster(t)
	c := newTestClient(t, m)

	for i := 0; i < 20; i++ {
		_, err := c.UploadByBuffer([]byte("x"), "txt", nil)
		require.NoError(t, err)
	}
	created, inuse, idle := c.trackerPool.Stats()
	assert.Equal(t, 0, inuse, "no tracker connection may stay borrowed")
	assert.Equal(t, created, idle)
}
