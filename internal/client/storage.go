package client

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fdfs/internal/conn"
	"fdfs/internal/proto"
	"fdfs/types"
)

// StorageClient runs storage-node commands against one resolved
// endpoint. The facade keeps one per node so repeated operations reuse
// the node's connection pool. It is immutable after construction;
// per-resolution data (store path index, group) travels with each
// call, so concurrent callers can share one client.
type StorageClient struct {
	ip   string
	pool *conn.Pool
}

// NewStorageClient builds a client for one storage server. The pool
// config's endpoints are overwritten with the resolved node.
func NewStorageClient(srv types.StorageServer, pcfg conn.Config) (*StorageClient, error) {
	pcfg.Name = "storage:" + srv.Addr()
	pcfg.Endpoints = []types.Endpoint{{Host: srv.IPAddr, Port: srv.Port}}
	pool, err := conn.NewPool(pcfg)
	if err != nil {
		return nil, err
	}
	return &StorageClient{ip: srv.IPAddr, pool: pool}, nil
}

// Close tears down the node's pool.
func (sc *StorageClient) Close() {
	sc.pool.Destroy()
}

// extName derives the extension field from a local filename, without
// the dot.
func extName(filename string) string {
	return strings.TrimPrefix(filepath.Ext(filename), ".")
}

// upload runs one upload-family exchange and, when metadata rides
// along, a follow-up set-metadata exchange on its own connection.
func (sc *StorageClient) upload(cmd byte, prefix []byte, body io.Reader, bodyLen int64, meta map[string]string) (*types.UploadResult, error) {
	res, err := sc.uploadExchange(cmd, prefix, body, bodyLen)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if _, err := sc.SetMetadata(res.GroupName, res.RemoteFilename, meta, proto.STORAGE_SET_METADATA_FLAG_OVERWRITE); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// uploadExchange is the wire half: fixed prefix, streamed body,
// group+filename response.
func (sc *StorageClient) uploadExchange(cmd byte, prefix []byte, body io.Reader, bodyLen int64) (res *types.UploadResult, err error) {
	c, err := sc.pool.Get()
	if err != nil {
		return nil, err
	}
	defer func() { done(sc.pool, c, err) }()

	if err = sendFrame(c, cmd, prefix, body, bodyLen); err != nil {
		return nil, err
	}
	hdr, err := recvHeader(c)
	if err != nil {
		return nil, err
	}
	respBody, err := recvBody(c, hdr.PkgLen)
	if err != nil {
		return nil, err
	}
	group, filename, err := proto.UnpackGroupAndFilename(respBody)
	if err != nil {
		return nil, err
	}
	return &types.UploadResult{
		GroupName:      group,
		RemoteFilename: filename,
		FileSize:       bodyLen,
		StorageIP:      sc.ip,
	}, nil
}

// UploadByBuffer stores a new file from memory on the store path the
// tracker resolved.
func (sc *StorageClient) UploadByBuffer(pathIndex byte, buf []byte, ext string, meta map[string]string) (*types.UploadResult, error) {
	return sc.uploadNew(proto.STORAGE_PROTO_CMD_UPLOAD_FILE, pathIndex, bytes.NewReader(buf), int64(len(buf)), ext, meta)
}

// UploadByReader stores a new file from a stream of known size.
func (sc *StorageClient) UploadByReader(pathIndex byte, r io.Reader, size int64, ext string, meta map[string]string) (*types.UploadResult, error) {
	return sc.uploadNew(proto.STORAGE_PROTO_CMD_UPLOAD_FILE, pathIndex, r, size, ext, meta)
}

// UploadByFilename stores a new file from the local filesystem.
func (sc *StorageClient) UploadByFilename(pathIndex byte, local string, meta map[string]string) (*types.UploadResult, error) {
	res, err := sc.uploadLocal(proto.STORAGE_PROTO_CMD_UPLOAD_FILE, pathIndex, local, meta)
	if err != nil {
		return nil, err
	}
	res.LocalFilename = local
	return res, nil
}

// UploadAppenderByBuffer stores a new appender file from memory.
func (sc *StorageClient) UploadAppenderByBuffer(pathIndex byte, buf []byte, ext string, meta map[string]string) (*types.UploadResult, error) {
	return sc.uploadNew(proto.STORAGE_PROTO_CMD_UPLOAD_APPENDER_FILE, pathIndex, bytes.NewReader(buf), int64(len(buf)), ext, meta)
}

// UploadAppenderByReader stores a new appender file from a stream.
func (sc *StorageClient) UploadAppenderByReader(pathIndex byte, r io.Reader, size int64, ext string, meta map[string]string) (*types.UploadResult, error) {
	return sc.uploadNew(proto.STORAGE_PROTO_CMD_UPLOAD_APPENDER_FILE, pathIndex, r, size, ext, meta)
}

// UploadAppenderByFilename stores a new appender file from the local
// filesystem.
func (sc *StorageClient) UploadAppenderByFilename(pathIndex byte, local string, meta map[string]string) (*types.UploadResult, error) {
	res, err := sc.uploadLocal(proto.STORAGE_PROTO_CMD_UPLOAD_APPENDER_FILE, pathIndex, local, meta)
	if err != nil {
		return nil, err
	}
	res.LocalFilename = local
	return res, nil
}

func (sc *StorageClient) uploadNew(cmd, pathIndex byte, body io.Reader, size int64, ext string, meta map[string]string) (*types.UploadResult, error) {
	prefix, err := proto.PackUploadPrefix(pathIndex, size, ext)
	if err != nil {
		return nil, err
	}
	return sc.upload(cmd, prefix, body, size, meta)
}

func (sc *StorageClient) uploadLocal(cmd, pathIndex byte, local string, meta map[string]string) (*types.UploadResult, error) {
	f, err := os.Open(local)
	if err != nil {
		return nil, types.NewDataError("cannot open %s: %v", local, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, types.NewDataError("cannot stat %s: %v", local, err)
	}
	return sc.uploadNew(cmd, pathIndex, f, fi.Size(), extName(local), meta)
}

// UploadSlaveByBuffer stores a companion file next to an existing
// master file, from memory.
func (sc *StorageClient) UploadSlaveByBuffer(buf []byte, masterFilename, prefix, ext string, meta map[string]string) (*types.UploadResult, error) {
	head, err := proto.PackSlavePrefix(masterFilename, prefix, ext, int64(len(buf)))
	if err != nil {
		return nil, err
	}
	return sc.upload(proto.STORAGE_PROTO_CMD_UPLOAD_SLAVE_FILE, head, bytes.NewReader(buf), int64(len(buf)), meta)
}

// UploadSlaveByFilename stores a companion file next to an existing
// master file, from the local filesystem.
func (sc *StorageClient) UploadSlaveByFilename(local, masterFilename, prefix string, meta map[string]string) (*types.UploadResult, error) {
	f, err := os.Open(local)
	if err != nil {
		return nil, types.NewDataError("cannot open %s: %v", local, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, types.NewDataError("cannot stat %s: %v", local, err)
	}
	head, err := proto.PackSlavePrefix(masterFilename, prefix, extName(local), fi.Size())
	if err != nil {
		return nil, err
	}
	res, err := sc.upload(proto.STORAGE_PROTO_CMD_UPLOAD_SLAVE_FILE, head, f, fi.Size(), meta)
	if err != nil {
		return nil, err
	}
	res.LocalFilename = local
	return res, nil
}

// DownloadToWriter streams a download into w and returns the number of
// bytes received. offset and length of zero mean the whole file.
func (sc *StorageClient) DownloadToWriter(w io.Writer, group, remoteFilename string, offset, length int64) (n int64, err error) {
	payload, err := proto.PackDownload(group, remoteFilename, offset, length)
	if err != nil {
		return 0, err
	}
	c, err := sc.pool.Get()
	if err != nil {
		return 0, err
	}
	defer func() { done(sc.pool, c, err) }()

	if err = sendFrame(c, proto.STORAGE_PROTO_CMD_DOWNLOAD_FILE, payload, nil, 0); err != nil {
		return 0, err
	}
	hdr, err := recvHeader(c)
	if err != nil {
		return 0, err
	}
	n, err = io.CopyN(w, c, int64(hdr.PkgLen))
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = types.NewResponseError(0, "protocol desync: declared %d payload bytes, got %d", hdr.PkgLen, n)
		} else {
			err = types.NewConnectionError(c.Addr(), err, "stream download body")
		}
		return 0, err
	}
	return n, nil
}

// DownloadToBuffer downloads a whole file or a byte range into memory.
func (sc *StorageClient) DownloadToBuffer(group, remoteFilename string, offset, length int64) (*types.DownloadResult, error) {
	var buf bytes.Buffer
	n, err := sc.DownloadToWriter(&buf, group, remoteFilename, offset, length)
	if err != nil {
		return nil, err
	}
	return &types.DownloadResult{
		RemoteFileID: types.RemoteFileID{GroupName: group, Filename: remoteFilename},
		Content:      buf.Bytes(),
		DownloadSize: n,
		StorageIP:    sc.ip,
	}, nil
}

// DownloadToFile downloads into a local file. A failed download leaves
// no partial file behind.
func (sc *StorageClient) DownloadToFile(local, group, remoteFilename string, offset, length int64) (*types.DownloadResult, error) {
	f, err := os.Create(local)
	if err != nil {
		return nil, types.NewDataError("cannot create %s: %v", local, err)
	}
	n, err := sc.DownloadToWriter(f, group, remoteFilename, offset, length)
	cerr := f.Close()
	if err == nil && cerr != nil {
		err = types.NewDataError("cannot write %s: %v", local, cerr)
	}
	if err != nil {
		os.Remove(local)
		return nil, err
	}
	return &types.DownloadResult{
		RemoteFileID:  types.RemoteFileID{GroupName: group, Filename: remoteFilename},
		DownloadSize:  n,
		StorageIP:     sc.ip,
		LocalFilename: local,
	}, nil
}

// statusOnly runs an exchange whose success response carries no
// payload worth decoding.
func (sc *StorageClient) statusOnly(cmd byte, payload []byte, body io.Reader, bodyLen int64) (err error) {
	c, err := sc.pool.Get()
	if err != nil {
		return err
	}
	defer func() { done(sc.pool, c, err) }()

	if err = sendFrame(c, cmd, payload, body, bodyLen); err != nil {
		return err
	}
	hdr, err := recvHeader(c)
	if err != nil {
		return err
	}
	// Drain a nonempty success body to keep the frame boundary clean.
	_, err = recvBody(c, hdr.PkgLen)
	return err
}

// DeleteFile removes a file from the node.
func (sc *StorageClient) DeleteFile(group, remoteFilename string) (*types.OpResult, error) {
	payload, err := proto.PackGroupAndFilename(group, remoteFilename)
	if err != nil {
		return nil, err
	}
	if err := sc.statusOnly(proto.STORAGE_PROTO_CMD_DELETE_FILE, payload, nil, 0); err != nil {
		return nil, err
	}
	return sc.opResult(group, remoteFilename), nil
}

// AppendByBuffer appends memory contents to an appender file.
func (sc *StorageClient) AppendByBuffer(buf []byte, group, appenderFilename string) (*types.OpResult, error) {
	return sc.appendReader(bytes.NewReader(buf), int64(len(buf)), group, appenderFilename)
}

// AppendByFilename appends a local file's contents to an appender
// file.
func (sc *StorageClient) AppendByFilename(local, group, appenderFilename string) (*types.OpResult, error) {
	f, size, err := openLocal(local)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sc.appendReader(f, size, group, appenderFilename)
}

func (sc *StorageClient) appendReader(r io.Reader, size int64, group, appenderFilename string) (*types.OpResult, error) {
	payload := proto.PackAppend(appenderFilename, size)
	if err := sc.statusOnly(proto.STORAGE_PROTO_CMD_APPEND_FILE, payload, r, size); err != nil {
		return nil, err
	}
	return sc.opResult(group, appenderFilename), nil
}

// ModifyByBuffer overwrites a byte range of an appender file from
// memory.
func (sc *StorageClient) ModifyByBuffer(buf []byte, group, appenderFilename string, offset int64) (*types.OpResult, error) {
	return sc.modifyReader(bytes.NewReader(buf), int64(len(buf)), group, appenderFilename, offset)
}

// ModifyByFilename overwrites a byte range of an appender file from a
// local file.
func (sc *StorageClient) ModifyByFilename(local, group, appenderFilename string, offset int64) (*types.OpResult, error) {
	f, size, err := openLocal(local)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sc.modifyReader(f, size, group, appenderFilename, offset)
}

func (sc *StorageClient) modifyReader(r io.Reader, size int64, group, appenderFilename string, offset int64) (*types.OpResult, error) {
	payload, err := proto.PackModify(appenderFilename, offset, size)
	if err != nil {
		return nil, err
	}
	if err := sc.statusOnly(proto.STORAGE_PROTO_CMD_MODIFY_FILE, payload, r, size); err != nil {
		return nil, err
	}
	return sc.opResult(group, appenderFilename), nil
}

// TruncateFile truncates an appender file to the given size.
func (sc *StorageClient) TruncateFile(group, appenderFilename string, truncatedSize int64) (*types.OpResult, error) {
	payload, err := proto.PackTruncate(appenderFilename, truncatedSize)
	if err != nil {
		return nil, err
	}
	if err := sc.statusOnly(proto.STORAGE_PROTO_CMD_TRUNCATE_FILE, payload, nil, 0); err != nil {
		return nil, err
	}
	return sc.opResult(group, appenderFilename), nil
}

// GetMetadata fetches a file's metadata map.
func (sc *StorageClient) GetMetadata(group, remoteFilename string) (meta map[string]string, err error) {
	payload, err := proto.PackGroupAndFilename(group, remoteFilename)
	if err != nil {
		return nil, err
	}
	c, err := sc.pool.Get()
	if err != nil {
		return nil, err
	}
	defer func() { done(sc.pool, c, err) }()

	body, err := exchange(c, proto.STORAGE_PROTO_CMD_GET_METADATA, payload)
	if err != nil {
		return nil, err
	}
	return proto.UnpackMetadata(body)
}

// SetMetadata replaces or merges a file's metadata. Any nonzero status
// surfaces as a ResponseError carrying the code.
func (sc *StorageClient) SetMetadata(group, remoteFilename string, meta map[string]string, flag byte) (*types.OpResult, error) {
	block, err := proto.PackMetadata(meta)
	if err != nil {
		return nil, err
	}
	payload, err := proto.PackSetMetadata(group, remoteFilename, block, flag)
	if err != nil {
		return nil, err
	}
	if err := sc.statusOnly(proto.STORAGE_PROTO_CMD_SET_METADATA, payload, nil, 0); err != nil {
		return nil, err
	}
	return sc.opResult(group, remoteFilename), nil
}

func (sc *StorageClient) opResult(group, filename string) *types.OpResult {
	return &types.OpResult{
		RemoteFileID: types.RemoteFileID{GroupName: group, Filename: filename},
		StorageIP:    sc.ip,
	}
}

func openLocal(local string) (*os.File, int64, error) {
	f, err := os.Open(local)
	if err != nil {
		return nil, 0, types.NewDataError("cannot open %s: %v", local, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, types.NewDataError("cannot stat %s: %v", local, err)
	}
	return f, fi.Size(), nil
}
