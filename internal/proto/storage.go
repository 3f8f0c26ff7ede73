package proto

import (
	"encoding/binary"

	"fdfs/types"
)

// Storage command payload prefixes. Upload-family prefixes are followed
// on the wire by the file body, which the client streams separately so
// large files never sit in one buffer.

// PackUploadPrefix encodes the fixed head of an upload or
// upload-appender request: store path index, file size, extension.
func PackUploadPrefix(storePathIndex byte, fileSize int64, ext string) ([]byte, error) {
	if len(ext) > FileExtNameLen {
		return nil, types.NewDataError("file extension %q longer than %d", ext, FileExtNameLen)
	}
	buf := make([]byte, 1+8+FileExtNameLen)
	buf[0] = storePathIndex
	binary.BigEndian.PutUint64(buf[1:9], uint64(fileSize))
	writeFixed(buf[9:], ext, FileExtNameLen)
	return buf, nil
}

// UnpackUploadPrefix decodes an upload request head (mock-server and
// round-trip use).
func UnpackUploadPrefix(body []byte) (byte, int64, string, error) {
	if len(body) < 1+8+FileExtNameLen {
		return 0, 0, "", types.NewResponseError(0, "upload prefix is %d bytes, want %d", len(body), 1+8+FileExtNameLen)
	}
	return body[0], int64(binary.BigEndian.Uint64(body[1:9])), readFixed(body[9 : 9+FileExtNameLen]), nil
}

// PackSlavePrefix encodes the head of an upload-slave request: master
// filename length, file size, prefix name, extension, master filename.
func PackSlavePrefix(masterFilename, prefix, ext string, fileSize int64) ([]byte, error) {
	if len(prefix) == 0 || len(prefix) > FilePrefixMaxLen {
		return nil, types.NewDataError("slave prefix must be 1..%d bytes", FilePrefixMaxLen)
	}
	if len(ext) > FileExtNameLen {
		return nil, types.NewDataError("file extension %q longer than %d", ext, FileExtNameLen)
	}
	buf := make([]byte, 8+8+FilePrefixMaxLen+FileExtNameLen, 8+8+FilePrefixMaxLen+FileExtNameLen+len(masterFilename))
	binary.BigEndian.PutUint64(buf[:8], uint64(len(masterFilename)))
	binary.BigEndian.PutUint64(buf[8:16], uint64(fileSize))
	writeFixed(buf[16:], prefix, FilePrefixMaxLen)
	writeFixed(buf[16+FilePrefixMaxLen:], ext, FileExtNameLen)
	return append(buf, masterFilename...), nil
}

// UnpackSlavePrefix decodes an upload-slave request head plus master
// filename.
func UnpackSlavePrefix(body []byte) (master, prefix, ext string, fileSize int64, err error) {
	head := 8 + 8 + FilePrefixMaxLen + FileExtNameLen
	if len(body) < head {
		return "", "", "", 0, types.NewResponseError(0, "slave prefix is %d bytes, want at least %d", len(body), head)
	}
	masterLen := int(binary.BigEndian.Uint64(body[:8]))
	if len(body) < head+masterLen {
		return "", "", "", 0, types.NewResponseError(0, "slave prefix truncated: master filename needs %d bytes", masterLen)
	}
	fileSize = int64(binary.BigEndian.Uint64(body[8:16]))
	prefix = readFixed(body[16 : 16+FilePrefixMaxLen])
	ext = readFixed(body[16+FilePrefixMaxLen : head])
	master = string(body[head : head+masterLen])
	return master, prefix, ext, fileSize, nil
}

// PackDownload encodes a download request: offset, length (both zero
// means the whole file), group, filename.
func PackDownload(group, filename string, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, types.NewDataError("download offset/length must not be negative")
	}
	tail, err := PackGroupAndFilename(group, filename)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 16, 16+len(tail))
	binary.BigEndian.PutUint64(buf[:8], uint64(offset))
	binary.BigEndian.PutUint64(buf[8:16], uint64(length))
	return append(buf, tail...), nil
}

// UnpackDownload decodes a download request body.
func UnpackDownload(body []byte) (group, filename string, offset, length int64, err error) {
	if len(body) <= 16+GroupNameMaxLen {
		return "", "", 0, 0, types.NewResponseError(0, "download request is %d bytes", len(body))
	}
	offset = int64(binary.BigEndian.Uint64(body[:8]))
	length = int64(binary.BigEndian.Uint64(body[8:16]))
	group, filename, err = UnpackGroupAndFilename(body[16:])
	return group, filename, offset, length, err
}

// PackSetMetadata encodes a set-metadata request: filename length,
// metadata length, op flag, group, filename, metadata block.
func PackSetMetadata(group, filename string, metaBlock []byte, flag byte) ([]byte, error) {
	if flag != STORAGE_SET_METADATA_FLAG_OVERWRITE && flag != STORAGE_SET_METADATA_FLAG_MERGE {
		return nil, types.NewDataError("set-metadata flag must be 'O' or 'M', got %q", flag)
	}
	tail, err := PackGroupAndFilename(group, filename)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 17, 17+len(tail)+len(metaBlock))
	binary.BigEndian.PutUint64(buf[:8], uint64(len(filename)))
	binary.BigEndian.PutUint64(buf[8:16], uint64(len(metaBlock)))
	buf[16] = flag
	buf = append(buf, tail...)
	return append(buf, metaBlock...), nil
}

// UnpackSetMetadata decodes a set-metadata request body.
func UnpackSetMetadata(body []byte) (group, filename string, metaBlock []byte, flag byte, err error) {
	if len(body) < 17+GroupNameMaxLen {
		return "", "", nil, 0, types.NewResponseError(0, "set-metadata request is %d bytes", len(body))
	}
	nameLen := int(binary.BigEndian.Uint64(body[:8]))
	metaLen := int(binary.BigEndian.Uint64(body[8:16]))
	flag = body[16]
	rest := body[17:]
	if len(rest) != GroupNameMaxLen+nameLen+metaLen {
		return "", "", nil, 0, types.NewResponseError(0, "set-metadata request declares %d+%d bytes, carries %d", nameLen, metaLen, len(rest)-GroupNameMaxLen)
	}
	group = readFixed(rest[:GroupNameMaxLen])
	filename = string(rest[GroupNameMaxLen : GroupNameMaxLen+nameLen])
	metaBlock = rest[GroupNameMaxLen+nameLen:]
	return group, filename, metaBlock, flag, nil
}

// PackAppend encodes the head of an append request: filename length,
// data length, filename. The data follows on the wire.
func PackAppend(appenderFilename string, dataLen int64) []byte {
	buf := make([]byte, 16, 16+len(appenderFilename))
	binary.BigEndian.PutUint64(buf[:8], uint64(len(appenderFilename)))
	binary.BigEndian.PutUint64(buf[8:16], uint64(dataLen))
	return append(buf, appenderFilename...)
}

// UnpackAppend decodes an append request head plus filename; the
// remainder of the body is the appended data.
func UnpackAppend(body []byte) (filename string, data []byte, err error) {
	if len(body) < 16 {
		return "", nil, types.NewResponseError(0, "append request is %d bytes", len(body))
	}
	nameLen := int(binary.BigEndian.Uint64(body[:8]))
	dataLen := int(binary.BigEndian.Uint64(body[8:16]))
	if len(body) != 16+nameLen+dataLen {
		return "", nil, types.NewResponseError(0, "append request declares %d+%d bytes, carries %d", nameLen, dataLen, len(body)-16)
	}
	return string(body[16 : 16+nameLen]), body[16+nameLen:], nil
}

// PackModify encodes the head of a modify request: filename length,
// offset, data length, filename. The data follows on the wire.
func PackModify(appenderFilename string, offset, dataLen int64) ([]byte, error) {
	if offset < 0 {
		return nil, types.NewDataError("modify offset must not be negative")
	}
	buf := make([]byte, 24, 24+len(appenderFilename))
	binary.BigEndian.PutUint64(buf[:8], uint64(len(appenderFilename)))
	binary.BigEndian.PutUint64(buf[8:16], uint64(offset))
	binary.BigEndian.PutUint64(buf[16:24], uint64(dataLen))
	return append(buf, appenderFilename...), nil
}

// UnpackModify decodes a modify request head plus filename; the
// remainder is the replacement data.
func UnpackModify(body []byte) (filename string, offset int64, data []byte, err error) {
	if len(body) < 24 {
		return "", 0, nil, types.NewResponseError(0, "modify request is %d bytes", len(body))
	}
	nameLen := int(binary.BigEndian.Uint64(body[:8]))
	offset = int64(binary.BigEndian.Uint64(body[8:16]))
	dataLen := int(binary.BigEndian.Uint64(body[16:24]))
	if len(body) != 24+nameLen+dataLen {
		return "", 0, nil, types.NewResponseError(0, "modify request declares %d+%d bytes, carries %d", nameLen, dataLen, len(body)-24)
	}
	return string(body[24 : 24+nameLen]), offset, body[24+nameLen:], nil
}

// PackTruncate encodes a truncate request: filename length, truncated
// size, filename.
func PackTruncate(appenderFilename string, truncatedSize int64) ([]byte, error) {
	if truncatedSize < 0 {
		return nil, types.NewDataError("truncate size must not be negative")
	}
	buf := make([]byte, 16, 16+len(appenderFilename))
	binary.BigEndian.PutUint64(buf[:8], uint64(len(appenderFilename)))
	binary.BigEndian.PutUint64(buf[8:16], uint64(truncatedSize))
	return append(buf, appenderFilename...), nil
}

// UnpackTruncate decodes a truncate request body.
func UnpackTruncate(body []byte) (filename string, truncatedSize int64, err error) {
	if len(body) < 16 {
		return "", 0, types.NewResponseError(0, "truncate request is %d bytes", len(body))
	}
	nameLen := int(binary.BigEndian.Uint64(body[:8]))
	if len(body) != 16+nameLen {
		return "", 0, types.NewResponseError(0, "truncate request declares %d bytes, carries %d", nameLen, len(body)-16)
	}
	return string(body[16:]), int64(binary.BigEndian.Uint64(body[8:16])), nil
}
