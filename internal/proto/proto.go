// Package proto implements the FastDFS wire protocol: the fixed
// 10-byte frame header and the per-command payload layouts exchanged
// with tracker and storage servers. All numeric fields are big-endian;
// names are fixed-width and null-padded. Every encoder here has a
// matching decoder and the pair round-trips exactly.
package proto

const (
	HeaderSize = 10

	GroupNameMaxLen  = 16
	IPAddrWireLen    = 15
	FileExtNameLen   = 6
	FilePrefixMaxLen = 16
	DomainNameLen    = 128
	VersionLen       = 6

	// tracker commands
	TRACKER_PROTO_CMD_SERVER_LIST_ONE_GROUP                 = 90
	TRACKER_PROTO_CMD_SERVER_LIST_ALL_GROUPS                = 91
	TRACKER_PROTO_CMD_SERVER_LIST_STORAGE                   = 92
	TRACKER_PROTO_CMD_RESP                                  = 100
	TRACKER_PROTO_CMD_SERVICE_QUERY_STORE_WITHOUT_GROUP_ONE = 101
	TRACKER_PROTO_CMD_SERVICE_QUERY_FETCH_ONE               = 102
	TRACKER_PROTO_CMD_SERVICE_QUERY_UPDATE                  = 103
	TRACKER_PROTO_CMD_SERVICE_QUERY_STORE_WITH_GROUP_ONE    = 104

	FDFS_PROTO_CMD_ACTIVE_TEST = 111

	// storage commands
	STORAGE_PROTO_CMD_UPLOAD_FILE          = 11
	STORAGE_PROTO_CMD_DELETE_FILE          = 12
	STORAGE_PROTO_CMD_SET_METADATA         = 13
	STORAGE_PROTO_CMD_DOWNLOAD_FILE        = 14
	STORAGE_PROTO_CMD_GET_METADATA         = 15
	STORAGE_PROTO_CMD_UPLOAD_SLAVE_FILE    = 21
	STORAGE_PROTO_CMD_QUERY_FILE_INFO      = 22
	STORAGE_PROTO_CMD_UPLOAD_APPENDER_FILE = 23
	STORAGE_PROTO_CMD_APPEND_FILE          = 24
	STORAGE_PROTO_CMD_MODIFY_FILE          = 34
	STORAGE_PROTO_CMD_TRUNCATE_FILE        = 36

	// set-metadata op flags
	STORAGE_SET_METADATA_FLAG_OVERWRITE = 'O'
	STORAGE_SET_METADATA_FLAG_MERGE     = 'M'

	// metadata block delimiters
	FDFS_FIELD_SEPARATOR  = '\x01' // between key and value
	FDFS_RECORD_SEPARATOR = '\x02' // between pairs

	// tracker query response body sizes
	QueryFetchBodyLen = GroupNameMaxLen + IPAddrWireLen + 8
	QueryStoreBodyLen = QueryFetchBodyLen + 1

	GroupStatBodyLen   = GroupNameMaxLen + 1 + 11*8
	StorageStatBodyLen = 1 + IPAddrWireLen + DomainNameLen + IPAddrWireLen +
		VersionLen + 20*8 + 1
)

// writeFixed copies s into a null-padded field of width n.
func writeFixed(dst []byte, s string, n int) {
	copy(dst[:n], s)
}

// readFixed trims the null padding off a fixed-width field.
func readFixed(src []byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}
