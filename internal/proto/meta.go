package proto

import (
	"strings"

	"fdfs/types"
)

// PackMetadata flattens a metadata map into the delimited wire block:
// key \x01 value pairs joined by \x02. Keys and values must not contain
// either delimiter; that is a protocol constraint, not a client choice.
func PackMetadata(meta map[string]string) ([]byte, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	var sb strings.Builder
	first := true
	for k, v := range meta {
		if strings.ContainsAny(k, "\x01\x02") || strings.ContainsAny(v, "\x01\x02") {
			return nil, types.NewDataError("metadata key/value must not contain \\x01 or \\x02")
		}
		if !first {
			sb.WriteByte(FDFS_RECORD_SEPARATOR)
		}
		first = false
		sb.WriteString(k)
		sb.WriteByte(FDFS_FIELD_SEPARATOR)
		sb.WriteString(v)
	}
	return []byte(sb.String()), nil
}

// UnpackMetadata decodes a metadata wire block. An empty block is an
// empty map.
func UnpackMetadata(block []byte) (map[string]string, error) {
	meta := make(map[string]string)
	if len(block) == 0 {
		return meta, nil
	}
	for _, rec := range strings.Split(string(block), string(rune(FDFS_RECORD_SEPARATOR))) {
		k, v, ok := strings.Cut(rec, string(rune(FDFS_FIELD_SEPARATOR)))
		if !ok {
			return nil, types.NewResponseError(0, "malformed metadata record %q", rec)
		}
		meta[k] = v
	}
	return meta, nil
}
