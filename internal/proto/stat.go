package proto

import (
	"encoding/binary"

	"fdfs/types"
)

// Cluster introspection blocks returned by the tracker list commands.
// A list response body is a whole number of fixed-size blocks.

// PackGroupStat encodes one group block.
func PackGroupStat(g *types.GroupStat) []byte {
	buf := make([]byte, GroupStatBodyLen)
	writeFixed(buf, g.GroupName, GroupNameMaxLen+1)
	fields := []uint64{
		g.TotalMB, g.FreeMB, g.TrunkFreeMB, g.ServerCount,
		g.StoragePort, g.StorageHTTPPort, g.ActiveCount,
		g.CurrentWriteServer, g.StorePathCount, g.SubdirCountPerPath,
		g.CurrentTrunkFileID,
	}
	off := GroupNameMaxLen + 1
	for _, f := range fields {
		binary.BigEndian.PutUint64(buf[off:], f)
		off += 8
	}
	return buf
}

// UnpackGroupStats decodes a list-groups response body into its blocks.
func UnpackGroupStats(body []byte) ([]types.GroupStat, error) {
	if len(body)%GroupStatBodyLen != 0 {
		return nil, types.NewResponseError(0, "group list body is %d bytes, not a multiple of %d", len(body), GroupStatBodyLen)
	}
	stats := make([]types.GroupStat, 0, len(body)/GroupStatBodyLen)
	for off := 0; off < len(body); off += GroupStatBodyLen {
		blk := body[off : off+GroupStatBodyLen]
		g := types.GroupStat{GroupName: readFixed(blk[:GroupNameMaxLen+1])}
		fields := []*uint64{
			&g.TotalMB, &g.FreeMB, &g.TrunkFreeMB, &g.ServerCount,
			&g.StoragePort, &g.StorageHTTPPort, &g.ActiveCount,
			&g.CurrentWriteServer, &g.StorePathCount, &g.SubdirCountPerPath,
			&g.CurrentTrunkFileID,
		}
		p := GroupNameMaxLen + 1
		for _, f := range fields {
			*f = binary.BigEndian.Uint64(blk[p:])
			p += 8
		}
		stats = append(stats, g)
	}
	return stats, nil
}

func storageStatFields(s *types.StorageStat) []*uint64 {
	return []*uint64{
		&s.JoinTime, &s.UpTime, &s.TotalMB, &s.FreeMB, &s.UploadPriority,
		&s.StorePathCount, &s.SubdirCountPerPath, &s.CurrentWritePath,
		&s.StoragePort, &s.StorageHTTPPort,
		&s.TotalUploadCount, &s.SuccessUploadCount,
		&s.TotalDownloadCount, &s.SuccessDownloadCount,
		&s.TotalDeleteCount, &s.SuccessDeleteCount,
		&s.LastSourceUpdate, &s.LastSyncUpdate,
		&s.LastSyncedTimestamp, &s.LastHeartbeat,
	}
}

// PackStorageStat encodes one storage-server block.
func PackStorageStat(s *types.StorageStat) []byte {
	buf := make([]byte, StorageStatBodyLen)
	buf[0] = s.Status
	off := 1
	writeFixed(buf[off:], s.IPAddr, IPAddrWireLen)
	off += IPAddrWireLen
	writeFixed(buf[off:], s.DomainName, DomainNameLen)
	off += DomainNameLen
	writeFixed(buf[off:], s.SrcIPAddr, IPAddrWireLen)
	off += IPAddrWireLen
	writeFixed(buf[off:], s.Version, VersionLen)
	off += VersionLen
	stat := *s
	for _, f := range storageStatFields(&stat) {
		binary.BigEndian.PutUint64(buf[off:], *f)
		off += 8
	}
	if s.IsTrunkServer {
		buf[off] = 1
	}
	return buf
}

// UnpackStorageStats decodes a list-storage response body into its
// blocks.
func UnpackStorageStats(body []byte) ([]types.StorageStat, error) {
	if len(body)%StorageStatBodyLen != 0 {
		return nil, types.NewResponseError(0, "storage list body is %d bytes, not a multiple of %d", len(body), StorageStatBodyLen)
	}
	stats := make([]types.StorageStat, 0, len(body)/StorageStatBodyLen)
	for off := 0; off < len(body); off += StorageStatBodyLen {
		blk := body[off : off+StorageStatBodyLen]
		var s types.StorageStat
		s.Status = blk[0]
		p := 1
		s.IPAddr = readFixed(blk[p : p+IPAddrWireLen])
		p += IPAddrWireLen
		s.DomainName = readFixed(blk[p : p+DomainNameLen])
		p += DomainNameLen
		s.SrcIPAddr = readFixed(blk[p : p+IPAddrWireLen])
		p += IPAddrWireLen
		s.Version = readFixed(blk[p : p+VersionLen])
		p += VersionLen
		for _, f := range storageStatFields(&s) {
			*f = binary.BigEndian.Uint64(blk[p:])
			p += 8
		}
		s.IsTrunkServer = blk[p] != 0
		stats = append(stats, s)
	}
	return stats, nil
}
