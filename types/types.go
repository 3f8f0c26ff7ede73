package types

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is one tracker or storage server address. Immutable once
// built from configuration.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	return e.Addr()
}

// ParseEndpoint parses a "host:port" string.
func ParseEndpoint(s string) (Endpoint, error) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return Endpoint{}, NewConfigError("bad endpoint %q: %v", s, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return Endpoint{}, NewConfigError("bad port in endpoint %q", s)
	}
	return Endpoint{Host: host, Port: p}, nil
}

// RemoteFileID addresses one file in the cluster as the pair the
// tracker hands out: the group plus the storage-relative path.
type RemoteFileID struct {
	GroupName string
	Filename  string
}

func (r RemoteFileID) String() string {
	return r.GroupName + "/" + r.Filename
}

// SplitRemoteFileID parses a "group/relative-path" file id. The first
// slash separates group from path; the path may itself contain slashes.
func SplitRemoteFileID(fileID string) (RemoteFileID, error) {
	group, name, ok := strings.Cut(fileID, "/")
	if !ok || group == "" || name == "" {
		return RemoteFileID{}, NewDataError("invalid remote file id %q", fileID)
	}
	return RemoteFileID{GroupName: group, Filename: name}, nil
}

// StorageServer is a tracker resolution result: which storage node an
// operation must target, and for uploads which store path on it.
type StorageServer struct {
	GroupName      string
	IPAddr         string
	Port           int
	StorePathIndex byte
}

func (s StorageServer) Addr() string {
	return net.JoinHostPort(s.IPAddr, strconv.Itoa(s.Port))
}

// UploadResult describes a finished upload.
type UploadResult struct {
	GroupName      string
	RemoteFilename string
	FileSize       int64
	StorageIP      string
	LocalFilename  string
}

func (u *UploadResult) RemoteFileID() RemoteFileID {
	return RemoteFileID{GroupName: u.GroupName, Filename: u.RemoteFilename}
}

// DownloadResult describes a finished download. Content is set only by
// the buffer variant.
type DownloadResult struct {
	RemoteFileID  RemoteFileID
	Content       []byte
	DownloadSize  int64
	StorageIP     string
	LocalFilename string
}

// OpResult is the confirmation record for mutations that return no
// payload (delete, append, modify, truncate, set-metadata).
type OpResult struct {
	RemoteFileID RemoteFileID
	StorageIP    string
}

// GroupStat is one group block from a tracker list command.
type GroupStat struct {
	GroupName          string
	TotalMB            uint64
	FreeMB             uint64
	TrunkFreeMB        uint64
	ServerCount        uint64
	StoragePort        uint64
	StorageHTTPPort    uint64
	ActiveCount        uint64
	CurrentWriteServer uint64
	StorePathCount     uint64
	SubdirCountPerPath uint64
	CurrentTrunkFileID uint64
}

func (g *GroupStat) String() string {
	return fmt.Sprintf("group %s: %d/%d MB free, %d/%d servers active",
		g.GroupName, g.FreeMB, g.TotalMB, g.ActiveCount, g.ServerCount)
}

// StorageStat is one storage-server block from a tracker list-storage
// command.
type StorageStat struct {
	Status               byte
	IPAddr               string
	DomainName           string
	SrcIPAddr            string
	Version              string
	JoinTime             uint64
	UpTime               uint64
	TotalMB              uint64
	FreeMB               uint64
	UploadPriority       uint64
	StorePathCount       uint64
	SubdirCountPerPath   uint64
	CurrentWritePath     uint64
	StoragePort          uint64
	StorageHTTPPort      uint64
	TotalUploadCount     uint64
	SuccessUploadCount   uint64
	TotalDownloadCount   uint64
	SuccessDownloadCount uint64
	TotalDeleteCount     uint64
	SuccessDeleteCount   uint64
	LastSourceUpdate     uint64
	LastSyncUpdate       uint64
	LastSyncedTimestamp  uint64
	LastHeartbeat        uint64
	IsTrunkServer        bool
}
