// Package fdfs is a client for FastDFS-style clusters: trackers route
// each request to a storage node, storage nodes hold the bytes. The
// exported surface wraps the internal client; all wire handling lives
// under internal/.
package fdfs

import (
	"fdfs/config"
	"fdfs/internal/client"
)

// Client is the public handle. Safe for concurrent use; each
// concurrent operation borrows its own pooled connection.
type Client = client.Client

// Option configures a Client at construction.
type Option = client.Option

// Re-exported option constructors.
var (
	WithPicker     = client.WithPicker
	WithDialer     = client.WithDialer
	WithMaxConns   = client.WithMaxConns
	WithStorageTTL = client.WithStorageTTL
)

// Set-metadata flags.
const (
	MetadataOverwrite = client.MetadataOverwrite
	MetadataMerge     = client.MetadataMerge
)

// New builds a client from an in-memory configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	return client.New(cfg, opts...)
}

// NewFromFile builds a client from a client.conf path.
func NewFromFile(confPath string, opts ...Option) (*Client, error) {
	cfg, err := config.Load(confPath)
	if err != nil {
		return nil, err
	}
	return client.New(cfg, opts...)
}
