// Package config loads FastDFS-style client.conf files. The format is
// the stock INI layout shipped with the C client: repeated
// tracker_server lines (or one comma-separated line), timeouts in
// seconds.
package config

import (
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"fdfs/types"
)

const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultNetworkTimeout = 60 * time.Second
	DefaultMaxConns       = 10
)

type Config struct {
	// TrackerServers are the candidate tracker endpoints. A new
	// connection picks one of them; more than one address gives
	// availability, not fan-out.
	TrackerServers []types.Endpoint

	// ConnectTimeout bounds each TCP connect attempt.
	ConnectTimeout time.Duration

	// NetworkTimeout bounds each socket read or write.
	NetworkTimeout time.Duration

	// MaxConns bounds connections per pool (per tracker set, and per
	// storage endpoint).
	MaxConns int
}

// Load reads a client.conf file.
func Load(path string) (*Config, error) {
	// ShadowLoad keeps repeated tracker_server keys instead of
	// overwriting them.
	f, err := ini.ShadowLoad(path)
	if err != nil {
		return nil, types.NewConfigError("cannot read %s: %v", path, err)
	}
	sec := f.Section("")

	cfg := &Config{
		ConnectTimeout: DefaultConnectTimeout,
		NetworkTimeout: DefaultNetworkTimeout,
		MaxConns:       DefaultMaxConns,
	}
	if k, err := sec.GetKey("connect_timeout"); err == nil {
		if n, err := k.Int(); err == nil && n > 0 {
			cfg.ConnectTimeout = time.Duration(n) * time.Second
		}
	}
	if k, err := sec.GetKey("network_timeout"); err == nil {
		if n, err := k.Int(); err == nil && n > 0 {
			cfg.NetworkTimeout = time.Duration(n) * time.Second
		}
	}

	k, err := sec.GetKey("tracker_server")
	if err != nil {
		return nil, types.NewConfigError("no tracker_server in %s", path)
	}
	for _, line := range k.ValueWithShadows() {
		for _, addr := range strings.Split(line, ",") {
			if strings.TrimSpace(addr) == "" {
				continue
			}
			ep, err := types.ParseEndpoint(addr)
			if err != nil {
				return nil, err
			}
			cfg.TrackerServers = append(cfg.TrackerServers, ep)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks a programmatically built Config and fills defaults.
func (c *Config) Validate() error {
	if len(c.TrackerServers) == 0 {
		return types.NewConfigError("no tracker endpoints configured")
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.NetworkTimeout <= 0 {
		c.NetworkTimeout = DefaultNetworkTimeout
	}
	if c.MaxConns <= 0 {
		c.MaxConns = DefaultMaxConns
	}
	return nil
}
