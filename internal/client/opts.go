package client

import (
	"time"

	"fdfs/internal/conn"
)

type Option func(*options)

type options struct {
	pickerTag  string
	dialer     conn.Dialer
	maxConns   int
	storageTTL time.Duration
}

func (o *options) init(opts ...Option) {
	o.pickerTag = conn.DefaultPickerTag
	o.storageTTL = 30 * time.Minute
	for _, opt := range opts {
		opt(o)
	}
}

// WithPicker selects the endpoint-selection strategy by registered
// tag. Unknown tags fall back to the default.
func WithPicker(tag string) Option {
	return func(o *options) {
		if conn.Use(tag) != nil {
			o.pickerTag = tag
		}
	}
}

// WithDialer swaps the transport dialer, mainly for tests.
func WithDialer(d conn.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithMaxConns overrides the configured per-pool connection bound.
func WithMaxConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConns = n
		}
	}
}

// WithStorageTTL sets how long an unused storage client keeps its pool
// before eviction closes it.
func WithStorageTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.storageTTL = d
		}
	}
}
