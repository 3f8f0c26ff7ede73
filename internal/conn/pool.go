package conn

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"fdfs/types"
)

const connectAttempts = 3

// Config describes one pool: its candidate endpoints and limits.
type Config struct {
	Name      string
	Endpoints []types.Endpoint
	MaxConns  int

	ConnectTimeout time.Duration
	NetworkTimeout time.Duration

	Picker Picker // nil means the registered default
	Dialer Dialer // nil means net.DialTimeout
}

// Pool is a bounded set of connections to one logical endpoint set
// ("all trackers", or one storage node). Safe for concurrent use.
//
// Accounting invariant at rest: created == len(inuse) + len(idle),
// created <= MaxConns.
type Pool struct {
	mu      sync.Mutex
	cfg     Config
	created int
	idle    []*Conn
	inuse   map[*Conn]struct{}

	// gen stamps connections so ones released after Destroy are
	// recognized and dropped instead of re-pooled.
	gen uint64
}

// NewPool builds a pool. It opens no connections until Get.
func NewPool(cfg Config) (*Pool, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, types.NewConfigError("pool %q has no endpoints", cfg.Name)
	}
	if cfg.MaxConns <= 0 {
		return nil, types.NewConfigError("pool %q needs MaxConns > 0", cfg.Name)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.NetworkTimeout <= 0 {
		cfg.NetworkTimeout = 60 * time.Second
	}
	if cfg.Picker == nil {
		cfg.Picker = Use(DefaultPickerTag)
	}
	if cfg.Dialer == nil {
		cfg.Dialer = netDialer
	}
	return &Pool{cfg: cfg, inuse: make(map[*Conn]struct{})}, nil
}

// Get hands out an idle connection, dialing a new one when none is
// idle and the pool is under its limit.
func (p *Pool) Get() (*Conn, error) {
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.inuse[c] = struct{}{}
		p.mu.Unlock()
		return c, nil
	}
	if p.created >= p.cfg.MaxConns {
		p.mu.Unlock()
		return nil, types.NewConnectionError("", nil, "pool %q at capacity (%d connections)", p.cfg.Name, p.cfg.MaxConns)
	}
	// Reserve the slot before dialing so concurrent Gets cannot
	// overshoot MaxConns; roll back if every attempt fails.
	p.created++
	gen := p.gen
	p.mu.Unlock()

	c, err := p.dial(gen)
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		// Destroy ran while dialing; the reservation is gone with it.
		if c != nil {
			c.Close()
		}
		return nil, types.NewConnectionError("", err, "pool %q torn down", p.cfg.Name)
	}
	if err != nil {
		p.created--
		return nil, err
	}
	p.inuse[c] = struct{}{}
	return c, nil
}

// dial makes up to connectAttempts attempts, each against a freshly
// picked endpoint.
func (p *Pool) dial(gen uint64) (*Conn, error) {
	var lastErr error
	var lastAddr string
	for i := 0; i < connectAttempts; i++ {
		ep := p.cfg.Picker.Pick(p.cfg.Endpoints)
		lastAddr = ep.Addr()
		nc, err := p.cfg.Dialer(lastAddr, p.cfg.ConnectTimeout)
		if err != nil {
			log.Debugf("pool %s: connect %s failed (attempt %d/%d): %v",
				p.cfg.Name, lastAddr, i+1, connectAttempts, err)
			lastErr = err
			continue
		}
		return &Conn{nc: nc, addr: lastAddr, timeout: p.cfg.NetworkTimeout, gen: gen}, nil
	}
	return nil, types.NewConnectionError(lastAddr, lastErr, "connect failed after %d attempts", connectAttempts)
}

// Release returns a borrowed connection to the idle list. A connection
// from an older pool generation, or one marked broken by an I/O error,
// is closed and dropped instead.
func (p *Pool) Release(c *Conn) {
	if c == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c.gen != p.gen {
		log.Warnf("pool %s: dropping connection from torn-down generation", p.cfg.Name)
		c.Close()
		return
	}
	if _, ok := p.inuse[c]; !ok {
		return
	}
	if c.broken {
		delete(p.inuse, c)
		p.created--
		c.Close()
		return
	}
	delete(p.inuse, c)
	p.idle = append(p.idle, c)
}

// Remove discards a connection whose socket is suspect and frees its
// slot so Get can open a replacement.
func (p *Pool) Remove(c *Conn) {
	if c == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c.gen != p.gen {
		c.Close()
		return
	}
	if _, ok := p.inuse[c]; ok {
		delete(p.inuse, c)
		p.created--
	} else if i := p.idleIndex(c); i >= 0 {
		p.idle = append(p.idle[:i], p.idle[i+1:]...)
		p.created--
	}
	c.Close()
}

func (p *Pool) idleIndex(c *Conn) int {
	for i, ic := range p.idle {
		if ic == c {
			return i
		}
	}
	return -1
}

// Destroy closes every connection, idle and in-use, and resets the
// pool. Connections still borrowed are invalidated through the
// generation stamp; releasing them later is a silent drop.
func (p *Pool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for c := range p.inuse {
		c.Close()
	}
	for _, c := range p.idle {
		c.Close()
	}
	p.inuse = make(map[*Conn]struct{})
	p.idle = nil
	p.created = 0
	p.gen++
}

// Stats reports the accounting counters, for tests and introspection.
func (p *Pool) Stats() (created, inuse, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created, len(p.inuse), len(p.idle)
}
