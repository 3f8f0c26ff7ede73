package lb

import (
	"sync"

	"fdfs/internal/conn"
	"fdfs/types"
)

func init() {
	conn.Register("roundrobin", func() conn.Picker { return &RoundRobinPicker{} })
}

// RoundRobinPicker walks the candidate list in order, which spreads
// connections evenly and makes endpoint choice deterministic.
type RoundRobinPicker struct {
	mu   sync.Mutex
	next int
}

func (rr *RoundRobinPicker) Pick(endpoints []types.Endpoint) types.Endpoint {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if rr.next >= len(endpoints) {
		rr.next = 0
	}
	ep := endpoints[rr.next]
	rr.next++
	return ep
}

func (rr *RoundRobinPicker) Tag() string {
	return "roundrobin"
}
