// Package lb holds the endpoint pickers selectable by tag. Importing
// it registers them.
package lb

import (
	"math/rand"

	"fdfs/internal/conn"
	"fdfs/types"
)

func init() {
	conn.Register("random", func() conn.Picker { return &RandomPicker{} })
}

// RandomPicker picks uniformly at random, the stock FastDFS client
// behavior for multi-tracker setups.
type RandomPicker struct{}

func (rp *RandomPicker) Pick(endpoints []types.Endpoint) types.Endpoint {
	return endpoints[rand.Intn(len(endpoints))]
}

func (rp *RandomPicker) Tag() string {
	return "random"
}
