package lb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdfs/internal/conn"
	"fdfs/types"
)

var endpoints = []types.Endpoint{
	{Host: "10.0.0.1", Port: 22122},
	{Host: "10.0.0.2", Port: 22122},
	{Host: "10.0.0.3", Port: 22122},
}

func TestRegistry(t *testing.T) {
	require.NotNil(t, conn.Use("random"))
	require.NotNil(t, conn.Use("roundrobin"))
	assert.Nil(t, conn.Use("no-such-picker"))

	// Each Use returns a fresh instance so pools do not share state.
	a := conn.Use("roundrobin")
	b := conn.Use("roundrobin")
	a.Pick(endpoints)
	assert.Equal(t, endpoints[0], b.Pick(endpoints))
}

func TestRandomPickerStaysInSet(t *testing.T) {
	p := &RandomPicker{}
	for i := 0; i < 100; i++ {
		assert.Contains(t, endpoints, p.Pick(endpoints))
	}
}

func TestRoundRobinCycles(t *testing.T) {
	p := &RoundRobinPicker{}
	var got []types.Endpoint
	for i := 0; i < 6; i++ {
		got = append(got, p.Pick(endpoints))
	}
	want := append(append([]types.Endpoint{}, endpoints...), endpoints...)
	assert.Equal(t, want, got)
}
