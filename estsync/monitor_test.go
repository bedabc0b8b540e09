package estsync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusMonitorEdgeTrigger(t *testing.T) {
	m := NewStatusMonitor(false)
	require.False(t, m.Online())

	var fired int
	m.OnOnline(func() { fired++ })

	m.Set(true)
	require.True(t, m.Online())
	require.Equal(t, 1, fired)

	// Repeated online reports are not an edge.
	m.Set(true)
	require.Equal(t, 1, fired)

	// Going offline does not fire; coming back does.
	m.Set(false)
	require.Equal(t, 1, fired)
	m.Set(true)
	require.Equal(t, 2, fired)
}

func TestStatusMonitorStartsOnline(t *testing.T) {
	m := NewStatusMonitor(true)
	var fired int
	m.OnOnline(func() { fired++ })

	// Already online: no edge until a full offline/online cycle.
	m.Set(true)
	require.Equal(t, 0, fired)
	m.Set(false)
	m.Set(true)
	require.Equal(t, 1, fired)
}

func TestStatusMonitorCancel(t *testing.T) {
	m := NewStatusMonitor(false)

	var first, second int
	cancel := m.OnOnline(func() { first++ })
	m.OnOnline(func() { second++ })

	cancel()
	m.Set(true)
	require.Equal(t, 0, first)
	require.Equal(t, 1, second)

	cancel() // repeat is harmless
}
