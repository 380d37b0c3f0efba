package stress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basalt-run/heaplab/buddy"
	"github.com/basalt-run/heaplab/tlsf"
	"github.com/basalt-run/heaplab/tracker"
)

func TestRunAgainstBuddyLeavesConsistentState(t *testing.T) {
	a := buddy.New(1 << 16)
	report := Run(context.Background(), a, Config{Operations: 500, Seed: 1}, nil)

	require.Equal(t, 500, report.Operations)
	require.NoError(t, a.Validate())

	stats := a.Stats()
	require.Equal(t, stats.TotalSpace, stats.AllocatedSpace+stats.FreeSpace)
}

func TestRunAgainstTLSFLeavesConsistentState(t *testing.T) {
	a := tlsf.New(1 << 16)
	report := Run(context.Background(), a, Config{Operations: 500, Seed: 2}, nil)

	require.Equal(t, 500, report.Operations)
	require.NoError(t, a.Validate())

	stats := a.Stats()
	require.Equal(t, stats.TotalSpace, stats.AllocatedSpace+stats.FreeSpace)
}

func TestRunAlignedAgainstTLSF(t *testing.T) {
	a := tlsf.New(1 << 16)
	Run(context.Background(), a, Config{Operations: 300, Seed: 3, Aligned: true}, nil)
	require.NoError(t, a.Validate())
}

func TestRunTracksSnapshots(t *testing.T) {
	a := buddy.New(4096)
	tr := tracker.New(tracker.Config{MaxHistory: 16})
	Run(context.Background(), a, Config{Operations: 200, Seed: 4, ProgressEvery: 20}, tr)

	require.NotEmpty(t, tr.History())
}

func TestRunStopsOnCancellation(t *testing.T) {
	a := buddy.New(4096)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := Run(ctx, a, Config{Operations: 1000, Seed: 5}, nil)
	require.Zero(t, report.Allocations)
	require.Zero(t, report.Deallocations)
}
