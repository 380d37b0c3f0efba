package buddy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basalt-run/heaplab/memlayout"
)

// B1: alloc(100) -> offset 0, block size 128; alloc(50) -> offset 128,
// block size 64; freeing both coalesces the arena back to a single block.
func TestScenarioB1(t *testing.T) {
	a := New(1024)

	p0, err := a.Alloc(100, nil)
	require.NoError(t, err)
	require.Equal(t, 0, p0)
	require.Equal(t, 128, blockSizeAt(t, a, p0))

	p1, err := a.Alloc(50, nil)
	require.NoError(t, err)
	require.Equal(t, 128, p1)
	require.Equal(t, 64, blockSizeAt(t, a, p1))

	require.NoError(t, a.Free(p0))
	require.NoError(t, a.Free(p1))

	require.NoError(t, a.Validate())
	require.Len(t, a.blocks, 1)
	require.Equal(t, 1024, a.blocks[0].Size)
	require.True(t, a.blocks[0].Free)
}

// B2: fill an arena with MIN-sized blocks, then free every other one in
// insertion order. Buddies alternate allocated/free so nothing coalesces,
// and external fragmentation must be strictly positive.
func TestScenarioB2(t *testing.T) {
	a := New(2048)

	offsets := make([]int, 0, 128)
	for i := 0; i < 128; i++ {
		off, err := a.Alloc(MinBlockSize, nil)
		require.NoError(t, err)
		offsets = append(offsets, off)
	}
	require.NoError(t, a.Validate())

	for i, off := range offsets {
		if i%2 == 0 {
			require.NoError(t, a.Free(off))
		}
	}
	require.NoError(t, a.Validate())

	stats := a.Stats()
	require.Greater(t, stats.ExternalFragmentation, 0.0)
	require.LessOrEqual(t, stats.ExternalFragmentation, 1.0)
}

// B3: an arena too small for the request raises OutOfMemory.
func TestScenarioB3(t *testing.T) {
	a := New(64)
	_, err := a.Alloc(65, nil)
	require.ErrorIs(t, err, memlayout.ErrOutOfMemory)
}

// X1: freeing an offset that was never returned by Alloc/AlignAlloc fails
// with InvalidFree.
func TestScenarioX1(t *testing.T) {
	a := New(1024)
	err := a.Free(512)
	require.ErrorIs(t, err, memlayout.ErrInvalidFree)
}

// Offset 0 is an ordinary buddy address, so freeing it on a fresh arena
// (where the block at 0 is free) is rejected like any other invalid free.
func TestFreeZeroOnFreshArenaIsInvalid(t *testing.T) {
	a := New(1024)
	require.ErrorIs(t, a.Free(0), memlayout.ErrInvalidFree)
}

func TestAllocZeroIsNoop(t *testing.T) {
	a := New(1024)
	off, err := a.Alloc(0, nil)
	require.NoError(t, err)
	require.Equal(t, 0, off)
	require.Equal(t, 0, a.Stats().AllocatedSpace)
}

// Round-trip invariant: a live allocation frees exactly once; a second
// free on the same offset fails.
func TestRoundTripDoubleFreeIsInvalid(t *testing.T) {
	a := New(256)
	off, err := a.Alloc(32, nil)
	require.NoError(t, err)
	require.NoError(t, a.Free(off))
	err = a.Free(off)
	require.ErrorIs(t, err, memlayout.ErrInvalidFree)
}

// Buddy invariant: every live block's offset is a multiple of its own
// size, and its size is a power of two within [MIN, N].
func TestBuddyInvariantHoldsAfterMixedTraffic(t *testing.T) {
	a := New(4096)
	var live []int
	sizes := []int{10, 33, 100, 500, 7, 250, 1}
	for _, s := range sizes {
		off, err := a.Alloc(s, nil)
		require.NoError(t, err)
		live = append(live, off)
	}
	require.NoError(t, a.Free(live[1]))
	require.NoError(t, a.Free(live[3]))

	for _, b := range a.blocks {
		require.Zero(t, b.Offset%b.Size)
		require.NoError(t, memlayout.CheckPow2(b.Size))
		require.GreaterOrEqual(t, b.Size, MinBlockSize)
		require.LessOrEqual(t, b.Size, 4096)
	}
	require.NoError(t, a.Validate())
}

// Alignment law: an aligned allocation's returned offset is a multiple of
// max(nextPow2(size), MIN).
func TestAlignAllocLaw(t *testing.T) {
	a := New(4096)
	// Consume the low end with a non-power-of-two request first; buddy's
	// self-alignment still leaves the next fitting free block on a
	// boundary of its own size.
	_, err := a.Alloc(48, nil)
	require.NoError(t, err)

	off, err := a.AlignAlloc(64, nil)
	require.NoError(t, err)
	require.Zero(t, off%wantSize(64))
	require.NoError(t, a.Validate())
}

// Every buddy block's offset is already a multiple of its own size, so an
// aligned request that fits at all is always already aligned; the only
// failure mode buddy's AlignAlloc can hit in practice is a plain capacity
// miss, same as Alloc.
func TestAlignAllocOutOfMemoryWhenNothingFits(t *testing.T) {
	a := New(64)
	_, err := a.Alloc(16, nil)
	require.NoError(t, err)
	_, err = a.AlignAlloc(1024, nil)
	require.ErrorIs(t, err, memlayout.ErrOutOfMemory)
}

// Fragmentation range invariant: both metrics stay within [0, 1].
func TestFragmentationStaysInRange(t *testing.T) {
	a := New(2048)
	var live []int
	for i := 0; i < 40; i++ {
		off, err := a.Alloc(16+i, nil)
		if err != nil {
			break
		}
		live = append(live, off)
	}
	for i, off := range live {
		if i%3 == 0 {
			require.NoError(t, a.Free(off))
		}
	}
	stats := a.Stats()
	require.GreaterOrEqual(t, stats.InternalFragmentation, 0.0)
	require.GreaterOrEqual(t, stats.ExternalFragmentation, 0.0)
	require.LessOrEqual(t, stats.ExternalFragmentation, 1.0)
	require.GreaterOrEqual(t, stats.TrimmedExternalFragmentation, 0.0)
	require.LessOrEqual(t, stats.TrimmedExternalFragmentation, 1.0)
}

func TestSnapshotCoversWholeArena(t *testing.T) {
	a := New(1024)
	_, err := a.Alloc(100, nil)
	require.NoError(t, err)

	snap := a.Snapshot()
	require.Equal(t, 1024, snap.TotalSize)

	covered := 0
	for _, b := range snap.Blocks {
		require.Equal(t, covered, b.Offset)
		covered += b.Size
	}
	require.Equal(t, 1024, covered)
}

func blockSizeAt(t *testing.T, a *Allocator, offset int) int {
	t.Helper()
	idx, ok := a.findIndex(offset)
	require.True(t, ok)
	return a.blocks[idx].Size
}
