package buddy

import (
	"github.com/cockroachdb/errors"

	"github.com/basalt-run/heaplab/fragment"
	"github.com/basalt-run/heaplab/memlayout"
)

// Stats implements spec.md §4.1's internal/external fragmentation
// formulas, plus the "trimmed" variant scored only over blocks below the
// end of the last (highest-offset) live allocation.
func (a *Allocator) Stats() memlayout.Stats {
	var wasted int
	var lastAllocatedEnd int
	type freeSpan struct{ offset, size int }
	var free []freeSpan

	for _, b := range a.blocks {
		if b.Free {
			free = append(free, freeSpan{b.Offset, b.Size})
			continue
		}
		wasted += b.Size - b.Allocated
		lastAllocatedEnd = b.Offset + b.Size
	}

	allSizes := make([]int, len(free))
	var trimmedSizes []int
	for i, f := range free {
		allSizes[i] = f.size
		if f.offset < lastAllocatedEnd {
			trimmedSizes = append(trimmedSizes, f.size)
		}
	}

	return memlayout.Stats{
		TotalSpace:                   a.total,
		AllocatedSpace:               a.allocatedSize,
		FreeSpace:                    a.total - a.allocatedSize,
		InternalFragmentation:        fragment.Internal(wasted, a.allocatedSize),
		ExternalFragmentation:        fragment.Unweighted(allSizes, MinBlockSize, externalFragClasses),
		TrimmedExternalFragmentation: fragment.Unweighted(trimmedSizes, MinBlockSize, externalFragClasses),
	}
}

// Snapshot implements spec.md §4.3.
func (a *Allocator) Snapshot() memlayout.Snapshot {
	views := make([]memlayout.BlockView, len(a.blocks))
	for i, b := range a.blocks {
		var waste float64
		if !b.Free && b.Size > 0 {
			waste = float64(b.Size-b.Allocated) / float64(b.Size)
		}
		views[i] = memlayout.BlockView{
			Offset:        b.Offset,
			Size:          b.Size,
			Free:          b.Free,
			WasteFraction: waste,
		}
	}
	return memlayout.Snapshot{TotalSize: a.total, Blocks: views}
}

// Validate checks the tiling, power-of-two, and self-alignment invariants
// from spec.md §8, plus that the allocated_size counter agrees with the
// live blocks.
func (a *Allocator) Validate() error {
	offset := 0
	var liveAllocated int
	for _, b := range a.blocks {
		if b.Offset != offset {
			return errors.Errorf("buddy: gap or overlap in block tiling: expected block at %d, found one at %d", offset, b.Offset)
		}
		if err := memlayout.CheckPow2(b.Size); err != nil {
			return errors.Wrapf(err, "buddy: block at %d has a non-power-of-two size", b.Offset)
		}
		if b.Size < MinBlockSize {
			return errors.Errorf("buddy: block at %d is smaller than the minimum block size", b.Offset)
		}
		if b.Offset%b.Size != 0 {
			return errors.Errorf("buddy: block at %d is not self-aligned to its size %d", b.Offset, b.Size)
		}
		if !b.Free {
			liveAllocated += b.Allocated
		}
		offset += b.Size
	}
	if offset != a.total {
		return errors.Errorf("buddy: block tiling covers %d bytes, arena is %d", offset, a.total)
	}
	if liveAllocated != a.allocatedSize {
		return errors.Errorf("buddy: allocated_size counter (%d) disagrees with the sum of live blocks (%d)", a.allocatedSize, liveAllocated)
	}
	return nil
}
