package tlsf

import (
	"github.com/cockroachdb/errors"

	"github.com/basalt-run/heaplab/fragment"
	"github.com/basalt-run/heaplab/memlayout"
)

// Stats implements spec.md §4.2's internal/external fragmentation
// formulas by walking the physical chain. The "trimmed" variant is scored
// the same way as buddy's (spec.md §6): only over blocks whose header lies
// below the end of the last live allocation.
func (a *Allocator) Stats() memlayout.Stats {
	var wasted int
	var lastAllocatedEnd int
	type freeSpan struct{ offset, size int }
	var free []freeSpan

	for b := a.first; b != nil; b = b.nextPhysical {
		if b.free {
			free = append(free, freeSpan{b.offset, b.size})
			continue
		}
		wasted += b.size - b.allocated
		lastAllocatedEnd = b.offset + HeaderSize + b.size
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
		ExternalFragmentation:        fragment.Weighted(allSizes, MinBlockSize, externalFragClasses),
		TrimmedExternalFragmentation: fragment.Weighted(trimmedSizes, MinBlockSize, externalFragClasses),
	}
}

// Snapshot implements spec.md §4.3: it walks the physical chain from the
// first header until payload end meets arena end, and stops defensively
// on any inconsistency rather than raising an error.
func (a *Allocator) Snapshot() memlayout.Snapshot {
	var views []memlayout.BlockView
	seen := 0
	for b := a.first; b != nil; b = b.nextPhysical {
		if b.size <= 0 || b.size > a.total || b.offset != seen {
			break
		}
		var waste float64
		if !b.free && b.size > 0 {
			waste = float64(b.size-b.allocated) / float64(b.size)
		}
		views = append(views, memlayout.BlockView{
			Offset:        b.offset,
			Size:          b.size,
			Free:          b.free,
			WasteFraction: waste,
		})
		seen = b.offset + HeaderSize + b.size
	}
	return memlayout.Snapshot{TotalSize: a.total, Blocks: views}
}

// Validate checks the chain-consistency invariant from spec.md §8
// (repeatedly advancing by sizeof(H)+size from offset 0 terminates at N,
// and every prev_physical link matches its predecessor), agreement
// between the chain and the offset index, and the allocated_size counter.
func (a *Allocator) Validate() error {
	offset := 0
	var prev *block
	var liveAllocated int
	count := 0

	for b := a.first; b != nil; b = b.nextPhysical {
		if b.offset != offset {
			return errors.Errorf("tlsf: physical chain broken: expected header at %d, found one at %d", offset, b.offset)
		}
		if b.prevPhysical != prev {
			return errors.Errorf("tlsf: block at %d has a prev_physical link inconsistent with its predecessor", b.offset)
		}
		if got, ok := a.byOffset.Get(b.offset); !ok || got != b {
			return errors.Errorf("tlsf: block at %d is not reachable through the offset index", b.offset)
		}
		if !b.free {
			liveAllocated += b.allocated
		}
		count++
		offset += HeaderSize + b.size
		prev = b
	}
	if offset != a.total {
		return errors.Errorf("tlsf: physical chain covers %d bytes, arena is %d", offset, a.total)
	}
	if a.byOffset.Count() != count {
		return errors.Errorf("tlsf: offset index has %d entries but the physical chain has %d blocks", a.byOffset.Count(), count)
	}
	if liveAllocated != a.allocatedSize {
		return errors.Errorf("tlsf: allocated_size counter (%d) disagrees with the sum of live blocks (%d)", a.allocatedSize, liveAllocated)
	}
	return nil
}
