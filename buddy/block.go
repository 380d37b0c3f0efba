// Package buddy implements a buddy allocator over a power-of-two arena
// (spec.md §4.1). Blocks are kept in an address-ordered slice rather than
// the reference implementation's ordered map, since Go has no ordered map
// in its standard library; offset lookups use binary search and splits/
// merges insert or remove a single element, which keeps the slice sorted
// without a separate index structure.
package buddy

import "github.com/basalt-run/heaplab/memlayout"

// MinBlockSize is the smallest block the allocator will ever hand out or
// split down to (spec.md §3: MIN = 16).
const MinBlockSize = 16

// externalFragClasses is K in spec.md §4.1 step 1: the number of
// power-of-two size classes considered when scoring external
// fragmentation.
const externalFragClasses = 28

// Block is one span of the arena, identified by its Offset. Buddy of a
// block at Offset with size Size lives at Offset^Size (spec.md §3).
type Block struct {
	Offset    int
	Size      int
	Allocated int
	Free      bool
	UserData  any
}

// Allocator is a buddy allocator over an arena whose capacity has been
// rounded up to a power of two. It implements memlayout.Allocator.
type Allocator struct {
	total         int
	allocatedSize int
	// blocks is always sorted in ascending Offset order and tiles
	// [0, total) exactly; see Validate for the invariant this maintains.
	blocks []*Block
}

var _ memlayout.Allocator = (*Allocator)(nil)

// New constructs a buddy allocator over an arena of at least n bytes. n is
// rounded up to the next power of two and up to MinBlockSize.
func New(n int) *Allocator {
	total := memlayout.NextPow2(n)
	if total < MinBlockSize {
		total = MinBlockSize
	}
	return &Allocator{
		total:  total,
		blocks: []*Block{{Offset: 0, Size: total, Free: true}},
	}
}

// TotalSize returns the arena's capacity, after rounding up to a power of
// two.
func (a *Allocator) TotalSize() int {
	return a.total
}
