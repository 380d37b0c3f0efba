// Package tlsf implements a Two-Level Segregated Fit allocator over a
// metadata-only byte arena (spec.md §4.2): blocks live on a doubly linked
// physical chain in address order and a bitmap-indexed matrix of
// segregated free lists gives near-constant-time fit search. No backing
// byte slice is ever allocated — block identity is an offset into the
// conceptual arena, exactly as in memutils/metadata/tlsf.go.
package tlsf

import "github.com/basalt-run/heaplab/memlayout"

// HeaderSize is the simulated per-block bookkeeping overhead: two size
// fields and two physical-chain pointers, rounded up. spec.md §9 leaves
// sizeof(H) unspecified; this is the implementation's resolution.
const HeaderSize = 32

// MinBlockSize is the smallest payload a block will ever hold (spec.md
// §3: MIN = 16).
const MinBlockSize = 16

// FirstLevelCount and SecondLevelCount are FL and SL from spec.md §4.2's
// index mapping (original_source/tlsf_allocator.hpp's SL_INDEX_COUNT).
const (
	FirstLevelCount  = 32
	SecondLevelCount = 32
)

// externalFragClasses is the number of power-of-two size classes
// considered when scoring external fragmentation (spec.md §4.1 step 1,
// reused verbatim by §4.2's weighted variant).
const externalFragClasses = 28

// log2MinBlockSize is log2(MIN), used directly in the fl/sl mapping.
const log2MinBlockSize = 4 // MinBlockSize == 16 == 1<<4

// block is one node of the physical chain. free blocks additionally link
// into a segregated free list via prevFree/nextFree.
type block struct {
	offset int // header offset within the arena
	size   int // payload capacity, excluding the header

	free      bool
	allocated int
	userData  any

	prevPhysical *block
	nextPhysical *block

	prevFree *block
	nextFree *block
}

var _ memlayout.Allocator = (*Allocator)(nil)
