package memlayout

// BlockView describes one block of a Snapshot in address order.
type BlockView struct {
	// Offset is the block's start address within the arena.
	Offset int
	// Size is the block's span in bytes (payload capacity for TLSF,
	// whole-block size for buddy).
	Size int
	// Free reports whether the block is currently unallocated.
	Free bool
	// WasteFraction is (Size-Allocated)/Size for an allocated block, and 0
	// for a free block.
	WasteFraction float64
}

// Snapshot is a read-only, address-ordered view over every block in an
// arena at one instant. It is the introspection surface consumed by the
// stress driver, the BMP writer, and the state tracker (spec.md §6);
// the core never depends on any of them.
type Snapshot struct {
	// TotalSize is the arena's total capacity in bytes.
	TotalSize int
	// Blocks covers [0, TotalSize) end-to-end in ascending offset order.
	Blocks []BlockView
}
