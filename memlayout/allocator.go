package memlayout

// Allocator is the contract implemented by both the buddy and TLSF
// engines (spec.md §6). Implementations are single-owner objects: no
// internal locking is performed, and concurrent calls on the same
// instance are undefined (spec.md §5).
type Allocator interface {
	// Alloc reserves size bytes and returns their offset within the
	// arena. size == 0 is a no-op that returns 0. Returns ErrOutOfMemory
	// if no free block can satisfy the request.
	Alloc(size int, userData any) (int, error)

	// AlignAlloc behaves like Alloc, but the returned offset is a
	// multiple of max(roundUp(size), minimum block size). Returns
	// ErrInvalidArgument if no candidate region can be aligned.
	AlignAlloc(size int, userData any) (int, error)

	// Free releases a block previously returned by Alloc or AlignAlloc.
	// Returns ErrInvalidFree if offset does not identify a live block.
	// The buddy engine reports an already-free block as ErrInvalidFree as
	// well; TLSF distinguishes that case as ErrDoubleFree. offset == 0 is
	// a no-op for TLSF, where it is structurally unreachable as a payload
	// address, but not for buddy, which legitimately returns 0 for the
	// first allocation out of a fresh arena.
	Free(offset int) error

	// Stats reports the current space usage and fragmentation scalars.
	Stats() Stats

	// Snapshot returns a read-only, address-ordered view of every block.
	Snapshot() Snapshot

	// Validate performs internal consistency checks (spec.md §8). It
	// should never fail for a correctly functioning implementation; it
	// exists to assist in diagnosing bugs in the implementation itself.
	Validate() error
}
