package tlsf

import (
	"github.com/dolthub/swiss"

	"github.com/basalt-run/heaplab/memlayout"
)

// Allocator is a TLSF allocator over a metadata-only byte arena. It
// implements memlayout.Allocator.
type Allocator struct {
	total         int
	allocatedSize int

	first    *block
	byOffset *swiss.Map[int, *block]
	idx      freeIndex
}

// New constructs a TLSF allocator over an arena of n bytes. n is bumped up
// to fit at least one minimum-sized block if it is too small.
func New(n int) *Allocator {
	if n < HeaderSize+MinBlockSize {
		n = HeaderSize + MinBlockSize
	}
	a := &Allocator{
		total:    n,
		byOffset: swiss.NewMap[int, *block](8),
	}
	a.first = &block{offset: 0, size: n - HeaderSize, free: true}
	a.byOffset.Put(0, a.first)
	a.idx.insert(a.first)
	return a
}

// TotalSize returns the arena's capacity.
func (a *Allocator) TotalSize() int {
	return a.total
}

// roundUp8Clamped rounds req up to a multiple of 8 and up to at least
// MinBlockSize, as spec.md §4.2 requires before every fit search.
func roundUp8Clamped(req int) int {
	want := memlayout.RoundUp(req, 8)
	if want < MinBlockSize {
		want = MinBlockSize
	}
	return want
}

// split carves a free tail off b when the residue is worth keeping
// (spec.md §4.2 Split). b.size shrinks to want; the returned block is the
// new tail, already linked into the physical chain and inserted into the
// free index. Returns nil if the split was not worthwhile.
func (a *Allocator) split(b *block, want int) *block {
	if b.size-want < MinBlockSize+HeaderSize {
		return nil
	}
	tail := &block{
		offset:       b.offset + HeaderSize + want,
		size:         b.size - want - HeaderSize,
		free:         true,
		prevPhysical: b,
		nextPhysical: b.nextPhysical,
	}
	if b.nextPhysical != nil {
		b.nextPhysical.prevPhysical = tail
	}
	b.nextPhysical = tail
	b.size = want
	a.byOffset.Put(tail.offset, tail)
	a.idx.insert(tail)
	return tail
}

// coalesce merges b with a free physical neighbor on either side
// (spec.md §4.2 Coalesce), then inserts whatever survives into the free
// index exactly once.
func (a *Allocator) coalesce(b *block) {
	if succ := b.nextPhysical; succ != nil && succ.free {
		a.idx.remove(succ)
		a.byOffset.Delete(succ.offset)
		b.size += HeaderSize + succ.size
		b.nextPhysical = succ.nextPhysical
		if succ.nextPhysical != nil {
			succ.nextPhysical.prevPhysical = b
		}
	}
	if prev := b.prevPhysical; prev != nil && prev.free {
		a.idx.remove(prev)
		a.byOffset.Delete(b.offset)
		prev.size += HeaderSize + b.size
		prev.nextPhysical = b.nextPhysical
		if b.nextPhysical != nil {
			b.nextPhysical.prevPhysical = prev
		}
		b = prev
	}
	a.idx.insert(b)
}

// Alloc implements spec.md §4.2 Allocate.
func (a *Allocator) Alloc(req int, userData any) (int, error) {
	if req == 0 {
		return 0, nil
	}
	if req < 0 {
		return 0, memlayout.ErrInvalidArgument
	}
	want := roundUp8Clamped(req)

	b := a.idx.find(want)
	if b == nil {
		return 0, memlayout.ErrOutOfMemory
	}
	a.idx.remove(b)
	a.split(b, want)

	b.free = false
	b.allocated = req
	b.userData = userData
	a.allocatedSize += req
	return b.offset + HeaderSize, nil
}

// AlignAlloc implements spec.md §4.2 Aligned-Allocate. Rather than
// resuming the segregated-list search past a candidate that turns out too
// tight for the requested alignment, it walks the physical chain in
// address order, which is simpler to reason about correctly and still
// bounded by the block count.
func (a *Allocator) AlignAlloc(req int, userData any) (int, error) {
	if req == 0 {
		return 0, nil
	}
	if req < 0 {
		return 0, memlayout.ErrInvalidArgument
	}
	want := roundUp8Clamped(req)

	foundCandidate := false
	for b := a.first; b != nil; b = b.nextPhysical {
		if !b.free || b.size < want {
			continue
		}
		foundCandidate = true

		data := b.offset + HeaderSize
		// want is a multiple of 8 but not necessarily a power of two,
		// so round up by division rather than with memlayout.AlignUp.
		aligned := (data + want - 1) / want * want
		gap := aligned - data
		// A gap too small to host a front block's own header plus a
		// minimum payload is useless; stepping forward one alignment
		// grid line (want bytes) at a time eventually leaves a gap big
		// enough, since want itself is at least MinBlockSize.
		for gap > 0 && gap < MinBlockSize+HeaderSize {
			aligned += want
			gap = aligned - data
		}
		if aligned+want > b.offset+HeaderSize+b.size {
			continue
		}

		a.idx.remove(b)
		target := b
		if gap > 0 {
			target = a.carveFront(b, gap)
		}
		a.split(target, want)

		target.free = false
		target.allocated = req
		target.userData = userData
		a.allocatedSize += req
		return target.offset + HeaderSize, nil
	}
	if foundCandidate {
		return 0, memlayout.ErrInvalidArgument
	}
	return 0, memlayout.ErrOutOfMemory
}

// carveFront splits off a free "front" block of gap-HeaderSize payload
// bytes from the head of b, relocating b's header to the aligned position
// (spec.md §4.2 Aligned-Allocate). The front block is inserted into the
// free index; the relocated block (still removed from the index) is
// returned.
func (a *Allocator) carveFront(b *block, gap int) *block {
	front := &block{
		offset:       b.offset,
		size:         gap - HeaderSize,
		free:         true,
		prevPhysical: b.prevPhysical,
	}
	if front.prevPhysical != nil {
		front.prevPhysical.nextPhysical = front
	}
	if a.first == b {
		a.first = front
	}

	relocated := &block{
		offset:       b.offset + gap,
		size:         b.size - gap,
		free:         true,
		prevPhysical: front,
		nextPhysical: b.nextPhysical,
	}
	front.nextPhysical = relocated
	if b.nextPhysical != nil {
		b.nextPhysical.prevPhysical = relocated
	}

	a.byOffset.Delete(b.offset)
	a.byOffset.Put(front.offset, front)
	a.byOffset.Put(relocated.offset, relocated)
	a.idx.insert(front)
	return relocated
}

// Free implements spec.md §4.2 Free.
func (a *Allocator) Free(offset int) error {
	if offset == 0 {
		return nil
	}
	if offset < HeaderSize {
		return memlayout.ErrInvalidFree
	}
	headerOffset := offset - HeaderSize

	b, ok := a.byOffset.Get(headerOffset)
	if !ok {
		return memlayout.ErrInvalidFree
	}
	if b.size < MinBlockSize || b.size > a.total || b.allocated > b.size {
		return memlayout.ErrInvalidFree
	}
	if headerOffset+HeaderSize+b.size > a.total {
		return memlayout.ErrInvalidFree
	}
	if b.free {
		return memlayout.ErrDoubleFree
	}

	a.allocatedSize -= b.allocated
	b.allocated = 0
	b.userData = nil
	b.free = true
	a.coalesce(b)
	return nil
}
