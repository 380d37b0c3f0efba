package buddy

import (
	"sort"

	"golang.org/x/exp/slices"

	"github.com/basalt-run/heaplab/memlayout"
)

// findIndex returns the slice position of the block starting at offset,
// via binary search over the address-ordered slice.
func (a *Allocator) findIndex(offset int) (int, bool) {
	i := sort.Search(len(a.blocks), func(i int) bool { return a.blocks[i].Offset >= offset })
	if i < len(a.blocks) && a.blocks[i].Offset == offset {
		return i, true
	}
	return 0, false
}

func (a *Allocator) insertAt(i int, b *Block) {
	a.blocks = slices.Insert(a.blocks, i, b)
}

func (a *Allocator) removeAt(i int) {
	a.blocks = slices.Delete(a.blocks, i, i+1)
}

// splitDownTo repeatedly halves the block at index i until it is exactly
// want bytes (or MinBlockSize, whichever is larger), inserting the freed
// upper halves as siblings. i is stable across the calls: new blocks are
// always inserted to its right.
func (a *Allocator) splitDownTo(i, want int) int {
	for a.blocks[i].Size > want && a.blocks[i].Size > MinBlockSize {
		half := a.blocks[i].Size / 2
		upper := &Block{Offset: a.blocks[i].Offset + half, Size: half, Free: true}
		a.blocks[i].Size = half
		a.insertAt(i+1, upper)
	}
	return i
}

// splitToOffset halves the block at index i repeatedly, descending into
// whichever half contains target, until the block starting at i begins
// exactly at target. Both halves stay in the block list at every step, so
// nothing is lost along the way; the caller is expected to have already
// checked that target lies within [blocks[i].Offset, blocks[i].Offset+size).
func (a *Allocator) splitToOffset(i, target int) int {
	for a.blocks[i].Offset != target {
		half := a.blocks[i].Size / 2
		upperOffset := a.blocks[i].Offset + half
		upper := &Block{Offset: upperOffset, Size: half, Free: true}
		a.blocks[i].Size = half
		a.insertAt(i+1, upper)
		if target >= upperOffset {
			i++
		}
	}
	return i
}

// Alloc implements spec.md §4.1 Allocate.
func (a *Allocator) Alloc(size int, userData any) (int, error) {
	if size == 0 {
		return 0, nil
	}
	if size < 0 {
		return 0, memlayout.ErrInvalidArgument
	}
	want := wantSize(size)

	for i := range a.blocks {
		b := a.blocks[i]
		if !b.Free || b.Size < want {
			continue
		}
		idx := a.splitDownTo(i, want)
		return a.commitAlloc(idx, size, userData), nil
	}
	return 0, memlayout.ErrOutOfMemory
}

// AlignAlloc implements spec.md §4.1 Aligned-Allocate.
func (a *Allocator) AlignAlloc(size int, userData any) (int, error) {
	if size == 0 {
		return 0, nil
	}
	if size < 0 {
		return 0, memlayout.ErrInvalidArgument
	}
	want := wantSize(size)

	foundCandidate := false
	for i := 0; i < len(a.blocks); i++ {
		b := a.blocks[i]
		if !b.Free || b.Size < want {
			continue
		}
		foundCandidate = true

		gridPos := memlayout.AlignUp(b.Offset, want)
		if gridPos+want > b.Offset+b.Size {
			continue
		}

		idx := i
		if gridPos != b.Offset {
			idx = a.splitToOffset(i, gridPos)
		}
		idx = a.splitDownTo(idx, want)
		return a.commitAlloc(idx, size, userData), nil
	}
	if foundCandidate {
		return 0, memlayout.ErrInvalidArgument
	}
	return 0, memlayout.ErrOutOfMemory
}

func (a *Allocator) commitAlloc(idx, size int, userData any) int {
	blk := a.blocks[idx]
	blk.Free = false
	blk.Allocated = size
	blk.UserData = userData
	a.allocatedSize += size
	return blk.Offset
}

// Free implements spec.md §4.1 Free, including the eager buddy-coalescing
// loop. offset 0 is an ordinary, frequently-returned address for buddy
// (the first allocation out of a fresh arena always lands there), so it
// carries no no-op special case; a never-allocated or already-free
// offset is rejected by the lookup below regardless of its value.
func (a *Allocator) Free(offset int) error {
	idx, ok := a.findIndex(offset)
	if !ok || a.blocks[idx].Free {
		return memlayout.ErrInvalidFree
	}

	block := a.blocks[idx]
	a.allocatedSize -= block.Allocated
	block.Allocated = 0
	block.Free = true
	block.UserData = nil

	size := block.Size
	addr := block.Offset
	for size < a.total {
		var buddyOffset int
		if addr&size != 0 {
			buddyOffset = addr - size
		} else {
			buddyOffset = addr + size
		}
		bIdx, ok := a.findIndex(buddyOffset)
		if !ok {
			break
		}
		buddy := a.blocks[bIdx]
		if !buddy.Free || buddy.Size != size {
			break
		}

		if buddyOffset > addr {
			a.removeAt(bIdx)
		} else {
			removeIdx, _ := a.findIndex(addr)
			a.removeAt(removeIdx)
			addr = buddyOffset
		}
		survivorIdx, _ := a.findIndex(addr)
		a.blocks[survivorIdx].Size = size * 2
		size *= 2
	}
	return nil
}

// wantSize is max(nextPow2(size), MinBlockSize), the fit size buddy always
// allocates in units of.
func wantSize(size int) int {
	want := memlayout.NextPow2(size)
	if want < MinBlockSize {
		want = MinBlockSize
	}
	return want
}
