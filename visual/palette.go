// Package visual renders a history of memlayout.Snapshot values as a BMP
// image, one row per snapshot, so fragmentation patterns become visible at
// a glance. It is an external collaborator (spec.md §6): the allocator
// core has no dependency on this package, only on the Snapshot it
// consumes.
package visual

import "math/bits"

// MinBlockSize is the pixel unit: one pixel column covers MinBlockSize
// bytes of arena, matching memory_visualization.cpp's "divide by minimum
// block size (16 bytes)".
const MinBlockSize = 16

// RGB is a single BMP pixel's red/green/blue components.
type RGB struct {
	R, G, B byte
}

// FreeBlockColor shades a free block by its size class: a blue gradient
// keyed by how many doublings separate it from minSize (ctz(size) -
// ctz(minSize)), matching Color::free_block.
func FreeBlockColor(size, minSize int) RGB {
	level := bits.TrailingZeros(uint(size)) - bits.TrailingZeros(uint(minSize))
	blue := byte(100 + (155*level)/32)
	return RGB{R: 50, G: 50, B: 200 + blue/4}
}

// AllocatedBlockColor shades an allocated block from green (low waste) to
// red (high waste), matching Color::allocated_block. fraction is
// WasteFraction, clamped to [0, 1].
func AllocatedBlockColor(fraction float64) RGB {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return RGB{
		R: byte(200 * fraction),
		G: byte(200 * (1 - fraction)),
		B: 50,
	}
}

// headerColor shades the bookkeeping gap the BMP writer draws between a
// TLSF block's payload and its neighbor's, matching Color::header. Unused
// for buddy snapshots, whose blocks have no such gap.
func headerColor() RGB {
	return RGB{R: 180, G: 180, B: 180}
}
