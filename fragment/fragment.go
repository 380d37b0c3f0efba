// Package fragment implements the fragmentation analyzer named in
// spec.md §2 as a pure function over a snapshot of the free index: given
// nothing but the sizes of the currently-free blocks (and the wasted bytes
// inside allocated ones), it produces the internal and external
// fragmentation scalars both the buddy and TLSF engines report.
//
// spec.md §9 flags that the buddy engine scores external fragmentation
// with an unweighted mean across size classes while TLSF uses a
// size-weighted mean, and asks implementations to expose both formulas
// rather than silently pick one. Unweighted and Weighted below are that
// pair; both engines call into this single package so the two formulas
// can be compared like with like.
package fragment

// Internal computes the internal fragmentation ratio: bytes wasted inside
// allocated blocks, divided by the bytes actually allocated. Returns 0 when
// nothing is allocated.
func Internal(wastedBytes, allocatedBytes int) float64 {
	if allocatedBytes <= 0 {
		return 0
	}
	return float64(wastedBytes) / float64(allocatedBytes)
}

// bucketClasses assigns each free block to the largest power-of-two size
// class it can fully supply (class i holds sizes in [minSize*2^i,
// minSize*2^(i+1)), the same floor(log2) bucketing as TLSF's fl index) and
// returns the per-class counts, the total free bytes, and the largest free
// block observed.
// Blocks smaller than minSize are clamped into class 0; blocks that would
// overflow the classes slice are clamped into the last class.
func bucketClasses(freeSizes []int, minSize, classes int) (counts []int, totalFree, largest int) {
	counts = make([]int, classes)
	for _, size := range freeSizes {
		if size <= 0 {
			continue
		}
		totalFree += size
		if size > largest {
			largest = size
		}

		class := 0
		for s := minSize << 1; s <= size && class < classes-1; s <<= 1 {
			class++
		}
		counts[class]++
	}
	return counts, totalFree, largest
}

// Unweighted computes the buddy engine's external fragmentation (spec.md
// §4.1): for each size class with potential_i > 0, the ratio of blocks
// actually available to the blocks that would be obtainable by splitting
// every larger free block down to that class; the reported fragmentation
// is 1 minus the unweighted arithmetic mean of those ratios.
func Unweighted(freeSizes []int, minSize, classes int) float64 {
	counts, totalFree, _ := bucketClasses(freeSizes, minSize, classes)
	if totalFree == 0 {
		return 0
	}

	actual := augmentWithLargerClasses(counts)

	var sumRatio float64
	var n int
	for i := 0; i < classes; i++ {
		classSize := minSize << uint(i)
		if classSize > totalFree {
			break
		}
		potential := totalFree / classSize
		if potential == 0 {
			continue
		}
		sumRatio += float64(actual[i]) / float64(potential)
		n++
	}
	if n == 0 {
		return 0
	}
	return 1 - sumRatio/float64(n)
}

// Weighted computes the TLSF engine's external fragmentation (spec.md
// §4.2): the same per-class ratio as Unweighted, capped at 1, but combined
// as a byte-size-weighted mean so that matching large requests dominates
// the score.
func Weighted(freeSizes []int, minSize, classes int) float64 {
	counts, totalFree, largest := bucketClasses(freeSizes, minSize, classes)
	if totalFree == 0 {
		return 0
	}

	actual := augmentWithLargerClasses(counts)
	maxClass := 0
	for s := minSize; s < largest && maxClass < classes-1; s <<= 1 {
		maxClass++
	}

	var numerator, denominator float64
	for i := 0; i <= maxClass; i++ {
		classSize := minSize << uint(i)
		if classSize > largest {
			break
		}
		potential := totalFree / classSize
		if potential == 0 {
			continue
		}
		ratio := float64(actual[i]) / float64(potential)
		if ratio > 1 {
			ratio = 1
		}
		numerator += float64(classSize) * ratio
		denominator += float64(classSize)
	}
	if denominator == 0 {
		return 0
	}
	return 1 - numerator/denominator
}

// augmentWithLargerClasses returns, for each class i, the number of
// size-i blocks "potentially obtainable" by subdividing every free block
// in a larger class j down to size i: actual_i = counts_i + sum_{j>i}
// counts_j * 2^(j-i).
func augmentWithLargerClasses(counts []int) []int {
	actual := make([]int, len(counts))
	copy(actual, counts)
	for i := 0; i < len(actual)-1; i++ {
		for j := i + 1; j < len(actual); j++ {
			if counts[j] > 0 {
				actual[i] += counts[j] * (1 << uint(j-i))
			}
		}
	}
	return actual
}
