package memlayout

import (
	"math/bits"

	"github.com/cockroachdb/errors"
)

// CheckPow2 returns an error unless n is a power of two. Grounded on
// memutils.CheckPow2, which performs the same bit trick.
func CheckPow2(n int) error {
	if n <= 0 || n&(n-1) != 0 {
		return errors.Errorf("heaplab: %d is not a power of two", n)
	}
	return nil
}

// NextPow2 rounds n up to the next power of two. n <= 1 rounds to 1.
func NextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// RoundUp rounds value up to the nearest multiple of step, which must be a
// power of two.
func RoundUp(value, step int) int {
	return (value + step - 1) &^ (step - 1)
}

// AlignUp rounds value up to the nearest multiple of alignment, which must
// be a power of two.
func AlignUp(value, alignment int) int {
	return (value + alignment - 1) &^ (alignment - 1)
}

// Log2Floor returns floor(log2(n)) for n >= 1.
func Log2Floor(n int) int {
	if n < 1 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}
