// Package memlayout defines the shared contract implemented by the buddy
// and TLSF allocator engines: the Allocator interface, the block snapshot
// surface, fragmentation statistics, and the error taxonomy both engines
// raise.
package memlayout

import (
	"github.com/cockroachdb/errors"
	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors raised synchronously by Allocator implementations. The
// buddy and tlsf engines return them as they are, without added context;
// callers should branch with errors.Is.
var (
	// ErrOutOfMemory is returned when no free block satisfies a request.
	// Recoverable: the caller may free memory and retry.
	ErrOutOfMemory = pkgerrors.New("heaplab: no free block satisfies the request")

	// ErrInvalidFree is returned when an offset does not identify a known
	// live block, or block metadata fails validation.
	ErrInvalidFree = pkgerrors.New("heaplab: offset does not identify a live block")

	// ErrDoubleFree is returned when the identified block is already free.
	ErrDoubleFree = pkgerrors.New("heaplab: block is already free")

	// ErrInvalidArgument is returned when an aligned allocation cannot be
	// placed within the only candidate region, or a request is malformed.
	ErrInvalidArgument = pkgerrors.New("heaplab: request cannot be satisfied with the given constraints")
)

// wrapf attaches call-site context to a sentinel error while preserving its
// identity for errors.Is.
func wrapf(sentinel error, format string, args ...any) error {
	return errors.Wrapf(sentinel, format, args...)
}
