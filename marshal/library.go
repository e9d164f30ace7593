// Package marshal bridges Go callers to a flat, handle-based native API.
//
// A Descriptor lists the parameters of one native function. Calling it walks
// the parameters in order, acquiring a native representation for each Go
// argument, invokes the native function only if every acquisition succeeded,
// and releases what was acquired in reverse order on every exit path. Native
// return conventions (null handles, status codes, error contexts) are turned
// into Go values or an *Error.
package marshal

import "context"

// Memory is the linear memory of the native library.
type Memory interface {
	// Read returns a view of size bytes at offset, or false if out of range.
	Read(offset, size uint32) ([]byte, bool)
	// Write copies data to offset, or returns false if out of range.
	Write(offset uint32, data []byte) bool
	// Size returns the current size of the memory in bytes.
	Size() uint32
}

// Function is a native function taking and returning native slots.
type Function interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// Library is the native callee.
type Library interface {
	// Function returns the exported function, or nil if it does not exist.
	Function(name string) Function
	// Memory returns the library memory.
	Memory() Memory
	// Allocate returns a buffer of size bytes in library memory. A zero
	// pointer with a nil error means the allocator returned null.
	Allocate(ctx context.Context, size uint32) (uint32, error)
	// Free returns a buffer obtained from Allocate.
	Free(ctx context.Context, ptr uint32) error
}
