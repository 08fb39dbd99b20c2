// Package scom defines the side-channel register transport: out-of-band
// access to chip-internal control registers, distinct from the memory-mapped
// I/O path. The concrete transport is supplied by the platform; this core
// only consumes it.
package scom

// RegisterID addresses one chip-scoped control register on the side-channel
// bus.
type RegisterID uint32

// Transport reads and writes chip-scoped control registers. Implementations
// are used during the single-threaded bring-up window only and need no
// internal locking.
type Transport interface {
	Read(chipID uint32, reg RegisterID) (uint64, error)
	Write(chipID uint32, reg RegisterID, value uint64) error
}
