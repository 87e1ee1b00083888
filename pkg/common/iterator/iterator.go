// Package iterator defines the interface for traversing key-value data
// across storage core components.
//
// Adapters that bridge a concrete source to this interface live in the
// package that owns the source type; the memtable package provides the
// adapter for its iterator. Adapters delegate to the source, return nil
// from accessors when not positioned on an entry, and copy keys only
// when the source reuses its buffers.
package iterator

// Iterator defines the interface for iterating over key-value pairs
// This is used across the storage core components to provide a consistent
// way to traverse data regardless of where it's stored.
type Iterator interface {
	// SeekToFirst positions the iterator at the first key
	SeekToFirst()

	// SeekToLast positions the iterator at the last key
	SeekToLast()

	// Seek positions the iterator at the first key >= target
	Seek(target []byte) bool

	// Next advances the iterator to the next key
	Next() bool

	// Key returns the current key
	Key() []byte

	// Value returns the current value
	Value() []byte

	// Valid returns true if the iterator is positioned at a valid entry
	Valid() bool

	// IsTombstone returns true if the current entry is a deletion marker
	// This distinguishes a deletion from a regular nil value when tables
	// are merged or drained
	IsTombstone() bool
}
