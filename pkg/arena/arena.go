package arena

import (
	"math/bits"
	"unsafe"
)

const (
	// BlockSize is the size in bytes of a standard arena block.
	BlockSize = 4096

	// align is the unit AllocateAligned rounds to, the platform
	// pointer size.
	align = bits.UintSize / 8
)

// Arena is a bump-pointer allocator for engine-internal byte regions.
// It carves allocations out of large blocks and never reclaims them
// individually: every region handed out stays valid, at a stable
// address, until the arena and all its regions are dropped together.
// An arena serves a single writer and does no locking of its own.
type Arena struct {
	// cur is the active block, off the next free byte within it.
	cur []byte
	off int

	// blocks holds every block ever allocated so that all returned
	// regions remain reachable for the arena's lifetime.
	blocks [][]byte

	// memory counts total block bytes, excluding bookkeeping.
	memory int64
}

// NewArena creates an empty arena. No memory is reserved until the
// first allocation.
func NewArena() *Arena {
	return &Arena{}
}

// Allocate returns a region of exactly n bytes with no alignment
// guarantee. The region does not overlap any other allocation from
// this arena. Allocating zero bytes returns an empty region; a
// negative n panics.
func (a *Arena) Allocate(n int) []byte {
	if n < 0 {
		panic("arena: negative allocation size")
	}
	if len(a.cur)-a.off >= n {
		b := a.cur[a.off : a.off+n : a.off+n]
		a.off += n
		return b
	}
	return a.allocateFallback(n)
}

// AllocateAligned returns a region of exactly n bytes whose starting
// address is a multiple of the platform pointer size. Padding bytes
// skipped to reach the boundary are wasted, not reused.
func (a *Arena) AllocateAligned(n int) []byte {
	if n < 0 {
		panic("arena: negative allocation size")
	}
	slop := 0
	if mod := a.off & (align - 1); mod != 0 {
		slop = align - mod
	}
	if len(a.cur)-a.off >= n+slop {
		a.off += slop
		b := a.cur[a.off : a.off+n : a.off+n]
		a.off += n
		return b
	}
	b := a.allocateFallback(n)
	if n > 0 && uintptr(unsafe.Pointer(&b[0]))&(align-1) != 0 {
		// Block bases come from the Go allocator at pointer
		// alignment or better; reaching here is a construction bug.
		panic("arena: fallback block is not pointer-aligned")
	}
	return b
}

// allocateFallback serves a request the active block cannot fit.
// Requests larger than a quarter of the standard block size get a
// dedicated block of exactly n bytes, leaving the active block and
// its remaining space untouched. Smaller requests start a fresh
// standard block, which becomes the active block.
func (a *Arena) allocateFallback(n int) []byte {
	if n > BlockSize/4 {
		blk := a.allocateNewBlock(n)
		return blk[0:n:n]
	}
	a.cur = a.allocateNewBlock(BlockSize)
	a.off = n
	return a.cur[0:n:n]
}

func (a *Arena) allocateNewBlock(n int) []byte {
	blk := make([]byte, n)
	a.blocks = append(a.blocks, blk)
	a.memory += int64(n)
	return blk
}

// MemoryUsage reports the total bytes of block memory the arena has
// allocated over its lifetime. The counter only grows; memory is
// returned to the runtime in bulk when the arena is dropped.
func (a *Arena) MemoryUsage() int64 {
	return a.memory
}
