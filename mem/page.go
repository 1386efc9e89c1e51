// Package mem provides the executable-page allocator consumed by package
// jit: a thin wrapper over anonymous, read/write/execute memory mappings
// with page-granularity allocation and release. It is deliberately the
// only place in this module that talks to the operating system's memory
// manager.
package mem

import (
	"fmt"

	"github.com/edsrzf/mmap-go"
)

// Page is a contiguous, RW+X region of memory, exclusively owned by its
// caller. Indexing into Bytes() is bounds-checked by the slice machinery
// like any other []byte.
type Page interface {
	// Bytes returns the mapped region. len(Bytes()) equals the size
	// requested at allocation time.
	Bytes() []byte
	// Addr returns the base address of the mapping.
	Addr() uintptr
	// Close releases the mapping back to the operating system.
	// Double-Close returns ErrAlreadyClosed rather than re-unmapping.
	Close() error
}

// Allocator allocates and releases RW+X pages.
type Allocator interface {
	// Allocate returns a page of the given size with unspecified bytes.
	Allocate(size int) (Page, error)
	// AllocateFilled returns a page of the given size with every byte
	// initialized to fill.
	AllocateFilled(size int, fill byte) (Page, error)
}

// MMapAllocator allocates executable pages via anonymous mmap, grounded on
// original_source/src/mmap.rs's MemChunk and wagon's compile.MMapAllocator
// pattern (exec/internal/compile/allocator_test.go).
type MMapAllocator struct{}

// Allocate implements Allocator.
func (MMapAllocator) Allocate(size int) (Page, error) {
	m, err := mmap.MapRegion(nil, size, mmap.RDWR|mmap.EXEC, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("mem: %w: %v", ErrAllocationFailed, err)
	}
	return &mmapPage{region: m}, nil
}

// AllocateFilled implements Allocator.
func (a MMapAllocator) AllocateFilled(size int, fill byte) (Page, error) {
	p, err := a.Allocate(size)
	if err != nil {
		return nil, err
	}
	b := p.Bytes()
	for i := range b {
		b[i] = fill
	}
	return p, nil
}

// mmapPage implements Page over an mmap.MMap, which is itself a []byte, so
// Bytes() is a zero-copy view onto the mapping.
type mmapPage struct {
	region mmap.MMap
	closed bool
}

func (p *mmapPage) Bytes() []byte {
	return p.region
}

func (p *mmapPage) Addr() uintptr {
	return addrOf(p.region)
}

func (p *mmapPage) Close() error {
	if p.closed {
		return ErrAlreadyClosed
	}
	p.closed = true
	return p.region.Unmap()
}
