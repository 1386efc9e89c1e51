package jit

import (
	"jitbuf/asm"
	"jitbuf/mem"
)

// Buffer is the public entry point: a growable chain of executable pages
// with a single producer-facing append operation and a single consumer-
// facing entry address. Grounded on original_source/src/lib.rs's
// JitBuffer, and on wagon's exec/internal/compile.Compiler as the Go
// idiom for a façade that owns an allocator and hands out compiled
// entry points.
type Buffer struct {
	alloc    mem.Allocator
	pageSize int
	tail     *Page
	closed   bool
}

// New creates a Buffer backed by DefaultPageSize pages allocated via
// mem.MMapAllocator.
func New() (*Buffer, error) {
	return NewSize(DefaultPageSize)
}

// NewSize creates a Buffer whose pages are pageSize bytes. Tests use this
// to force page bridging with a small size; production callers should
// use New.
func NewSize(pageSize int) (*Buffer, error) {
	return newWithAllocator(mem.MMapAllocator{}, pageSize)
}

func newWithAllocator(alloc mem.Allocator, pageSize int) (*Buffer, error) {
	first, err := Map(alloc, pageSize)
	if err != nil {
		return nil, err
	}
	return &Buffer{alloc: alloc, pageSize: pageSize, tail: first}, nil
}

// PushInstrs appends the instructions yielded by stream, bridging to new
// pages as needed. On failure the buffer's tail is left unchanged: the
// already-published portion of the buffer remains valid and callable,
// and the caller may retry or abandon the push.
func (b *Buffer) PushInstrs(stream asm.InstrStream) error {
	next, err := b.tail.PushInstrs(stream)
	if err != nil {
		return err
	}
	b.tail = next
	return nil
}

// StartFunc returns a callable handle to the start of the tail page's live
// self-loop. A call through it spins there until the next PushInstrs
// releases the loop, then runs the code pushed after this point (the
// convention used by original_source's "return twenty" scenario: call
// StartFunc first, then push a handful of instructions ending in ret, and
// invoke the handle). Code pushed before StartFunc is not reached from it.
func (b *Buffer) StartFunc() ExtFn {
	return ExtFn{addr: b.tail.curAddr()}
}

// Close tears down the page chain. Pages are unlinked and closed
// iteratively, not recursively, because a long-running producer can
// build a chain tens of thousands of pages deep and a recursive teardown
// would overflow the goroutine stack.
func (b *Buffer) Close() error {
	if b.closed {
		return ErrAlreadyClosed
	}
	b.closed = true

	err := closeChain(b.tail)
	b.tail = nil
	return err
}

// ChainAddrs returns the base address of every page currently in the
// buffer's chain, oldest first, for diagnostics (cmd/jitdemo's bridge
// scenario reports these to show a bridge actually occurred).
func (b *Buffer) ChainAddrs() []uintptr {
	var addrs []uintptr
	for page := b.tail; page != nil; page = page.prev {
		addrs = append(addrs, page.BaseAddr())
	}
	for i, j := 0, len(addrs)-1; i < j; i, j = i+1, j-1 {
		addrs[i], addrs[j] = addrs[j], addrs[i]
	}
	return addrs
}
