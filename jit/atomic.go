package jit

import "unsafe"

// ptrAt returns the address of buf[pos] as an unsafe.Pointer for handoff
// to the atomic store trampoline below.
func ptrAt(buf []byte, pos int) unsafe.Pointer {
	return unsafe.Pointer(&buf[pos])
}

// atomicWrite16 stores v at addr as a single atomic 16-bit write, with no
// reordering of prior stores across it in either direction. sync/atomic
// has no 16-bit store, so this is implemented in assembly (atomic_amd64.s)
// using XCHGW, whose LOCK semantics are implicit on x86 even without an
// explicit prefix.
//
//go:noescape
func atomicWrite16(addr *uint16, v uint16)

// fence issues a sequentially-consistent memory fence (MFENCE), ensuring
// every instruction byte written before the call is visible to any other
// core before the self-loop release that follows it. Implemented in
// assembly (fence_amd64.s); Go's sync/atomic operations are acquire/
// release with respect to each other but give no portable way to emit a
// standalone full fence.
//
//go:noescape
func fence()
