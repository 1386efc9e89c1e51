package mem

import "unsafe"

// addrOf returns the base address of a byte slice's backing array. Used to
// compute the absolute address a page's bytes live at, for bridge-jump
// target calculation in package jit.
func addrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
