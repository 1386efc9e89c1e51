package jit

// ExtFn is a callable handle into a Buffer's code, obtained from
// Buffer.StartFunc. It is a plain function pointer plus arity-specific
// Go-to-native trampolines, grounded on wagon's jitcall pattern in
// exec/internal/compile/native_exec.go. It stays valid only as long as
// the Buffer (and the page chain backing this address) remains open.
type ExtFn struct {
	addr uintptr
}

//go:noescape
func callEntry0(addr uintptr) uint64

//go:noescape
func callEntry1(addr uintptr, a uint64) uint64

//go:noescape
func callEntry2(addr uintptr, a, b uint64) uint64

//go:noescape
func callEntry3(addr uintptr, a, b, c uint64) uint64

// Call0 invokes the function with no arguments.
func (f ExtFn) Call0() uint64 { return callEntry0(f.addr) }

// Call1 invokes the function with one argument.
func (f ExtFn) Call1(a uint64) uint64 { return callEntry1(f.addr, a) }

// Call2 invokes the function with two arguments.
func (f ExtFn) Call2(a, b uint64) uint64 { return callEntry2(f.addr, a, b) }

// Call3 invokes the function with three arguments.
func (f ExtFn) Call3(a, b, c uint64) uint64 { return callEntry3(f.addr, a, b, c) }

// Addr returns the raw entry address, for callers that need a calling
// convention or arity beyond what Call0..Call3 cover.
func (f ExtFn) Addr() uintptr { return f.addr }
