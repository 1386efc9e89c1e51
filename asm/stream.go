package asm

// InstrStream is a finite, single-pass sequence of instruction byte-slices.
// Each slice returned by Next is one complete instruction. It is the
// contract jit.Buffer.PushInstrs accepts: any concrete producer (a Builder
// below, a hand-built [][]byte, or an external assembler's output adapted
// to this interface) may feed the buffer.
type InstrStream interface {
	// Next returns the next instruction's bytes, or ok == false if the
	// stream is exhausted.
	Next() ([]byte, bool)
}

// SliceStream adapts a plain [][]byte into an InstrStream, for callers that
// already have a list of pre-encoded instructions.
type SliceStream struct {
	instrs [][]byte
	pos    int
}

// NewSliceStream wraps instrs as an InstrStream. The caller must not mutate
// instrs afterwards.
func NewSliceStream(instrs [][]byte) *SliceStream {
	return &SliceStream{instrs: instrs}
}

// Next implements InstrStream.
func (s *SliceStream) Next() ([]byte, bool) {
	if s.pos >= len(s.instrs) {
		return nil, false
	}
	out := s.instrs[s.pos]
	s.pos++
	return out, true
}

// Builder accumulates instructions into the length-prefixed wire format
// described in package asm's doc comment: [len0, b00..b0,len0-1, len1, ...,
// 0]. Calling Stream() yields an InstrStream that reads that format back
// out lazily, one instruction at a time — mirroring the Rust original's
// compile-time-sized Assembly buffer, except Builder's backing array grows
// with append instead of being sized by a macro.
type Builder struct {
	buf []byte
	err error
}

// NewBuilder returns a Builder whose backing buffer is pre-sized for
// hintInstrCount instructions at asm.MaxInstrLen bytes apiece (plus the
// length byte), avoiding reallocation in the common case where the caller
// knows roughly how many instructions it will emit. hintInstrCount may be
// zero; the buffer then grows on demand.
func NewBuilder(hintInstrCount int) *Builder {
	return &Builder{buf: make([]byte, 0, hintInstrCount*(1+MaxInstrLen))}
}

// emit appends a length-prefixed instruction encoded by fn, which must
// write into its argument and return the number of bytes written. A
// zero-length result (from a failed encode, see Jmp) is dropped rather
// than written, since a zero length byte is the wire format's terminator.
func (b *Builder) emit(fn func([]byte) int) *Builder {
	scratch := make([]byte, MaxInstrLen)
	n := fn(scratch)
	if n == 0 {
		return b
	}
	b.buf = append(b.buf, byte(n))
	b.buf = append(b.buf, scratch[:n]...)
	return b
}

// Nop appends a nop instruction.
func (b *Builder) Nop() *Builder { return b.emit(Nop) }

// Ret appends a ret instruction.
func (b *Builder) Ret() *Builder { return b.emit(Ret) }

// RexW appends a bare REX.W prefix byte.
func (b *Builder) RexW() *Builder { return b.emit(RexW) }

// Jmp8 appends a short relative jump from `from` to `to`.
func (b *Builder) Jmp8(to, from uint64) *Builder {
	return b.emit(func(buf []byte) int { return Jmp8(buf, to, from) })
}

// Jmp appends a near relative jump from `from` to `to`. If the
// displacement is out of range, the builder records the error and
// subsequent Err() calls report it; the malformed instruction is not
// appended.
func (b *Builder) Jmp(to, from uint64) *Builder {
	if b.err != nil {
		return b
	}
	return b.emit(func(buf []byte) int {
		n, err := Jmp(buf, to, from)
		if err != nil {
			b.err = err
			return 0
		}
		return n
	})
}

// RegReg appends a register-to-register arithmetic instruction using fn
// (one of asm.Add, asm.Xor, ...).
func (b *Builder) RegReg(fn regRegEncoder, dst, src Register) *Builder {
	return b.emit(func(buf []byte) int { return fn(buf, dst, src) })
}

// RegImm appends a register/immediate arithmetic instruction using fn (one
// of asm.AddImm, asm.XorImm, ...).
func (b *Builder) RegImm(fn regImmEncoder, dst Register, imm uint32) *Builder {
	return b.emit(func(buf []byte) int { return fn(buf, dst, imm) })
}

// Err returns the first error recorded while building, if any (currently
// only possible via Jmp's range check).
func (b *Builder) Err() error { return b.err }

// Bytes returns a copy of the accumulated wire-format buffer, terminated
// with a trailing zero length byte. The Builder itself is left unchanged:
// further Builder calls keep appending, and a later Bytes() or Stream()
// includes them.
func (b *Builder) Bytes() []byte {
	return append(append([]byte{}, b.buf...), 0)
}

// Stream returns an InstrStream reading back the instructions appended so
// far, in order.
func (b *Builder) Stream() InstrStream {
	return &wireStream{buf: b.Bytes()}
}

// wireStream reads the length-prefixed wire format produced by Builder.
type wireStream struct {
	buf []byte
	pos int
}

// Next implements InstrStream.
func (s *wireStream) Next() ([]byte, bool) {
	if s.pos >= len(s.buf) {
		return nil, false
	}
	n := int(s.buf[s.pos])
	if n == 0 {
		return nil, false
	}
	start := s.pos + 1
	out := s.buf[start : start+n]
	s.pos = start + n
	return out, true
}
