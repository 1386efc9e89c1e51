// Package jitasm adapts github.com/twitchyliquid64/golang-asm's obj.Prog
// builder to package jit's InstrStream contract, for callers who want
// richer x86-64 codegen (mov, multiplication, 64-bit immediates) than
// package asm's minimal register-form encoder offers; it has no
// memory-operand forms.
// It is grounded directly on wagon's native compiler backend,
// exec/internal/compile/backend_amd64.go, which drives the same
// golang-asm API to emit AMD64 machine code for its own JIT.
package jitasm

import (
	"fmt"

	gasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"jitbuf/asm"
)

// Builder accumulates obj.Prog instructions and assembles them into raw
// machine code on demand.
type Builder struct {
	b   *gasm.Builder
	err error
}

// NewBuilder returns a Builder pre-allocated for roughly hintInstrCount
// instructions, mirroring backend_amd64.Build's builder sizing.
func NewBuilder(hintInstrCount int) (*Builder, error) {
	b, err := gasm.NewBuilder("amd64", hintInstrCount)
	if err != nil {
		return nil, fmt.Errorf("jitasm: %w", err)
	}
	return &Builder{b: b}, nil
}

func (b *Builder) prog() *obj.Prog {
	return b.b.NewProg()
}

// MovConst emits `mov reg, imm64`.
func (b *Builder) MovConst(reg int16, imm int64) *Builder {
	p := b.prog()
	p.As = x86.AMOVQ
	p.From.Type = obj.TYPE_CONST
	p.From.Offset = imm
	p.To.Type = obj.TYPE_REG
	p.To.Reg = reg
	b.b.AddInstruction(p)
	return b
}

// MovReg emits `mov dst, src`.
func (b *Builder) MovReg(dst, src int16) *Builder {
	p := b.prog()
	p.As = x86.AMOVQ
	p.From.Type = obj.TYPE_REG
	p.From.Reg = src
	p.To.Type = obj.TYPE_REG
	p.To.Reg = dst
	b.b.AddInstruction(p)
	return b
}

// binaryReg emits `op dst, src` for a two-operand register form.
func (b *Builder) binaryReg(as obj.As, dst, src int16) *Builder {
	p := b.prog()
	p.As = as
	p.From.Type = obj.TYPE_REG
	p.From.Reg = src
	p.To.Type = obj.TYPE_REG
	p.To.Reg = dst
	b.b.AddInstruction(p)
	return b
}

// AddReg emits `add dst, src`.
func (b *Builder) AddReg(dst, src int16) *Builder { return b.binaryReg(x86.AADDQ, dst, src) }

// SubReg emits `sub dst, src`.
func (b *Builder) SubReg(dst, src int16) *Builder { return b.binaryReg(x86.ASUBQ, dst, src) }

// AndReg emits `and dst, src`.
func (b *Builder) AndReg(dst, src int16) *Builder { return b.binaryReg(x86.AANDQ, dst, src) }

// OrReg emits `or dst, src`.
func (b *Builder) OrReg(dst, src int16) *Builder { return b.binaryReg(x86.AORQ, dst, src) }

// MulReg emits `mul src` (unsigned RAX *= src, per x86's one-operand mul).
func (b *Builder) MulReg(src int16) *Builder {
	p := b.prog()
	p.As = x86.AMULQ
	p.From.Type = obj.TYPE_REG
	p.From.Reg = src
	p.To.Type = obj.TYPE_NONE
	b.b.AddInstruction(p)
	return b
}

// Ret emits a bare ret.
func (b *Builder) Ret() *Builder {
	p := b.prog()
	p.As = obj.ARET
	b.b.AddInstruction(p)
	return b
}

// Assemble finalizes the instruction list into machine code bytes.
func (b *Builder) Assemble() []byte {
	return b.b.Assemble()
}

// Stream assembles the accumulated instructions and adapts the result to
// an asm.InstrStream by chunking the machine code into pieces no larger
// than chunkSize bytes. Chunks are cut at fixed byte offsets, not at
// instruction boundaries. jit.Page writes consecutive chunks back to back
// while they fit on one page, but a chunk that does not fit is moved whole
// to the next page, after no-op padding and a bridge jump; an instruction
// split across that boundary is therefore not contiguous in memory, so
// the pushed code runs as assembled only when no page bridge falls
// between two chunks. chunkSize of 0 uses a default of 16 bytes.
func (b *Builder) Stream(chunkSize int) asm.InstrStream {
	if chunkSize <= 0 {
		chunkSize = 16
	}
	return &chunkStream{code: b.Assemble(), chunkSize: chunkSize}
}

// chunkStream splits a byte slice into fixed-size, non-overlapping
// instruction-stream items.
type chunkStream struct {
	code      []byte
	chunkSize int
	pos       int
}

func (s *chunkStream) Next() ([]byte, bool) {
	if s.pos >= len(s.code) {
		return nil, false
	}
	end := s.pos + s.chunkSize
	if end > len(s.code) {
		end = len(s.code)
	}
	out := s.code[s.pos:end]
	s.pos = end
	return out, true
}

// Registers re-exported for callers who don't want to import golang-asm's
// x86 package directly.
const (
	AX = x86.REG_AX
	BX = x86.REG_BX
	CX = x86.REG_CX
	DX = x86.REG_DX
	R8 = x86.REG_R8
	R9 = x86.REG_R9
)
