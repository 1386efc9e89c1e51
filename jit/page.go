// Package jit implements a single-producer/single-consumer executable code
// buffer. One goroutine (the producer) appends freshly assembled x86-64
// instructions while another (the consumer, or a raw function pointer
// handed out to C-like code) may already be executing inside a page. New
// code becomes live by overwriting a 2-byte self-loop with a no-op pair
// after a sequentially-consistent fence, so the consumer never observes a
// torn or out-of-order view of the new instructions.
//
// Grounded on original_source/src/lib.rs (JitPage/JitBuffer) and on
// wagon's exec/internal/compile package for the surrounding Go idiom:
// an Allocator-backed page abstraction, typed sentinel errors, and a
// façade type that owns the mutation the rest of the package performs.
package jit

import (
	"jitbuf/asm"
	"jitbuf/mem"
)

// DefaultPageSize is used by New when the caller does not need a smaller
// page for testing page-bridging behavior.
const DefaultPageSize = 0x10000

// bridgeReserve is the number of trailing bytes of a page that are never
// used for client instructions: 2 bytes for the self-loop that always sits
// at the very end of the usable region, plus 5 bytes for the near jump
// that bridges into a successor page, plus 1 spare byte of alignment
// headroom for the loop's own 4-byte rounding. Matches PAGE_SIZE - 8 in
// original_source/src/lib.rs.
const bridgeReserve = 8

// Page is one mapped region of executable memory plus the bookkeeping
// needed to append to it safely while a consumer may be running inside
// it. The zero value is not usable; construct with Map.
type Page struct {
	alloc    mem.Allocator
	region   mem.Page
	pageSize int
	codeSize int
	loopPos  uint32
	prev     *Page
}

// Map allocates a fresh page, fills it with no-ops, and installs a self
// loop at offset 0 so that a consumer jumping into an empty page spins
// harmlessly until code is pushed.
func Map(alloc mem.Allocator, pageSize int) (*Page, error) {
	if pageSize <= bridgeReserve {
		return nil, ErrPageTooSmall
	}
	if pageSize%4 != 0 {
		return nil, ErrPageMisaligned
	}
	region, err := alloc.AllocateFilled(pageSize, asm.OpNop)
	if err != nil {
		return nil, err
	}
	p := &Page{
		alloc:    alloc,
		region:   region,
		pageSize: pageSize,
		codeSize: pageSize - bridgeReserve,
	}
	buf := region.Bytes()
	asm.Jmp8(buf[0:2], 0, 0)
	return p, nil
}

// addressAt returns the absolute address of the byte at pos within p.
func (p *Page) addressAt(pos int) uintptr {
	return p.region.Addr() + uintptr(pos)
}

// BaseAddr returns the address of the first byte of p's mapping, for
// callers (e.g. cmd/jitdemo) that report on a chain's layout.
func (p *Page) BaseAddr() uintptr {
	return p.addressAt(0)
}

// curAddr is the address a consumer currently lands on: the start of the
// live self-loop, which is where the next batch of pushed instructions
// will begin executing once released.
func (p *Page) curAddr() uintptr {
	return p.addressAt(int(p.loopPos))
}

// breakLoop overwrites the 2-byte self-loop at loopPos with a pair of
// no-ops, after a sequentially-consistent fence over everything written
// so far. This is the sole publish point: once it returns, a consumer
// spinning on the old loop falls through into the code that was just
// written ahead of it.
func (p *Page) breakLoop() {
	buf := p.region.Bytes()
	fence()
	atomicWrite16((*uint16)(ptrAt(buf, int(p.loopPos))), uint16(asm.OpNop)|uint16(asm.OpNop)<<8)
}

// insertJmpBridge writes a 5-byte near jump at the end of p's code region
// (p.codeSize+2 .. p.codeSize+7) that lands on the base of next. This
// range is never reached by the self-loop check since it sits past
// codeSize, so it is safe to write before the bridging loop is released.
func (p *Page) insertJmpBridge(next *Page) error {
	buf := p.region.Bytes()
	dst := uint64(next.addressAt(0))
	src := uint64(p.addressAt(p.codeSize + 2))
	_, err := asm.Jmp(buf[p.codeSize+2:p.codeSize+7], dst, src)
	if err != nil {
		return err
	}
	return nil
}

// alignLoopPos returns the next word-aligned position strictly after
// writePos, matching original_source/src/lib.rs's JitPage::loop_pos: even
// a writePos that already sits on a 4-byte boundary advances a full word,
// guaranteeing the new self-loop never overlaps the instruction bytes
// just written.
func alignLoopPos(writePos int) int {
	return (writePos + 4) / 4 * 4
}

// maxSoleInstrLen is the largest instruction length guaranteed to be
// placeable even as the very first instruction written to a freshly
// mapped page (write_pos starts at 2 there). The spec states the bound as
// codeSize-2 and separately states the stop condition as
// write_pos+len >= codeSize; applied together with write_pos==2 on a
// fresh page, those two statements are off by one from each other (an
// instruction of exactly codeSize-2 would immediately re-trigger the stop
// condition on the very next page too, recursing without end). This
// implementation resolves the inconsistency in favor of the explicit stop
// condition and rejects anything that cannot make progress on a fresh
// page, see DESIGN.md.
func maxSoleInstrLen(codeSize int) int {
	return codeSize - 3
}

// PushInstrs is a page's sole mutating operation. It copies instructions
// from stream into the page starting just past the current self-loop,
// stopping and bridging to a new page if stream does not fit, then
// publishes the page (or chain of pages) it wrote by releasing the old
// self-loop. It returns the page a subsequent push should target, which
// is p itself unless bridging occurred.
//
// On error, PushInstrs closes any page it mapped itself (directly or via
// a nested PushInstrs call it made) before returning, so a caller never
// has to clean up after a failed push; it never closes p, the receiver,
// since p is owned by the caller. Every byte written beyond the
// previously published loopPos during a failed attempt is left behind in
// p, but is guaranteed to be overwritten with no-ops the next time
// PushInstrs is called on p (see the fill below), so the page invariant
// that everything past loopPos is either live code or a no-op holds
// again before anything new is published.
func (p *Page) PushInstrs(stream asm.InstrStream) (*Page, error) {
	buf := p.region.Bytes()
	writePos := int(p.loopPos) + 2

	// A previous, failed PushInstrs call on p may have copied bytes past
	// writePos without ever publishing them (loopPos is only advanced on
	// success). Reset the unpublished region to no-ops before writing into
	// it again so those stale bytes can never be observed by a consumer.
	for i := writePos; i < p.codeSize; i++ {
		buf[i] = asm.OpNop
	}

	var deferred []byte
	for {
		instr, ok := stream.Next()
		if !ok {
			break
		}
		if len(instr) > maxSoleInstrLen(p.codeSize) {
			return nil, &InstructionTooLargeError{Len: len(instr), Max: maxSoleInstrLen(p.codeSize)}
		}
		if writePos+len(instr) >= p.codeSize {
			deferred = instr
			break
		}
		copy(buf[writePos:writePos+len(instr)], instr)
		writePos += len(instr)
	}

	if deferred != nil {
		next, err := Map(p.alloc, p.pageSize)
		if err != nil {
			return nil, err
		}

		afterFirst, err := next.PushInstrs(asm.NewSliceStream([][]byte{deferred}))
		if err != nil {
			// next itself was never handed off anywhere; the nested call
			// already closed anything it mapped beyond next on failure.
			next.Close()
			return nil, err
		}

		tail, err := afterFirst.PushInstrs(stream)
		if err != nil {
			closeChain(afterFirst)
			return nil, err
		}

		if err := p.insertJmpBridge(next); err != nil {
			closeChain(tail)
			return nil, err
		}
		p.breakLoop()
		p.loopPos = uint32(p.codeSize)
		next.prev = p
		return tail, nil
	}

	newLoopPos := alignLoopPos(writePos)
	asm.Jmp8(buf[newLoopPos:newLoopPos+2], uint64(newLoopPos), uint64(newLoopPos))
	p.breakLoop()
	p.loopPos = uint32(newLoopPos)
	return p, nil
}

// Close releases this page's mapping. It does not follow prev; callers
// own the chain's teardown order (see Buffer.Close).
func (p *Page) Close() error {
	return p.region.Close()
}

// closeChain unlinks and closes start and everything reachable through
// its prev pointers, iteratively so an abandoned chain of any depth can't
// overflow the goroutine stack. Used both by Buffer.Close and by
// PushInstrs to release a page (or sub-chain) that was mapped but never
// linked into a Buffer because a later step of the push failed.
func closeChain(start *Page) error {
	var firstErr error
	for page := start; page != nil; {
		prev := page.prev
		page.prev = nil
		if err := page.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		page = prev
	}
	return firstErr
}
