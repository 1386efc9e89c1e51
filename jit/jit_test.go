package jit

import (
	"sync"
	"testing"

	"jitbuf/asm"
)

// Grounded on original_source/src/lib.rs's #[test] fn test(): assemble
// "xor ax, ax; add ax, 20; ret" and confirm the consumer, already
// executing inside an empty buffer's self-loop, observes the pushed code
// and returns 20.
func TestReturnTwenty(t *testing.T) {
	buf, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer buf.Close()

	fn := buf.StartFunc()

	var wg sync.WaitGroup
	wg.Add(1)
	var result uint64
	go func() {
		defer wg.Done()
		result = fn.Call0()
	}()

	b := asm.NewBuilder(4)
	b.RexW().RegReg(asm.Xor, asm.AX, asm.AX)
	b.RexW().RegImm(asm.AddImm, asm.AX, 20)
	b.Ret()
	if err := b.Err(); err != nil {
		t.Fatalf("build: %v", err)
	}

	if err := buf.PushInstrs(b.Stream()); err != nil {
		t.Fatalf("PushInstrs: %v", err)
	}

	wg.Wait()
	if result != 20 {
		t.Fatalf("result = %d, want 20", result)
	}
}

// Pushing zero instructions must be harmless: the consumer is released
// into a fresh self-loop further along and still returns once a ret is
// pushed.
func TestEmptyRelease(t *testing.T) {
	buf, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer buf.Close()

	fn := buf.StartFunc()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn.Call0()
	}()

	if err := buf.PushInstrs(asm.NewSliceStream(nil)); err != nil {
		t.Fatalf("PushInstrs(empty): %v", err)
	}

	b := asm.NewBuilder(1)
	b.Ret()
	if err := buf.PushInstrs(b.Stream()); err != nil {
		t.Fatalf("PushInstrs(ret): %v", err)
	}

	wg.Wait()
}

// With a small page size, a push that cannot fit must bridge to a new
// page via a 5-byte near jump rather than fail, and the chain must grow
// by exactly one page per bridge.
func TestPageBridge(t *testing.T) {
	buf, err := NewSize(64)
	if err != nil {
		t.Fatalf("NewSize: %v", err)
	}
	defer buf.Close()

	first := buf.tail

	instrs := make([][]byte, 0, 16)
	for i := 0; i < 16; i++ {
		instrs = append(instrs, []byte{asm.OpNop, asm.OpNop, asm.OpNop, asm.OpNop})
	}
	if err := buf.PushInstrs(asm.NewSliceStream(instrs)); err != nil {
		t.Fatalf("PushInstrs: %v", err)
	}

	if buf.tail == first {
		t.Fatal("expected a new tail page after overflow")
	}
	if buf.tail.prev != first {
		t.Fatal("new tail's prev must be the original page")
	}
}

// A long chain of pushes must unlink iteratively; Close on a chain with
// thousands of pages must not blow the goroutine stack.
func TestChainTeardown(t *testing.T) {
	buf, err := NewSize(64)
	if err != nil {
		t.Fatalf("NewSize: %v", err)
	}

	for i := 0; i < 10000; i++ {
		instrs := [][]byte{{asm.OpNop, asm.OpNop, asm.OpNop, asm.OpNop, asm.OpNop, asm.OpNop}}
		if err := buf.PushInstrs(asm.NewSliceStream(instrs)); err != nil {
			t.Fatalf("PushInstrs #%d: %v", i, err)
		}
	}

	if err := buf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := buf.Close(); err != ErrAlreadyClosed {
		t.Fatalf("second Close = %v, want ErrAlreadyClosed", err)
	}
}

// An instruction longer than the single-instruction ceiling must fail
// fast as InstructionTooLargeError rather than recurse into new pages
// forever.
func TestInstructionTooLarge(t *testing.T) {
	buf, err := NewSize(64)
	if err != nil {
		t.Fatalf("NewSize: %v", err)
	}
	defer buf.Close()

	huge := make([]byte, 64)
	err = buf.PushInstrs(asm.NewSliceStream([][]byte{huge}))
	if _, ok := err.(*InstructionTooLargeError); !ok {
		t.Fatalf("err = %v (%T), want *InstructionTooLargeError", err, err)
	}
}

// A page size at or below the bridge reserve is rejected outright.
func TestPageTooSmall(t *testing.T) {
	if _, err := NewSize(8); err != ErrPageTooSmall {
		t.Fatalf("err = %v, want ErrPageTooSmall", err)
	}
}
