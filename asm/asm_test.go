package asm

import (
	"bytes"
	"testing"
)

// Grounded on original_source/src/x64asm.rs's test_assemble_macro.
func TestBuilderWireFormat(t *testing.T) {
	b := NewBuilder(5)
	b.Nop().Nop().Nop().Jmp(0, 0).Nop()
	if err := b.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{
		1, 0x90,
		1, 0x90,
		1, 0x90,
		5, 0xE9, 0xFB, 0xFF, 0xFF, 0xFF,
		1, 0x90,
		0,
	}
	if got := b.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("Bytes() = % x, want % x", got, want)
	}
}

// Grounded on original_source/src/x64asm.rs's test_asm_iter.
func TestBuilderStreamIteration(t *testing.T) {
	b := NewBuilder(5)
	b.Nop().Nop().Nop().Jmp(0, 0).Nop()

	var got [][]byte
	s := b.Stream()
	for {
		instr, ok := s.Next()
		if !ok {
			break
		}
		cp := append([]byte(nil), instr...)
		got = append(got, cp)
	}

	want := [][]byte{
		{0x90}, {0x90}, {0x90}, {0xE9, 0xFB, 0xFF, 0xFF, 0xFF}, {0x90},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d instrs, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("instr[%d] = % x, want % x", i, got[i], want[i])
		}
	}
}

// Grounded on original_source/src/x64asm.rs's test_arith_regreg.
func TestXorRegReg(t *testing.T) {
	buf := make([]byte, MaxInstrLen)
	n := Xor(buf, AX, BX)
	want := []byte{0x31, 0xD8}
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("Xor(ax, bx) = % x, want % x", buf[:n], want)
	}
}

func TestJmp8SelfLoop(t *testing.T) {
	buf := make([]byte, 2)
	n := Jmp8(buf, 100, 100)
	if n != 2 {
		t.Fatalf("Jmp8 wrote %d bytes, want 2", n)
	}
	want := []byte{0xEB, 0xFE}
	if !bytes.Equal(buf, want) {
		t.Errorf("Jmp8(x, x) = % x, want % x", buf, want)
	}
}

func TestJmpOutOfRange(t *testing.T) {
	buf := make([]byte, 5)
	_, err := Jmp(buf, 1<<40, 0)
	if err != ErrBridgeOutOfRange {
		t.Errorf("Jmp across >2GiB = %v, want ErrBridgeOutOfRange", err)
	}
}

func TestDisassemble(t *testing.T) {
	b := NewBuilder(3)
	b.Nop().Ret().Jmp8(0, 0)
	got := Disassemble(b.Stream())
	want := []string{"nop", "ret", "jmp8 -2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}
