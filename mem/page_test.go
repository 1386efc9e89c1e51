package mem

import "testing"

// Grounded on exec/internal/compile/allocator_test.go's TestMMapAllocator.
func TestMMapAllocatorAllocate(t *testing.T) {
	a := MMapAllocator{}

	p, err := a.Allocate(4096)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	defer p.Close()

	b := p.Bytes()
	if len(b) != 4096 {
		t.Fatalf("len(Bytes()) = %d, want 4096", len(b))
	}

	b[0] = 0xEB
	b[1] = 0xFE
	if b[0] != 0xEB || b[1] != 0xFE {
		t.Fatal("page is not writable")
	}
}

func TestMMapAllocatorAllocateFilled(t *testing.T) {
	a := MMapAllocator{}

	p, err := a.AllocateFilled(256, 0x90)
	if err != nil {
		t.Fatalf("AllocateFilled: %v", err)
	}
	defer p.Close()

	for i, c := range p.Bytes() {
		if c != 0x90 {
			t.Fatalf("byte %d = %#x, want 0x90", i, c)
		}
	}
}

func TestDoubleClose(t *testing.T) {
	a := MMapAllocator{}
	p, err := a.Allocate(4096)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := p.Close(); err != ErrAlreadyClosed {
		t.Errorf("second Close = %v, want ErrAlreadyClosed", err)
	}
}
