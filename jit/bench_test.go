package jit

import (
	"testing"

	"jitbuf/asm"
)

// Grounded on original_source/benches/throughput.rs's write_throughput:
// measure the cost of repeatedly pushing a single small instruction, with
// no consumer running and the pushed code never executed.
func BenchmarkPushThroughput(b *testing.B) {
	buf, err := New()
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	defer buf.Close()

	instr := []byte{asm.OpXor, 0xC0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := buf.PushInstrs(asm.NewSliceStream([][]byte{instr})); err != nil {
			b.Fatalf("PushInstrs: %v", err)
		}
	}
}

// Grounded on original_source/benches/throughput.rs's write_latency: the
// round-trip cost of mapping a buffer, capturing its entry point, and
// pushing a single ret before the consumer can return.
func BenchmarkExecLatency(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buf, err := New()
		if err != nil {
			b.Fatalf("New: %v", err)
		}
		fn := buf.StartFunc()
		if err := buf.PushInstrs(asm.NewSliceStream([][]byte{{asm.OpRet}})); err != nil {
			b.Fatalf("PushInstrs: %v", err)
		}
		fn.Call0()
		buf.Close()
	}
}
