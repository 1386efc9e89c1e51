package asm

import "fmt"

// mnemonic table for the opcode catalog this package can emit. Grounded in
// bbcdisasm's opcode-table/decode-fn approach, scaled down to the handful
// of forms the jit encoder produces.
var regRegMnemonic = map[byte]string{
	OpAdd: "add", OpOr: "or", OpAdc: "adc", OpSbb: "sbb",
	OpAnd: "and", OpSub: "sub", OpXor: "xor", OpCmp: "cmp",
	OpAdd8: "add8", OpOr8: "or8", OpAdc8: "adc8", OpSbb8: "sbb8",
	OpAnd8: "and8", OpSub8: "sub8", OpXor8: "xor8", OpCmp8: "cmp8",
}

var extMnemonic = map[ExtOp]string{
	ExtAdd: "add", ExtOr: "or", ExtAdc: "adc", ExtSbb: "sbb",
	ExtAnd: "and", ExtSub: "sub", ExtXor: "xor", ExtCmp: "cmp",
}

var regName = [8]string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"}

// Disassemble decodes every instruction in stream back to a mnemonic
// string, for debugging and for cmd/jitdemo's dump subcommand. It understands
// only the opcode catalog this package itself emits; unrecognized bytes
// are rendered as a raw hex dump of the instruction.
func Disassemble(stream InstrStream) []string {
	var out []string
	for {
		instr, ok := stream.Next()
		if !ok {
			break
		}
		out = append(out, disassembleOne(instr))
	}
	return out
}

// instrLen reports how many bytes the instruction starting at b occupies,
// using the same opcode catalog disassembleOne recognizes. Unrecognized
// opcodes are treated as a single raw byte so a walk over arbitrary bytes
// always makes progress.
func instrLen(b []byte) int {
	switch b[0] {
	case OpNop, OpRet, OpRexW:
		return 1
	case OpJmp8:
		return 2
	case OpJmp:
		return 5
	case OpArith:
		return 6
	case OpArith8:
		return 3
	default:
		if _, ok := regRegMnemonic[b[0]]; ok {
			return 2
		}
		return 1
	}
}

// RawStream adapts a flat byte slice of concatenated, unprefixed
// instructions into an InstrStream by walking it with instrLen, rather
// than expecting the length-prefixed wire format Builder produces. Only
// this package's opcode catalog is split at instruction boundaries; any
// other byte is yielded on its own.
type RawStream struct {
	code []byte
	pos  int
}

// NewRawStream wraps code as an InstrStream.
func NewRawStream(code []byte) *RawStream {
	return &RawStream{code: code}
}

// Next implements InstrStream.
func (s *RawStream) Next() ([]byte, bool) {
	if s.pos >= len(s.code) {
		return nil, false
	}
	n := instrLen(s.code[s.pos:])
	end := s.pos + n
	if end > len(s.code) {
		end = len(s.code)
	}
	out := s.code[s.pos:end]
	s.pos = end
	return out, true
}

func disassembleOne(instr []byte) string {
	if len(instr) == 0 {
		return "<empty>"
	}
	switch instr[0] {
	case OpNop:
		return "nop"
	case OpRet:
		return "ret"
	case OpRexW:
		return "rex.w"
	case OpJmp8:
		if len(instr) >= 2 {
			return fmt.Sprintf("jmp8 %+d", int8(instr[1]))
		}
	case OpJmp:
		if len(instr) >= 5 {
			rel := int32(uint32(instr[1]) | uint32(instr[2])<<8 | uint32(instr[3])<<16 | uint32(instr[4])<<24)
			return fmt.Sprintf("jmp %+d", rel)
		}
	case OpArith, OpArith8:
		if len(instr) >= 2 {
			op := ExtOp(instr[1] >> 3 & 0x7)
			dst := regName[instr[1]&0x7]
			return fmt.Sprintf("%si %s, <imm>", extMnemonic[op], dst)
		}
	default:
		if mnem, ok := regRegMnemonic[instr[0]]; ok && len(instr) >= 2 {
			dst := regName[instr[1]&0x7]
			src := regName[instr[1]>>3&0x7]
			return fmt.Sprintf("%s %s, %s", mnem, dst, src)
		}
	}
	return fmt.Sprintf("db % x", instr)
}
