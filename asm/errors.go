package asm

import "errors"

// ErrBridgeOutOfRange is returned by Jmp when the relative displacement
// between two addresses does not fit in a signed 32-bit near jump. Treated
// as fatal by callers: a code arena spanning more than ±2GiB is a
// configuration bug, not something to recover from at instruction-encode
// time.
var ErrBridgeOutOfRange = errors.New("asm: bridge jump displacement exceeds int32 range")
