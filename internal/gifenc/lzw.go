package gifenc

import (
	"io"
)

// maxCode is the last code a 12-bit GIF table can hold. The table is reset
// with a clear code instead of assigning it.
const maxCode = 1<<12 - 1

// lzwEncoder implements the variable-width, LSB-first LZW variant used by GIF.
// Codes are packed as they are emitted; the caller splits the result into
// sub-blocks.
type lzwEncoder struct {
	out []byte

	// bits holds pending output, nBits how many of its low bits are valid.
	bits  uint32
	nBits uint

	litWidth uint
	width    uint
	// hi is the code most recently assigned; overflow is the first code
	// needing width+1 bits.
	hi       uint32
	overflow uint32

	// table maps prefix<<8|literal to the code of that string.
	table map[uint32]uint32
}

// lzwEncode compresses color indices with the given minimum code size.
// Every index must be below 1<<litWidth.
func lzwEncode(indices []uint8, litWidth int) []byte {
	clearCode := uint32(1) << litWidth
	e := &lzwEncoder{
		out:      make([]byte, 0, len(indices)/2+16),
		litWidth: uint(litWidth),
		width:    uint(litWidth) + 1,
		hi:       clearCode + 1,
		overflow: clearCode << 1,
		table:    make(map[uint32]uint32, 1<<12),
	}

	e.writeCode(clearCode)
	if len(indices) == 0 {
		e.writeCode(clearCode + 1)
		e.flush()
		return e.out
	}

	saved := uint32(indices[0])
	for _, x := range indices[1:] {
		lit := uint32(x)
		key := saved<<8 | lit
		if code, ok := e.table[key]; ok {
			saved = code
			continue
		}
		e.writeCode(saved)
		saved = lit
		if e.incHi() {
			continue
		}
		e.table[key] = e.hi
	}

	e.writeCode(saved)
	// Keep the width in step with a decoder, which grows its table after
	// every code it reads, before the end-of-information code.
	e.incHi()
	e.writeCode(clearCode + 1)
	e.flush()
	return e.out
}

// incHi advances to the next free code, widening codes as needed. It reports
// whether the table filled up and was reset.
func (e *lzwEncoder) incHi() bool {
	e.hi++
	if e.hi == e.overflow {
		e.width++
		e.overflow <<= 1
	}
	if e.hi == maxCode {
		clearCode := uint32(1) << e.litWidth
		e.writeCode(clearCode)
		e.width = e.litWidth + 1
		e.hi = clearCode + 1
		e.overflow = clearCode << 1
		clear(e.table)
		return true
	}
	return false
}

func (e *lzwEncoder) writeCode(code uint32) {
	e.bits |= code << e.nBits
	e.nBits += e.width
	for e.nBits >= 8 {
		e.out = append(e.out, byte(e.bits))
		e.bits >>= 8
		e.nBits -= 8
	}
}

func (e *lzwEncoder) flush() {
	if e.nBits > 0 {
		e.out = append(e.out, byte(e.bits))
		e.bits, e.nBits = 0, 0
	}
}

// writeSubBlocks writes data as length-prefixed blocks of at most 255 bytes
// followed by the block terminator.
func writeSubBlocks(w io.Writer, data []byte) error {
	var size [1]byte
	for len(data) > 0 {
		n := min(len(data), maxSubBlockLength)
		size[0] = byte(n)
		if _, err := w.Write(size[:]); err != nil {
			return err
		}
		if _, err := w.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	size[0] = blockTerminator
	_, err := w.Write(size[:])
	return err
}
