// Package gifenc encodes frame sequences as animated GIF89a files.
//
// Each frame is quantized to at most 256 colors by grouping pixels on their
// 5-bit-per-channel value, compressed with the GIF flavor of LZW and written
// with its own graphic control block. The first frame's palette becomes the
// global color table; later frames carry a local table only when their
// palette differs.
package gifenc

const (
	signature = "GIF89a"

	extensionIntroducer = 0x21
	graphicControlLabel = 0xF9
	graphicControlSize  = 0x04
	applicationLabel    = 0xFF
	applicationSize     = 0x0B
	imageSeparator      = 0x2C
	trailer             = 0x3B
	blockTerminator     = 0x00

	netscapeID       = "NETSCAPE2.0"
	netscapeSubBlock = 0x03
	netscapeLoopID   = 0x01

	// Logical screen descriptor packed field:
	// bit 7 global table present, bits 4-6 color resolution, bits 0-2 table size
	colorTableFlag    = 0x80
	colorResolution8  = 0x70
	maxSubBlockLength = 255
	maxColors         = 256
)

// tableBits returns the smallest n >= 1 with 1<<n >= colors.
func tableBits(colors int) int {
	n := 1
	for 1<<n < colors {
		n++
	}
	return n
}

// minCodeSize returns the LZW literal width for a color table of 1<<bits
// entries. GIF requires at least 2.
func minCodeSize(bits int) int {
	return max(bits, 2)
}
