package gifenc

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Quantized is a frame reduced to a palette and one index per pixel.
type Quantized struct {
	Width   int
	Height  int
	Palette color.Palette // 1..256 opaque entries
	Indices []uint8       // row-major, len = Width*Height

	// Overflow counts distinct reduced colors that did not fit the palette
	// and were mapped to their nearest entry.
	Overflow int
}

const (
	keyCount  = 1 << 15
	keyUnseen = -1
)

// reduce drops each channel to 5 bits and packs them into a 15-bit key.
func reduce(r, g, b uint8) uint16 {
	return uint16(r>>3)<<10 | uint16(g>>3)<<5 | uint16(b>>3)
}

// keyColor expands a 15-bit key back to the palette color it stands for.
func keyColor(key uint16) color.RGBA {
	return color.RGBA{
		R: uint8(key>>10) << 3,
		G: uint8(key>>5&0x1F) << 3,
		B: uint8(key&0x1F) << 3,
		A: 0xFF,
	}
}

// quantizer assigns palette slots to reduced colors in first-seen order.
type quantizer struct {
	slot    [keyCount]int16
	palette color.Palette
	lab     [][3]float64 // palette entries in CIE L*a*b*, built on first overflow
	extra   int
}

func newQuantizer() *quantizer {
	q := &quantizer{palette: make(color.Palette, 0, maxColors)}
	for i := range q.slot {
		q.slot[i] = keyUnseen
	}
	return q
}

func (q *quantizer) index(r, g, b uint8) uint8 {
	key := reduce(r, g, b)
	if s := q.slot[key]; s != keyUnseen {
		return uint8(s)
	}

	if len(q.palette) < maxColors {
		q.slot[key] = int16(len(q.palette))
		q.palette = append(q.palette, keyColor(key))
		return uint8(q.slot[key])
	}

	// The palette is full and stays fixed from here on, so the nearest
	// entry for this key can be memoized.
	q.extra++
	s := q.nearest(keyColor(key))
	q.slot[key] = int16(s)
	return s
}

func (q *quantizer) nearest(c color.RGBA) uint8 {
	if q.lab == nil {
		q.lab = make([][3]float64, len(q.palette))
		for i, p := range q.palette {
			cf, _ := colorful.MakeColor(p)
			l, a, b := cf.Lab()
			q.lab[i] = [3]float64{l, a, b}
		}
	}

	cf, _ := colorful.MakeColor(c)
	l, a, b := cf.Lab()

	best, bestDist := 0, -1.0
	for i, p := range q.lab {
		dl, da, db := l-p[0], a-p[1], b-p[2]
		d := dl*dl + da*da + db*db
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return uint8(best)
}

// Quantize reduces img to at most 256 colors.
//
// Colors are grouped by their 5-bit-per-channel value and the first 256
// groups met in scan order form the palette. Pixels of any later group take
// the perceptually closest palette entry. Alpha is ignored.
func Quantize(img image.Image) *Quantized {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &Quantized{Width: w, Height: h, Indices: make([]uint8, w*h)}
	q := newQuantizer()

	if rgba, ok := img.(*image.RGBA); ok {
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := rgba.Pix[rgba.PixOffset(b.Min.X, y):]
			for x := 0; x < w; x++ {
				p := row[x*4 : x*4+3 : x*4+3]
				out.Indices[i] = q.index(p[0], p[1], p[2])
				i++
			}
		}
	} else {
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
				out.Indices[i] = q.index(c.R, c.G, c.B)
				i++
			}
		}
	}

	if len(q.palette) == 0 {
		// Zero-area frame; a table still needs one entry
		q.palette = append(q.palette, color.RGBA{A: 0xFF})
	}
	out.Palette = q.palette
	out.Overflow = q.extra
	return out
}

// samePalette reports whether two palettes hold the same colors in order.
func samePalette(a, b color.Palette) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		r1, g1, b1, a1 := a[i].RGBA()
		r2, g2, b2, a2 := b[i].RGBA()
		if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
			return false
		}
	}
	return true
}
