package gifenc

import (
	"bytes"
	"compress/lzw"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"io"
	"math"
	"math/rand"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func encodeFrames(t *testing.T, opts Options, frames ...image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := NewEncoder(&buf, opts)
	for _, f := range frames {
		require.NoError(t, enc.WriteFrame(f))
	}
	require.NoError(t, enc.Close())
	return buf.Bytes()
}

// frameInfo is what walkGIF reports about each image block.
type frameInfo struct {
	localTable bool
	litWidth   int
	subBlocks  []int
}

// walkGIF walks the block structure of a GIF and fails the test on anything
// malformed.
func walkGIF(t *testing.T, data []byte) []frameInfo {
	t.Helper()
	require.GreaterOrEqual(t, len(data), 13)
	require.Equal(t, "GIF89a", string(data[:6]))

	pos := 13
	if packed := data[10]; packed&colorTableFlag != 0 {
		pos += 3 << (packed&0x07 + 1)
	}

	skipSubBlocks := func() []int {
		var sizes []int
		for {
			require.Less(t, pos, len(data), "truncated sub-blocks")
			n := int(data[pos])
			pos++
			if n == 0 {
				return sizes
			}
			sizes = append(sizes, n)
			pos += n
		}
	}

	var frames []frameInfo
	for {
		require.Less(t, pos, len(data), "missing trailer")
		switch data[pos] {
		case extensionIntroducer:
			pos += 2
			skipSubBlocks()
		case imageSeparator:
			packed := data[pos+9]
			pos += 10
			fi := frameInfo{localTable: packed&colorTableFlag != 0}
			if fi.localTable {
				pos += 3 << (packed&0x07 + 1)
			}
			fi.litWidth = int(data[pos])
			pos++
			fi.subBlocks = skipSubBlocks()
			frames = append(frames, fi)
		case trailer:
			require.Equal(t, len(data)-1, pos, "data after trailer")
			return frames
		default:
			t.Fatalf("unexpected block 0x%02x at %d", data[pos], pos)
		}
	}
}

func TestEncode_SolidFrame(t *testing.T) {
	data := encodeFrames(t, Options{Delay: 10}, solid(2, 2, color.RGBA{R: 255, A: 255}))

	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, g.Image, 1)
	assert.Equal(t, 2, g.Config.Width)
	assert.Equal(t, 2, g.Config.Height)
	assert.Equal(t, 0, g.LoopCount)
	assert.Equal(t, []int{10}, g.Delay)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, color.RGBA{R: 248, A: 255}, g.Image[0].At(x, y))
		}
	}

	frames := walkGIF(t, data)
	require.Len(t, frames, 1)
	assert.False(t, frames[0].localTable)
	assert.Equal(t, 2, frames[0].litWidth)
}

func TestEncode_MultiFrame(t *testing.T) {
	colors := []color.RGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
		{R: 255, G: 255, A: 255},
	}
	var frames []image.Image
	for _, c := range colors {
		frames = append(frames, solid(16, 9, c))
	}

	var buf bytes.Buffer
	var progress []int
	err := Encode(context.Background(), &buf, frames, Options{
		Delay:     DelayForFPS(10),
		LoopCount: 3,
		Workers:   2,
		Progress:  func(done, total int) { progress = append(progress, done) },
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, progress)

	g, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	require.Len(t, g.Image, len(colors))
	assert.Equal(t, 3, g.LoopCount)
	for i, c := range colors {
		assert.Equal(t, 10, g.Delay[i])
		assert.Equal(t, image.Rect(0, 0, 16, 9), g.Image[i].Bounds())
		want := color.RGBA{R: c.R &^ 7, G: c.G &^ 7, B: c.B &^ 7, A: 255}
		assert.Equal(t, want, g.Image[i].At(5, 5), "frame %d", i)
	}
}

func TestEncode_PlayOnce(t *testing.T) {
	data := encodeFrames(t, Options{LoopCount: -1}, solid(1, 1, color.RGBA{A: 255}))
	assert.NotContains(t, string(data), netscapeID)

	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, -1, g.LoopCount)
}

func TestEncode_LocalColorTables(t *testing.T) {
	red := solid(4, 4, color.RGBA{R: 255, A: 255})
	blue := solid(4, 4, color.RGBA{B: 255, A: 255})

	data := encodeFrames(t, Options{}, red, blue, red)
	frames := walkGIF(t, data)
	require.Len(t, frames, 3)
	assert.False(t, frames[0].localTable)
	assert.True(t, frames[1].localTable)
	assert.False(t, frames[2].localTable)

	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 248, A: 255}, g.Image[0].At(0, 0))
	assert.Equal(t, color.RGBA{B: 248, A: 255}, g.Image[1].At(0, 0))
	assert.Equal(t, color.RGBA{R: 248, A: 255}, g.Image[2].At(0, 0))
}

func TestEncode_ManyColors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}

	q := Quantize(img)
	assert.Len(t, q.Palette, maxColors)
	assert.Equal(t, 32*32-maxColors, q.Overflow)

	data := encodeFrames(t, Options{}, img)
	frames := walkGIF(t, data)
	require.Len(t, frames, 1)
	assert.Equal(t, 8, frames[0].litWidth)

	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)

	// The first sixteen rows hold the first 256 reduced colors and are exact.
	for y := 0; y < 16; y++ {
		for x := 0; x < 64; x++ {
			want := color.RGBA{R: uint8(x*4) &^ 7, G: uint8(y*4) &^ 7, B: 128, A: 255}
			require.Equal(t, want, g.Image[0].At(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestEncode_SubBlocks(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(8)) << 5
		img.Pix[i+1] = uint8(rng.Intn(8)) << 5
		img.Pix[i+3] = 255
	}

	frames := walkGIF(t, encodeFrames(t, Options{}, img))
	require.Len(t, frames, 1)
	require.Greater(t, len(frames[0].subBlocks), 1)
	for i, n := range frames[0].subBlocks {
		assert.LessOrEqual(t, n, maxSubBlockLength)
		if i < len(frames[0].subBlocks)-1 {
			assert.Equal(t, maxSubBlockLength, n)
		}
	}
}

func TestEncode_Errors(t *testing.T) {
	var buf bytes.Buffer

	err := Encode(context.Background(), &buf, nil, Options{})
	assert.ErrorIs(t, err, ErrNoFrames)

	enc := NewEncoder(&buf, Options{})
	assert.ErrorIs(t, enc.Close(), ErrNoFrames)
	assert.Zero(t, buf.Len())
	assert.ErrorIs(t, enc.WriteFrame(solid(1, 1, color.RGBA{})), ErrClosed)

	err = Encode(context.Background(), &buf, []image.Image{
		solid(4, 4, color.RGBA{}),
		solid(4, 5, color.RGBA{}),
	}, Options{})
	assert.ErrorIs(t, err, ErrFrameSize)

	enc = NewEncoder(&buf, Options{})
	require.NoError(t, enc.WriteFrame(solid(4, 4, color.RGBA{})))
	assert.ErrorIs(t, enc.WriteFrame(solid(3, 4, color.RGBA{})), ErrFrameSize)
	assert.Equal(t, 1, enc.Frames())

	err = Encode(context.Background(), &buf, []image.Image{image.NewRGBA(image.Rect(0, 0, 0, 3))}, Options{})
	assert.ErrorIs(t, err, ErrDimensions)

	err = Encode(context.Background(), &buf, []image.Image{image.NewRGBA(image.Rect(0, 0, 70000, 1))}, Options{})
	assert.ErrorIs(t, err, ErrDimensions)
}

func TestEncode_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Encode(ctx, io.Discard, []image.Image{solid(2, 2, color.RGBA{})}, Options{})
	assert.True(t, errors.Is(err, context.Canceled))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncode_WriteError(t *testing.T) {
	err := Encode(context.Background(), failingWriter{}, []image.Image{solid(256, 256, color.RGBA{A: 255})}, Options{})
	assert.ErrorContains(t, err, "disk full")
}

func TestDelayForFPS(t *testing.T) {
	tests := []struct {
		fps  float64
		want int
	}{
		{10, 10},
		{30, 3},
		{15, 7},
		{25, 4},
		{100, 1},
		{0, 0},
		{-5, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DelayForFPS(tt.fps), "fps %g", tt.fps)
	}
}

func TestTableBits(t *testing.T) {
	tests := []struct{ colors, bits, litWidth int }{
		{1, 1, 2},
		{2, 1, 2},
		{3, 2, 2},
		{4, 2, 2},
		{5, 3, 3},
		{129, 8, 8},
		{256, 8, 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.bits, tableBits(tt.colors), "colors %d", tt.colors)
		assert.Equal(t, tt.litWidth, minCodeSize(tableBits(tt.colors)), "colors %d", tt.colors)
	}
}

func lzwReference(t *testing.T, indices []uint8, litWidth int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.LSB, litWidth)
	_, err := w.Write(indices)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestLZW_MatchesStandardLibrary(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	tests := []struct {
		name     string
		litWidth int
		n        int
		alphabet int
	}{
		{"empty", 2, 0, 4},
		{"single", 2, 1, 4},
		{"small alphabet", 2, 5000, 4},
		{"table resets", 8, 200000, 256},
		{"runs", 3, 100000, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			indices := make([]uint8, tt.n)
			for i := range indices {
				indices[i] = uint8(rng.Intn(tt.alphabet))
			}

			got := lzwEncode(indices, tt.litWidth)
			assert.Equal(t, lzwReference(t, indices, tt.litWidth), got)

			r := lzw.NewReader(bytes.NewReader(got), lzw.LSB, tt.litWidth)
			defer r.Close()
			decoded, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, len(indices), len(decoded))
			assert.True(t, bytes.Equal(indices, decoded))
		})
	}
}

func TestWriteSubBlocks(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{0, nil},
		{1, []int{1}},
		{255, []int{255}},
		{256, []int{255, 1}},
		{600, []int{255, 255, 90}},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		require.NoError(t, writeSubBlocks(&buf, make([]byte, tt.n)))

		data := buf.Bytes()
		var sizes []int
		for pos := 0; ; {
			n := int(data[pos])
			pos++
			if n == 0 {
				assert.Equal(t, len(data), pos)
				break
			}
			sizes = append(sizes, n)
			pos += n
		}
		assert.Equal(t, tt.want, sizes, "n=%d", tt.n)
	}
}

func TestQuantize_FirstSeenOrder(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 200, A: 255})
	img.SetRGBA(1, 0, color.RGBA{G: 100, A: 255})
	img.SetRGBA(2, 0, color.RGBA{R: 203, A: 255})

	q := Quantize(img)
	require.Len(t, q.Palette, 2)
	assert.Equal(t, color.RGBA{R: 200, A: 255}, q.Palette[0])
	assert.Equal(t, color.RGBA{G: 96, A: 255}, q.Palette[1])
	assert.Equal(t, []uint8{0, 1, 0}, q.Indices)
	assert.Zero(t, q.Overflow)
}

func TestQuantize_GenericImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(2, 2, 4, 3))
	img.Set(2, 2, color.NRGBA{R: 16, G: 32, B: 64, A: 255})
	img.Set(3, 2, color.NRGBA{R: 16, G: 32, B: 64, A: 255})

	q := Quantize(img)
	assert.Equal(t, 2, q.Width)
	assert.Equal(t, 1, q.Height)
	assert.Equal(t, color.Palette{color.RGBA{R: 16, G: 32, B: 64, A: 255}}, q.Palette)
	assert.Equal(t, []uint8{0, 0}, q.Indices)
}

func TestQuantize_NearestForOverflow(t *testing.T) {
	// 256 colors without blue fill the palette, then a reddish one with blue arrives.
	img := image.NewRGBA(image.Rect(0, 0, 257, 1))
	for x := 0; x < 256; x++ {
		img.SetRGBA(x, 0, color.RGBA{R: uint8(x%32) << 3, G: uint8(x/32) << 3, A: 255})
	}
	img.SetRGBA(256, 0, color.RGBA{R: 255, G: 8, B: 16, A: 255})

	q := Quantize(img)
	require.Len(t, q.Palette, maxColors)
	assert.Equal(t, 1, q.Overflow)

	// The overflow pixel takes the palette entry closest to its key color in Lab.
	key, _ := colorful.MakeColor(keyColor(reduce(255, 8, 16)))
	want, best := color.Color(nil), math.MaxFloat64
	for _, p := range q.Palette {
		c, _ := colorful.MakeColor(p)
		if d := key.DistanceLab(c); d < best {
			want, best = p, d
		}
	}
	require.NotNil(t, want)
	assert.Equal(t, want, q.Palette[q.Indices[256]])
	assert.NotZero(t, q.Indices[256], "must not fall back to the first entry")
}

func BenchmarkQuantize(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, 320, 180))
	rng.Read(img.Pix)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Quantize(img)
	}
}

func BenchmarkLZW(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	indices := make([]uint8, 320*180)
	for i := range indices {
		indices[i] = uint8(rng.Intn(64))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		lzwEncode(indices, 8)
	}
}
