package gifenc

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"runtime"

	"snaptools/internal/logging"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoFrames is returned when there is nothing to encode.
	ErrNoFrames = errors.New("gifenc: no frames")

	// ErrFrameSize is returned when a frame differs in size from the first one.
	ErrFrameSize = errors.New("gifenc: frame size mismatch")

	// ErrDimensions is returned for frames outside 1..65535 pixels per side.
	ErrDimensions = errors.New("gifenc: invalid dimensions")

	// ErrClosed is returned when writing to a closed Encoder.
	ErrClosed = errors.New("gifenc: encoder closed")
)

// Options configures encoding
type Options struct {
	// Delay is the time each frame is shown, in hundredths of a second.
	Delay int

	// LoopCount follows image/gif: 0 loops forever, -1 plays once without a
	// NETSCAPE2.0 block, n > 0 repeats n times.
	LoopCount int

	// Workers bounds parallel quantization in Encode; 0 means GOMAXPROCS.
	Workers int

	// Progress, when set, is called after each frame is written.
	Progress func(done, total int)
}

// DelayForFPS converts a frame rate to a per-frame delay in hundredths of a second.
func DelayForFPS(fps float64) int {
	if fps <= 0 {
		return 0
	}
	return int(math.Round(100 / fps))
}

// Encoder streams frames into a GIF89a file. The header and global color
// table are written with the first frame; Close writes the trailer.
type Encoder struct {
	w    *bufio.Writer
	opts Options

	width, height int
	global        color.Palette
	frames        int
	closed        bool
	err           error
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer, opts Options) *Encoder {
	return &Encoder{w: bufio.NewWriter(w), opts: opts}
}

// Frames returns the number of frames written so far.
func (e *Encoder) Frames() int {
	return e.frames
}

// WriteFrame quantizes img and appends it.
func (e *Encoder) WriteFrame(img image.Image) error {
	if err := checkDimensions(img.Bounds().Dx(), img.Bounds().Dy()); err != nil {
		return err
	}
	return e.WriteQuantized(Quantize(img))
}

// WriteQuantized appends an already quantized frame.
func (e *Encoder) WriteQuantized(q *Quantized) error {
	if e.closed {
		return ErrClosed
	}
	if e.err != nil {
		return e.err
	}
	if err := checkDimensions(q.Width, q.Height); err != nil {
		return err
	}

	if e.frames == 0 {
		e.width, e.height = q.Width, q.Height
		e.global = q.Palette
		if err := e.writeHeader(); err != nil {
			e.err = err
			return err
		}
	} else if q.Width != e.width || q.Height != e.height {
		return fmt.Errorf("%w: frame %d is %dx%d, want %dx%d",
			ErrFrameSize, e.frames, q.Width, q.Height, e.width, e.height)
	}

	if err := e.writeImage(q); err != nil {
		e.err = err
		return err
	}
	e.frames++
	return nil
}

// Close writes the trailer and flushes. It fails with ErrNoFrames when no
// frame was written, leaving the output empty.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.err != nil {
		return e.err
	}
	if e.frames == 0 {
		return ErrNoFrames
	}
	if err := e.w.WriteByte(trailer); err != nil {
		return fmt.Errorf("failed to write trailer: %w", err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush gif: %w", err)
	}
	return nil
}

func checkDimensions(w, h int) error {
	if w < 1 || h < 1 || w > math.MaxUint16 || h > math.MaxUint16 {
		return fmt.Errorf("%w: %dx%d", ErrDimensions, w, h)
	}
	return nil
}

func (e *Encoder) writeHeader() error {
	bits := tableBits(len(e.global))

	var buf []byte
	buf = append(buf, signature...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(e.width))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(e.height))
	buf = append(buf, colorTableFlag|colorResolution8|byte(bits-1), 0x00, 0x00) // packed, background, aspect
	buf = appendColorTable(buf, e.global, bits)

	if e.opts.LoopCount >= 0 {
		buf = append(buf, extensionIntroducer, applicationLabel, applicationSize)
		buf = append(buf, netscapeID...)
		buf = append(buf, netscapeSubBlock, netscapeLoopID)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(e.opts.LoopCount))
		buf = append(buf, blockTerminator)
	}

	if _, err := e.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write gif header: %w", err)
	}
	return nil
}

func (e *Encoder) writeImage(q *Quantized) error {
	var buf []byte

	// Graphic control: no disposal, no transparency
	buf = append(buf, extensionIntroducer, graphicControlLabel, graphicControlSize, 0x00)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(e.opts.Delay))
	buf = append(buf, 0x00, blockTerminator)

	buf = append(buf, imageSeparator)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(q.Width))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(q.Height))

	bits := tableBits(len(e.global))
	if e.frames == 0 || samePalette(q.Palette, e.global) {
		buf = append(buf, 0x00)
	} else {
		bits = tableBits(len(q.Palette))
		buf = append(buf, colorTableFlag|byte(bits-1))
		buf = appendColorTable(buf, q.Palette, bits)
	}

	litWidth := minCodeSize(bits)
	buf = append(buf, byte(litWidth))
	if _, err := e.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", e.frames, err)
	}

	if err := writeSubBlocks(e.w, lzwEncode(q.Indices, litWidth)); err != nil {
		return fmt.Errorf("failed to write frame %d data: %w", e.frames, err)
	}
	return nil
}

// appendColorTable writes p padded with black to 1<<bits entries.
func appendColorTable(buf []byte, p color.Palette, bits int) []byte {
	for i := 0; i < 1<<bits; i++ {
		if i >= len(p) {
			buf = append(buf, 0, 0, 0)
			continue
		}
		c := color.RGBAModel.Convert(p[i]).(color.RGBA)
		buf = append(buf, c.R, c.G, c.B)
	}
	return buf
}

// Encode quantizes frames in parallel and writes them to w in order.
func Encode(ctx context.Context, w io.Writer, frames []image.Image, opts Options) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	first := frames[0].Bounds().Size()
	for i, f := range frames {
		if err := checkDimensions(f.Bounds().Dx(), f.Bounds().Dy()); err != nil {
			return err
		}
		if f.Bounds().Size() != first {
			return fmt.Errorf("%w: frame %d is %v, want %v", ErrFrameSize, i, f.Bounds().Size(), first)
		}
	}

	timer := logging.StartTimer(logging.CategoryGIF, "encode")
	quantized, err := QuantizeAll(ctx, frames, opts.Workers)
	if err != nil {
		return err
	}

	enc := NewEncoder(w, opts)
	overflow := 0
	for i, q := range quantized {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.WriteQuantized(q); err != nil {
			return err
		}
		overflow += q.Overflow
		if opts.Progress != nil {
			opts.Progress(i+1, len(quantized))
		}
	}
	if err := enc.Close(); err != nil {
		return err
	}

	timer.Stop(zap.Int("frames", len(quantized)), zap.Int("overflow_colors", overflow))
	return nil
}

// QuantizeAll quantizes frames concurrently, preserving order.
func QuantizeAll(ctx context.Context, frames []image.Image, workers int) ([]*Quantized, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]*Quantized, len(frames))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, f := range frames {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			out[i] = Quantize(f)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
