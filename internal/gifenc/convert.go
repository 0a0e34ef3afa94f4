package gifenc

import (
	"context"
	"fmt"
	"image"
	"io"

	"snaptools/internal/framesrc"
	"snaptools/internal/logging"

	"go.uber.org/zap"
)

// ConvertOptions combines the capture and encode settings of a conversion.
// Encode.Delay defaults to the capture frame rate when zero.
type ConvertOptions struct {
	Capture CaptureOptions
	Encode  Options

	// Progress, when set, receives the overall completion in percent.
	// Capture covers 0-50 and encoding 50-100.
	Progress func(percent int)
}

// Stats describes a finished conversion.
type Stats struct {
	Frames int
	Width  int
	Height int
	Bytes  int64
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Convert captures a clip from src and writes it to w as an animated GIF.
func Convert(ctx context.Context, src framesrc.Source, opts ConvertOptions, w io.Writer) (Stats, error) {
	log := logging.Get(logging.CategoryGIF)
	report := func(percent int) {
		if opts.Progress != nil {
			opts.Progress(percent)
		}
	}

	capOpts := opts.Capture
	capOpts.Progress = func(done, total int) {
		report(done * 50 / total)
		if opts.Capture.Progress != nil {
			opts.Capture.Progress(done, total)
		}
	}
	rgba, err := Capture(ctx, src, capOpts)
	if err != nil {
		return Stats{}, fmt.Errorf("capture failed: %w", err)
	}

	frames := make([]image.Image, len(rgba))
	for i, f := range rgba {
		frames[i] = f
	}

	encOpts := opts.Encode
	if encOpts.Delay == 0 {
		encOpts.Delay = DelayForFPS(opts.Capture.FPS)
	}
	encOpts.Progress = func(done, total int) {
		report(50 + done*50/total)
		if opts.Encode.Progress != nil {
			opts.Encode.Progress(done, total)
		}
	}

	cw := &countingWriter{w: w}
	if err := Encode(ctx, cw, frames, encOpts); err != nil {
		return Stats{}, fmt.Errorf("encode failed: %w", err)
	}

	b := rgba[0].Bounds()
	stats := Stats{Frames: len(rgba), Width: b.Dx(), Height: b.Dy(), Bytes: cw.n}
	log.Info("gif written",
		zap.Int("frames", stats.Frames),
		zap.Int("width", stats.Width),
		zap.Int("height", stats.Height),
		zap.Int64("bytes", stats.Bytes),
	)
	return stats, nil
}
