// Package framesrc provides seekable frame sources for GIF capture.
//
// A Source behaves like a paused video: callers seek to a timestamp and get
// the frame shown at that instant. Image sequences are mapped onto a timeline
// with a fixed frame rate.
package framesrc

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"time"
)

// ErrNoImages is returned when a sequence has no decodable frames.
var ErrNoImages = errors.New("framesrc: no images")

// Source is a seekable sequence of frames.
type Source interface {
	// Bounds returns the size of every frame.
	Bounds() image.Rectangle

	// Duration returns the length of the timeline.
	Duration() time.Duration

	// FrameAt returns the frame visible at t. Implementations must return
	// promptly with ctx.Err() once ctx is done.
	FrameAt(ctx context.Context, t time.Duration) (image.Image, error)
}

// frameIndex maps a timestamp onto a frame of a sequence played at fps.
func frameIndex(t time.Duration, fps float64, count int) int {
	if t <= 0 {
		return 0
	}
	// Timestamps are whole nanoseconds, so a frame boundary such as 1/15s can
	// land just short of its frame. The tolerance covers that truncation.
	idx := int(math.Floor(float64(t)*fps/float64(time.Second) + 1e-6))
	if idx >= count {
		idx = count - 1
	}
	return idx
}

func sequenceDuration(count int, fps float64) time.Duration {
	return time.Duration(float64(count) / fps * float64(time.Second))
}

// Images is an in-memory image sequence.
type Images struct {
	frames []image.Image
	fps    float64
	bounds image.Rectangle
}

// NewImages wraps frames played back at fps. All frames must share the first
// frame's size.
func NewImages(frames []image.Image, fps float64) (*Images, error) {
	if len(frames) == 0 {
		return nil, ErrNoImages
	}
	if fps <= 0 {
		return nil, fmt.Errorf("framesrc: fps must be positive, got %g", fps)
	}
	b := frames[0].Bounds()
	for i, f := range frames[1:] {
		if f.Bounds().Size() != b.Size() {
			return nil, fmt.Errorf("framesrc: frame %d is %v, want %v", i+1, f.Bounds().Size(), b.Size())
		}
	}
	return &Images{frames: frames, fps: fps, bounds: image.Rectangle{Max: b.Size()}}, nil
}

func (s *Images) Bounds() image.Rectangle { return s.bounds }

func (s *Images) Duration() time.Duration { return sequenceDuration(len(s.frames), s.fps) }

func (s *Images) FrameAt(ctx context.Context, t time.Duration) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.frames[frameIndex(t, s.fps, len(s.frames))], nil
}
