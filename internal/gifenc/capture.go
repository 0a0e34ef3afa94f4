package gifenc

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	"snaptools/internal/framesrc"
	"snaptools/internal/logging"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// DefaultMaxDuration is the longest clip Capture accepts unless overridden.
const DefaultMaxDuration = 10 * time.Second

var (
	// ErrSeekTimeout is returned when a source does not deliver a frame in time.
	ErrSeekTimeout = errors.New("gifenc: seek timed out")

	// ErrInvalidOptions is returned for unusable capture settings.
	ErrInvalidOptions = errors.New("gifenc: invalid capture options")
)

// CaptureOptions selects the clip and output size
type CaptureOptions struct {
	Start    time.Duration
	Duration time.Duration
	FPS      float64
	Width    int

	// MaxDuration caps Duration; zero means DefaultMaxDuration.
	MaxDuration time.Duration

	// Scaler resizes frames; nil means CatmullRom.
	Scaler draw.Interpolator

	// SeekTimeout bounds each FrameAt call; zero disables it.
	SeekTimeout time.Duration

	// Progress, when set, is called after each captured frame.
	Progress func(done, total int)
}

// Scalers maps configuration names to interpolation kernels.
var Scalers = map[string]draw.Interpolator{
	"nearest":        draw.NearestNeighbor,
	"approxbilinear": draw.ApproxBiLinear,
	"bilinear":       draw.BiLinear,
	"catmullrom":     draw.CatmullRom,
}

// ScalerByName looks up an interpolation kernel, case-insensitively.
func ScalerByName(name string) (draw.Interpolator, error) {
	s, ok := Scalers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown scaler %q", ErrInvalidOptions, name)
	}
	return s, nil
}

func (o CaptureOptions) validate() error {
	maxDur := o.MaxDuration
	if maxDur <= 0 {
		maxDur = DefaultMaxDuration
	}
	switch {
	case o.FPS <= 0 || o.FPS > 100:
		return fmt.Errorf("%w: fps %g", ErrInvalidOptions, o.FPS)
	case o.Width < 1 || o.Width > math.MaxUint16:
		return fmt.Errorf("%w: width %d", ErrInvalidOptions, o.Width)
	case o.Start < 0:
		return fmt.Errorf("%w: negative start %v", ErrInvalidOptions, o.Start)
	case o.Duration <= 0:
		return fmt.Errorf("%w: duration %v", ErrInvalidOptions, o.Duration)
	case o.Duration > maxDur:
		return fmt.Errorf("%w: duration %v exceeds %v", ErrInvalidOptions, o.Duration, maxDur)
	}
	return nil
}

// OutputSize returns the capture size for a source of the given bounds:
// the requested width and the height that keeps the aspect ratio.
func OutputSize(src image.Rectangle, width int) (int, int) {
	if src.Dx() == 0 {
		return width, 1
	}
	h := int(math.Round(float64(src.Dy()) * float64(width) / float64(src.Dx())))
	return width, max(h, 1)
}

// FrameCount returns how many frames a clip of d at fps produces.
func FrameCount(d time.Duration, fps float64) int {
	return int(math.Floor(d.Seconds()*fps + 1e-9))
}

// Capture seeks src to start + i/fps for each frame of the clip and returns
// the frames scaled to the output size. Seeks run one at a time. A clip that
// runs past the end of the source is shortened.
func Capture(ctx context.Context, src framesrc.Source, opts CaptureOptions) ([]*image.RGBA, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := logging.Get(logging.CategoryCapture)

	total := src.Duration()
	if opts.Start >= total {
		return nil, fmt.Errorf("%w: start %v is past the end (%v)", ErrNoFrames, opts.Start, total)
	}
	clip := min(opts.Duration, total-opts.Start)
	count := FrameCount(clip, opts.FPS)
	if count == 0 {
		return nil, fmt.Errorf("%w: %v at %g fps", ErrNoFrames, clip, opts.FPS)
	}

	scaler := opts.Scaler
	if scaler == nil {
		scaler = draw.CatmullRom
	}
	w, h := OutputSize(src.Bounds(), opts.Width)
	log.Debug("capture started",
		zap.Duration("start", opts.Start),
		zap.Duration("clip", clip),
		zap.Float64("fps", opts.FPS),
		zap.Int("frames", count),
		zap.Int("width", w),
		zap.Int("height", h),
	)

	frames := make([]*image.RGBA, 0, count)
	for i := 0; i < count; i++ {
		at := opts.Start + time.Duration(math.Round(float64(i)/opts.FPS*float64(time.Second)))
		img, err := seek(ctx, src, at, opts.SeekTimeout)
		if err != nil {
			return nil, fmt.Errorf("frame %d at %v: %w", i, at, err)
		}

		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		frames = append(frames, dst)

		if opts.Progress != nil {
			opts.Progress(i+1, count)
		}
	}

	log.Debug("capture finished", zap.Int("frames", len(frames)))
	return frames, nil
}

func seek(ctx context.Context, src framesrc.Source, at, timeout time.Duration) (image.Image, error) {
	if timeout <= 0 {
		return src.FrameAt(ctx, at)
	}

	seekCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	img, err := src.FrameAt(seekCtx, at)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("%w after %v", ErrSeekTimeout, timeout)
	}
	return img, err
}
