package framesrc

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	// Registered decoders for image sequences
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Extensions lists the file extensions Dir picks up, lower case.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// Dir is an image sequence read from a directory, ordered by file name.
// Frames are decoded on demand; the most recent frame is kept.
type Dir struct {
	paths  []string
	fps    float64
	bounds image.Rectangle

	mu      sync.Mutex
	lastIdx int
	last    image.Image
}

// OpenDir scans dir for images and reads the size of the first one.
func OpenDir(dir string, fps float64) (*Dir, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("framesrc: fps must be positive, got %g", fps)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	sort.Strings(paths)

	cfg, err := decodeConfig(paths[0])
	if err != nil {
		return nil, err
	}

	return &Dir{
		paths:   paths,
		fps:     fps,
		bounds:  image.Rect(0, 0, cfg.Width, cfg.Height),
		lastIdx: -1,
	}, nil
}

func isImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return cfg, nil
}

// Len returns the number of images in the sequence.
func (d *Dir) Len() int { return len(d.paths) }

func (d *Dir) Bounds() image.Rectangle { return d.bounds }

func (d *Dir) Duration() time.Duration { return sequenceDuration(len(d.paths), d.fps) }

func (d *Dir) FrameAt(ctx context.Context, t time.Duration) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := frameIndex(t, d.fps, len(d.paths))

	d.mu.Lock()
	defer d.mu.Unlock()
	if idx == d.lastIdx {
		return d.last, nil
	}

	img, err := decodeContext(ctx, d.paths[idx])
	if err != nil {
		return nil, err
	}
	if img.Bounds().Size() != d.bounds.Size() {
		return nil, fmt.Errorf("framesrc: %s is %v, want %v", d.paths[idx], img.Bounds().Size(), d.bounds.Size())
	}

	d.lastIdx, d.last = idx, img
	return img, nil
}

type decoded struct {
	img image.Image
	err error
}

// decodeContext decodes path on its own goroutine so that a slow file
// (network mount, pipe) cannot outlive ctx. An abandoned decode finishes in
// the background and its result is dropped.
func decodeContext(ctx context.Context, path string) (image.Image, error) {
	done := make(chan decoded, 1)
	go func() {
		img, err := decode(path)
		done <- decoded{img, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.img, r.err
	}
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}
