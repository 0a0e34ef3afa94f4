package diff

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ErrInputTooLarge is returned when the LCS table would exceed Options.MaxCells.
var ErrInputTooLarge = errors.New("diff: input too large")

// Options configures an Engine
type Options struct {
	// ContextLines is the number of unchanged lines kept around each hunk.
	ContextLines int

	// MaxCells caps the (m+1)*(n+1) table size. Zero disables the limit.
	MaxCells int
}

// DefaultOptions returns three lines of context and no size limit.
func DefaultOptions() Options {
	return Options{ContextLines: 3}
}

// Result is the outcome of comparing two texts.
// Results may be shared through the cache and must not be modified.
type Result struct {
	Lines []Line
	Stats Stats
	Hunks []Hunk
	LCS   int
}

// Engine provides diff computation with caching
type Engine struct {
	opts  Options
	dmp   *diffmatchpatch.DiffMatchPatch
	cache sync.Map // cacheKey -> *Result
}

// cacheKey identifies an input pair
type cacheKey struct {
	oldHash uint64
	newHash uint64
	oldLen  int
	newLen  int
}

// NewEngine creates a new diff engine
func NewEngine(opts Options) *Engine {
	if opts.ContextLines < 0 {
		opts.ContextLines = 0
	}
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // exact word diffs; inputs are single lines
	return &Engine{opts: opts, dmp: dmp}
}

// DefaultEngine is a shared engine with DefaultOptions
var DefaultEngine = NewEngine(DefaultOptions())

// Options returns the engine's settings.
func (e *Engine) Options() Options {
	return e.opts
}

// Diff compares two texts line by line.
func (e *Engine) Diff(oldText, newText string) (*Result, error) {
	key := cacheKey{hash(oldText), hash(newText), len(oldText), len(newText)}
	if cached, ok := e.cache.Load(key); ok {
		return cached.(*Result), nil
	}

	res, err := e.DiffLines(SplitLines(oldText), SplitLines(newText))
	if err != nil {
		return nil, err
	}

	e.cache.Store(key, res)
	return res, nil
}

// DiffLines compares two line sequences without caching.
func (e *Engine) DiffLines(a, b []string) (*Result, error) {
	if e.opts.MaxCells > 0 {
		cells := (len(a) + 1) * (len(b) + 1)
		if cells > e.opts.MaxCells {
			return nil, fmt.Errorf("%w: %d x %d lines needs %d cells (limit %d)",
				ErrInputTooLarge, len(a), len(b), cells, e.opts.MaxCells)
		}
	}

	t := lcsTable(a, b)
	lines := backtrack(a, b, t)
	return &Result{
		Lines: lines,
		Stats: Summarize(lines),
		Hunks: Group(lines, e.opts.ContextLines),
		LCS:   t[len(a)][len(b)],
	}, nil
}

// WordDiff computes intra-line differences between two lines.
func (e *Engine) WordDiff(oldLine, newLine string) []Segment {
	return wordDiff(e.dmp, oldLine, newLine)
}

// ClearCache drops all cached results
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// hash computes FNV-1a over s
func hash(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
