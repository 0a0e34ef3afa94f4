package diff

import (
	"fmt"
	"strings"
)

// Hunk represents a group of changes with surrounding context
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// Group splits a script into hunks carrying up to context unchanged lines on
// each side of a change. Changes separated by at most 2*context unchanged
// lines share a hunk.
func Group(lines []Line, context int) []Hunk {
	if context < 0 {
		context = 0
	}

	// oldBefore[i] / newBefore[i]: lines of each side that precede lines[i]
	oldBefore := make([]int, len(lines)+1)
	newBefore := make([]int, len(lines)+1)
	for i, l := range lines {
		oldBefore[i+1] = oldBefore[i]
		newBefore[i+1] = newBefore[i]
		if l.Op != OpAdd {
			oldBefore[i+1]++
		}
		if l.Op != OpDel {
			newBefore[i+1]++
		}
	}

	var hunks []Hunk
	lo, hi := -1, -1
	for idx, l := range lines {
		if l.Op == OpSame {
			continue
		}
		start := max(idx-context, 0)
		end := min(idx+context+1, len(lines))
		if lo >= 0 && start <= hi {
			hi = end
			continue
		}
		if lo >= 0 {
			hunks = append(hunks, makeHunk(lines, lo, hi, oldBefore, newBefore))
		}
		lo, hi = start, end
	}
	if lo >= 0 {
		hunks = append(hunks, makeHunk(lines, lo, hi, oldBefore, newBefore))
	}
	return hunks
}

func makeHunk(lines []Line, lo, hi int, oldBefore, newBefore []int) Hunk {
	h := Hunk{
		OldCount: oldBefore[hi] - oldBefore[lo],
		NewCount: newBefore[hi] - newBefore[lo],
		Lines:    lines[lo:hi:hi],
	}
	// An empty range points at the line after which the change applies.
	h.OldStart = oldBefore[lo]
	if h.OldCount > 0 {
		h.OldStart++
	}
	h.NewStart = newBefore[lo]
	if h.NewCount > 0 {
		h.NewStart++
	}
	return h
}

// Header returns the "@@ -a,b +c,d @@" line of the hunk.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%s +%s @@", unifiedRange(h.OldStart, h.OldCount), unifiedRange(h.NewStart, h.NewCount))
}

func unifiedRange(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

// FormatUnified renders hunks in unified diff format. It returns an empty
// string when there are no hunks.
func FormatUnified(oldPath, newPath string, hunks []Hunk) string {
	if len(hunks) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", oldPath, newPath)
	for _, h := range hunks {
		sb.WriteString(h.Header())
		sb.WriteByte('\n')
		for _, l := range h.Lines {
			switch l.Op {
			case OpAdd:
				sb.WriteByte('+')
			case OpDel:
				sb.WriteByte('-')
			default:
				sb.WriteByte(' ')
			}
			sb.WriteString(l.Text)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
