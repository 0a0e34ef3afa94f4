// Package diff computes line-level differences between two texts.
// It builds a longest common subsequence table over whole lines, backtracks it
// into an edit script, and groups the script into unified hunks.
package diff

import (
	"slices"
	"strings"
)

// Op represents the kind of a diff line
type Op int

const (
	OpSame Op = iota // Line present in both texts
	OpAdd            // Line only in the modified text
	OpDel            // Line only in the original text
)

// String returns the tag used in plain output and logs.
func (o Op) String() string {
	switch o {
	case OpSame:
		return "same"
	case OpAdd:
		return "add"
	case OpDel:
		return "del"
	default:
		return "unknown"
	}
}

// Prefix returns the two-character marker of the plain format.
func (o Op) Prefix() string {
	switch o {
	case OpAdd:
		return "+ "
	case OpDel:
		return "- "
	default:
		return "  "
	}
}

// Line is a single entry of an edit script.
// OldNum and NewNum are 1-based; zero means the line has no counterpart on that side.
type Line struct {
	Op     Op
	OldNum int
	NewNum int
	Text   string
}

// Stats counts the entries of an edit script by kind
type Stats struct {
	Added     int
	Removed   int
	Unchanged int
}

// HasChanges reports whether anything was added or removed.
func (s Stats) HasChanges() bool {
	return s.Added > 0 || s.Removed > 0
}

// SplitLines splits text on newlines. CRLF endings are folded to LF first.
// An empty text yields a single empty line, so two empty texts compare equal.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// lcsTable returns the (m+1)x(n+1) table where t[i][j] is the length of the
// LCS of a[:i] and b[:j]. All rows share one backing allocation.
func lcsTable(a, b []string) [][]int {
	m, n := len(a), len(b)
	cells := make([]int, (m+1)*(n+1))
	t := make([][]int, m+1)
	for i := range t {
		t[i] = cells[i*(n+1) : (i+1)*(n+1)]
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				t[i][j] = t[i-1][j-1] + 1
			} else {
				t[i][j] = max(t[i-1][j], t[i][j-1])
			}
		}
	}
	return t
}

// LCSLength returns the length of the longest common subsequence of a and b.
func LCSLength(a, b []string) int {
	return lcsTable(a, b)[len(a)][len(b)]
}

// Compute returns the edit script turning a into b.
//
// Walking back from the bottom-right corner, equal lines are kept; otherwise an
// addition is preferred whenever it does not shorten the LCS, so a replaced line
// reads as "del old, add new" in forward order.
func Compute(a, b []string) []Line {
	return backtrack(a, b, lcsTable(a, b))
}

func backtrack(a, b []string, t [][]int) []Line {
	i, j := len(a), len(b)
	out := make([]Line, 0, i+j-t[i][j])

	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && a[i-1] == b[j-1]:
			out = append(out, Line{Op: OpSame, OldNum: i, NewNum: j, Text: a[i-1]})
			i--
			j--
		case j > 0 && (i == 0 || t[i][j-1] >= t[i-1][j]):
			out = append(out, Line{Op: OpAdd, NewNum: j, Text: b[j-1]})
			j--
		default:
			out = append(out, Line{Op: OpDel, OldNum: i, Text: a[i-1]})
			i--
		}
	}

	slices.Reverse(out)
	return out
}

// Summarize counts the lines of a script by kind.
func Summarize(lines []Line) Stats {
	var s Stats
	for _, l := range lines {
		switch l.Op {
		case OpAdd:
			s.Added++
		case OpDel:
			s.Removed++
		default:
			s.Unchanged++
		}
	}
	return s
}

// FormatPlain renders a script with "+ ", "- " and "  " markers, one entry per line.
func FormatPlain(lines []Line) string {
	var sb strings.Builder
	for i, l := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(l.Op.Prefix())
		sb.WriteString(l.Text)
	}
	return sb.String()
}

// Original reassembles the original text lines from a script.
func Original(lines []Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Op != OpAdd {
			out = append(out, l.Text)
		}
	}
	return out
}

// Modified reassembles the modified text lines from a script.
func Modified(lines []Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Op != OpDel {
			out = append(out, l.Text)
		}
	}
	return out
}
