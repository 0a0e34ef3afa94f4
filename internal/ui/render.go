package ui

import (
	"fmt"
	"strings"

	"snaptools/internal/cardcheck"
	"snaptools/internal/diff"
	"snaptools/internal/hashgen"

	"github.com/charmbracelet/lipgloss"
)

// DiffOptions controls RenderDiff.
type DiffOptions struct {
	OldPath string
	NewPath string

	// Unified renders hunks with headers instead of the whole script.
	Unified bool

	// Words highlights the changed part of replaced lines.
	Words bool

	// Engine computes word diffs; nil means diff.DefaultEngine.
	Engine *diff.Engine

	// SelectedHunk is highlighted in unified mode; -1 for none.
	SelectedHunk int
}

// RenderDiff renders a diff result with colors.
func RenderDiff(s Styles, res *diff.Result, opts DiffOptions) string {
	if !res.Stats.HasChanges() && opts.Unified {
		return s.Muted.Render("No differences.")
	}

	var sb strings.Builder
	if !opts.Unified {
		for _, line := range renderLines(s, res.Lines, opts, func(op diff.Op) string { return op.Prefix() }) {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		return sb.String()
	}

	sb.WriteString(s.FileHeader.Render("--- " + opts.OldPath))
	sb.WriteString("\n")
	sb.WriteString(s.FileHeader.Render("+++ " + opts.NewPath))
	sb.WriteString("\n")
	for i, h := range res.Hunks {
		header := s.HunkHeader
		if i == opts.SelectedHunk {
			header = s.SelectedHunk
		}
		sb.WriteString(header.Render(h.Header()))
		sb.WriteString("\n")
		for _, line := range renderLines(s, h.Lines, opts, unifiedPrefix) {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func unifiedPrefix(op diff.Op) string {
	switch op {
	case diff.OpAdd:
		return "+"
	case diff.OpDel:
		return "-"
	default:
		return " "
	}
}

func renderLines(s Styles, lines []diff.Line, opts DiffOptions, prefix func(diff.Op) string) []string {
	segments := make(map[int][]diff.Segment)
	if opts.Words {
		engine := opts.Engine
		if engine == nil {
			engine = diff.DefaultEngine
		}
		for _, p := range diff.ChangePairs(lines) {
			segs := engine.WordDiff(lines[p.Del].Text, lines[p.Add].Text)
			segments[p.Del] = segs
			segments[p.Add] = segs
		}
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		base := lineStyle(s, line.Op)
		segs, ok := segments[i]
		if !ok {
			out[i] = base.Render(prefix(line.Op) + line.Text)
			continue
		}
		out[i] = base.Render(prefix(line.Op)) + renderSegments(s, segs, line.Op, base)
	}
	return out
}

func lineStyle(s Styles, op diff.Op) lipgloss.Style {
	switch op {
	case diff.OpAdd:
		return s.Added
	case diff.OpDel:
		return s.Removed
	default:
		return s.Context
	}
}

// renderSegments renders one side of a word diff: the removed line shows
// equal and deleted runs, the added line equal and inserted runs.
func renderSegments(s Styles, segs []diff.Segment, side diff.Op, base lipgloss.Style) string {
	var sb strings.Builder
	for _, seg := range segs {
		switch {
		case seg.Op == diff.OpSame:
			sb.WriteString(base.Render(seg.Text))
		case seg.Op == side && side == diff.OpAdd:
			sb.WriteString(s.AddedWord.Render(seg.Text))
		case seg.Op == side && side == diff.OpDel:
			sb.WriteString(s.RemovedWord.Render(seg.Text))
		}
	}
	return sb.String()
}

// RenderStats renders the change counts of a diff.
func RenderStats(s Styles, st diff.Stats) string {
	if !st.HasChanges() {
		return s.Success.Render("Texts are identical") + s.Muted.Render(fmt.Sprintf(" (%d lines)", st.Unchanged))
	}
	return strings.Join([]string{
		s.Added.Render(fmt.Sprintf("+%d added", st.Added)),
		s.Removed.Render(fmt.Sprintf("-%d removed", st.Removed)),
		s.Muted.Render(fmt.Sprintf("%d unchanged", st.Unchanged)),
	}, "  ")
}

// RenderHashes renders digests as an aligned two-column table.
func RenderHashes(s Styles, digests []hashgen.Digest) string {
	width := 0
	for _, d := range digests {
		width = max(width, len(d.Algorithm))
	}

	var sb strings.Builder
	for _, d := range digests {
		label := fmt.Sprintf("%-*s", width, d.Algorithm)
		sb.WriteString(s.AlgorithmLabel.Render(label))
		sb.WriteString("  ")
		sb.WriteString(s.InlineCode.Render(d.Hex))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderCard renders a card check result.
func RenderCard(s Styles, r cardcheck.Result) string {
	if r.Digits == "" {
		return s.Warning.Render("No digits found")
	}

	network := "Unknown"
	if r.Network != nil {
		network = r.Network.Name
	}

	luhn := s.Error.Render("✗ Invalid")
	if r.Valid {
		luhn = s.Success.Render("✓ Valid")
	} else if len(r.Digits) < cardcheck.MinDigits {
		luhn = s.Warning.Render(fmt.Sprintf("Too short (%d digits)", len(r.Digits)))
	}

	expected := make([]string, len(r.ExpectedLengths()))
	for i, n := range r.ExpectedLengths() {
		expected[i] = fmt.Sprint(n)
	}
	length := s.Body.Render(fmt.Sprintf("%d", len(r.Digits)))
	if r.Network != nil && !r.LengthOK {
		length = s.Warning.Render(fmt.Sprintf("%d", len(r.Digits)))
	}

	rows := [][2]string{
		{"Number", s.Bold.Render(r.Formatted)},
		{"Network", s.Badge.Render(network)},
		{"Luhn Check", luhn},
		{"Digits", length},
		{"Expected", s.Muted.Render(strings.Join(expected, " or "))},
	}

	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(s.Label.Render(fmt.Sprintf("%-11s", row[0])))
		sb.WriteString(row[1])
		sb.WriteString("\n")
	}
	return sb.String()
}
