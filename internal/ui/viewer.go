package ui

import (
	"fmt"
	"strings"

	"snaptools/internal/diff"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// statusHeight is the number of rows below the viewport.
const statusHeight = 2

// DiffViewer is a scrollable, interactive view of a diff result.
type DiffViewer struct {
	Styles   Styles
	Viewport viewport.Model
	Result   *diff.Result
	Options  DiffOptions
	Width    int
	Height   int

	// hunkOffsets holds the first content row of each hunk in unified mode.
	hunkOffsets []int
	ready       bool
}

// NewDiffViewer creates a viewer for res sized width x height.
func NewDiffViewer(styles Styles, res *diff.Result, opts DiffOptions, width, height int) DiffViewer {
	opts.Unified = true
	if len(res.Hunks) == 0 {
		opts.SelectedHunk = -1
	}
	v := DiffViewer{
		Styles:   styles,
		Viewport: viewport.New(width, max(height-statusHeight, 1)),
		Result:   res,
		Options:  opts,
	}
	v.SetSize(width, height)
	return v
}

// SetSize updates dimensions
func (v *DiffViewer) SetSize(width, height int) {
	v.Width = width
	v.Height = height
	v.Viewport.Width = width
	v.Viewport.Height = max(height-statusHeight, 1)
	v.ready = width > 0 && height > 0
	v.updateContent()
}

// SetResult replaces the diff being shown, keeping the scroll position when
// possible.
func (v *DiffViewer) SetResult(res *diff.Result) {
	v.Result = res
	if v.Options.SelectedHunk >= len(res.Hunks) {
		v.Options.SelectedHunk = len(res.Hunks) - 1
	}
	if v.Options.SelectedHunk < 0 && len(res.Hunks) > 0 {
		v.Options.SelectedHunk = 0
	}
	v.updateContent()
}

// ToggleWords switches word-level highlighting.
func (v *DiffViewer) ToggleWords() {
	v.Options.Words = !v.Options.Words
	v.updateContent()
}

// NextHunk selects the next hunk and scrolls to it.
func (v *DiffViewer) NextHunk() {
	if v.Options.SelectedHunk < len(v.Result.Hunks)-1 {
		v.Options.SelectedHunk++
		v.updateContent()
		v.scrollToHunk()
	}
}

// PrevHunk selects the previous hunk and scrolls to it.
func (v *DiffViewer) PrevHunk() {
	if v.Options.SelectedHunk > 0 {
		v.Options.SelectedHunk--
		v.updateContent()
		v.scrollToHunk()
	}
}

// SelectedHunk returns the index of the highlighted hunk, or -1.
func (v *DiffViewer) SelectedHunk() int {
	return v.Options.SelectedHunk
}

func (v *DiffViewer) scrollToHunk() {
	if i := v.Options.SelectedHunk; i >= 0 && i < len(v.hunkOffsets) {
		v.Viewport.SetYOffset(v.hunkOffsets[i])
	}
}

func (v *DiffViewer) updateContent() {
	content := RenderDiff(v.Styles, v.Result, v.Options)

	// Two file header rows, then each hunk's header and lines.
	v.hunkOffsets = v.hunkOffsets[:0]
	row := 2
	for _, h := range v.Result.Hunks {
		v.hunkOffsets = append(v.hunkOffsets, row)
		row += 1 + len(h.Lines)
	}
	v.Viewport.SetContent(content)
}

// Init initializes the model.
func (v DiffViewer) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (v DiffViewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetSize(msg.Width, msg.Height)
		return v, nil

	case ResultMsg:
		v.SetResult(msg.Result)
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return v, tea.Quit
		case "w":
			v.ToggleWords()
			return v, nil
		case "n", "]":
			v.NextHunk()
			return v, nil
		case "p", "[":
			v.PrevHunk()
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.Viewport, cmd = v.Viewport.Update(msg)
	return v, cmd
}

// View renders the viewport and the status line.
func (v DiffViewer) View() string {
	if !v.ready {
		return "Initializing..."
	}

	words := "off"
	if v.Options.Words {
		words = "on"
	}
	hunk := "-"
	if v.Options.SelectedHunk >= 0 {
		hunk = fmt.Sprintf("%d/%d", v.Options.SelectedHunk+1, len(v.Result.Hunks))
	}
	status := fmt.Sprintf("%s  hunk %s  words %s  %3.0f%%  [n/p] hunks [w] words [q] quit",
		RenderStats(v.Styles, v.Result.Stats), hunk, words, v.Viewport.ScrollPercent()*100)

	var sb strings.Builder
	sb.WriteString(v.Viewport.View())
	sb.WriteString("\n")
	sb.WriteString(v.Styles.StatusBar.Width(v.Width).Render(status))
	return sb.String()
}

// ResultMsg delivers a recomputed diff to a running viewer.
type ResultMsg struct {
	Result *diff.Result
}
