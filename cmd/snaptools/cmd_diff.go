package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"snaptools/internal/diff"
	"snaptools/internal/logging"
	"snaptools/internal/ui"
	"snaptools/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	diffUnified     bool
	diffContext     int
	diffWords       bool
	diffPlain       bool
	diffInteractive bool
	diffWatch       bool
)

// diffCmd compares two texts
var diffCmd = &cobra.Command{
	Use:   "diff OLD NEW",
	Short: "Compare two texts line by line",
	Long: `Compares two files line by line using a longest common subsequence,
so the unchanged lines shown are as many as possible.

Use "-" for one side to read it from stdin.

Examples:
  snaptools diff old.txt new.txt
  snaptools diff -u -C 1 old.txt new.txt
  snaptools diff --words old.txt new.txt
  snaptools diff --interactive --watch old.txt new.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVarP(&diffUnified, "unified", "u", false, "Show unified hunks instead of the whole script")
	diffCmd.Flags().IntVarP(&diffContext, "context", "C", 3, "Context lines around each hunk")
	diffCmd.Flags().BoolVar(&diffWords, "words", false, "Highlight changed words inside replaced lines")
	diffCmd.Flags().BoolVar(&diffPlain, "plain", false, "Plain text output without colors or summary")
	diffCmd.Flags().BoolVarP(&diffInteractive, "interactive", "i", false, "Open a scrollable viewer")
	diffCmd.Flags().BoolVar(&diffWatch, "watch", false, "Re-run when either file changes")
}

// diffSession holds what a diff run needs to recompute its result.
type diffSession struct {
	oldPath, newPath string
	stdin            []byte
	engine           *diff.Engine
}

func newDiffSession(cmd *cobra.Command, oldPath, newPath string) (*diffSession, error) {
	if oldPath == "-" && newPath == "-" {
		return nil, fmt.Errorf("only one side can be read from stdin")
	}

	s := &diffSession{oldPath: oldPath, newPath: newPath}
	if oldPath == "-" || newPath == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		s.stdin = data
	}

	contextLines := cfg.Diff.ContextLines
	if cmd.Flags().Changed("context") {
		contextLines = diffContext
	}
	s.engine = diff.NewEngine(diff.Options{ContextLines: contextLines, MaxCells: cfg.Diff.MaxCells})
	return s, nil
}

func (s *diffSession) read(path string) (string, error) {
	if path == "-" {
		return string(s.stdin), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func (s *diffSession) compute() (*diff.Result, error) {
	oldText, err := s.read(s.oldPath)
	if err != nil {
		return nil, err
	}
	newText, err := s.read(s.newPath)
	if err != nil {
		return nil, err
	}

	timer := logging.StartTimer(logging.CategoryDiff, "diff")
	res, err := s.engine.Diff(oldText, newText)
	if err != nil {
		return nil, err
	}
	timer.Stop(
		zap.Int("added", res.Stats.Added),
		zap.Int("removed", res.Stats.Removed),
		zap.Int("hunks", len(res.Hunks)),
	)
	return res, nil
}

// watchPaths lists the file arguments that can be watched.
func (s *diffSession) watchPaths() []string {
	var paths []string
	for _, p := range []string{s.oldPath, s.newPath} {
		if p != "-" {
			paths = append(paths, p)
		}
	}
	return paths
}

func (s *diffSession) options(words bool) ui.DiffOptions {
	return ui.DiffOptions{
		OldPath: s.oldPath,
		NewPath: s.newPath,
		Unified: diffUnified,
		Words:   words,
		Engine:  s.engine,
	}
}

// render formats a result for non-interactive output.
func (s *diffSession) render(res *diff.Result, words bool) string {
	if diffPlain {
		if diffUnified {
			return diff.FormatUnified(s.oldPath, s.newPath, res.Hunks)
		}
		return diff.FormatPlain(res.Lines) + "\n"
	}

	styles := ui.DefaultStyles()
	return ui.RenderDiff(styles, res, s.options(words)) + "\n" + ui.RenderStats(styles, res.Stats) + "\n"
}

func runDiff(cmd *cobra.Command, args []string) error {
	session, err := newDiffSession(cmd, args[0], args[1])
	if err != nil {
		return err
	}
	words := diffWords || cfg.Diff.WordDiff

	res, err := session.compute()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, false)
	defer cancel()

	if diffInteractive {
		return runDiffViewer(ctx, session, res, words)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, session.render(res, words))
	if !diffWatch {
		return nil
	}

	paths := session.watchPaths()
	if len(paths) == 0 {
		return fmt.Errorf("--watch needs at least one file argument")
	}
	w, err := watch.New(paths, cfg.GetWatchDebounce(), func(ctx context.Context, changed []string) {
		res, err := session.compute()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "diff failed: %v\n", err)
			return
		}
		fmt.Fprintf(out, "\n== changed: %v ==\n", changed)
		fmt.Fprint(out, session.render(res, words))
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintln(cmd.ErrOrStderr(), "Watching for changes, press Ctrl+C to stop.")
	<-ctx.Done()
	return nil
}

func runDiffViewer(ctx context.Context, session *diffSession, res *diff.Result, words bool) error {
	opts := session.options(words)
	viewer := ui.NewDiffViewer(ui.DefaultStyles(), res, opts, 0, 0)
	p := tea.NewProgram(viewer, tea.WithAltScreen(), tea.WithContext(ctx))

	if diffWatch {
		paths := session.watchPaths()
		if len(paths) == 0 {
			return fmt.Errorf("--watch needs at least one file argument")
		}
		w, err := watch.New(paths, cfg.GetWatchDebounce(), func(_ context.Context, _ []string) {
			res, err := session.compute()
			if err != nil {
				logging.Get(logging.CategoryDiff).Warn("diff failed", zap.Error(err))
				return
			}
			p.Send(ui.ResultMsg{Result: res})
		})
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("viewer failed: %w", err)
	}
	return nil
}
