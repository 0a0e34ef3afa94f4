package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"snaptools/internal/framesrc"
	"snaptools/internal/gifenc"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	gifOutput   string
	gifSrcFPS   float64
	gifStart    time.Duration
	gifDuration time.Duration
	gifFPS      int
	gifWidth    int
	gifLoop     int
	gifScaler   string
	gifQuiet    bool
)

// gifCmd converts an image sequence into an animated GIF
var gifCmd = &cobra.Command{
	Use:   "gif DIR",
	Short: "Convert an image sequence to an animated GIF",
	Long: `Treats the images in DIR, sorted by name, as a video played at --src-fps
and captures a clip of it as an animated GIF.

Frames are taken every 1/fps seconds from --start for --duration (at most
10s by default), scaled to --width keeping the aspect ratio and reduced
to 256 colors.

Examples:
  snaptools gif frames/ -o clip.gif
  snaptools gif frames/ -o clip.gif --start 2s --duration 4s --fps 15 --width 480`,
	Args: cobra.ExactArgs(1),
	RunE: runGIF,
}

func init() {
	gifCmd.Flags().StringVarP(&gifOutput, "output", "o", "", "Output file (required)")
	gifCmd.Flags().Float64Var(&gifSrcFPS, "src-fps", 0, "Frame rate of the image sequence (default from config)")
	gifCmd.Flags().DurationVar(&gifStart, "start", 0, "Clip start time")
	gifCmd.Flags().DurationVar(&gifDuration, "duration", 0, "Clip length (default from config)")
	gifCmd.Flags().IntVar(&gifFPS, "fps", 0, "Output frame rate (default from config)")
	gifCmd.Flags().IntVar(&gifWidth, "width", 0, "Output width in pixels (default from config)")
	gifCmd.Flags().IntVar(&gifLoop, "loop", 0, "Loop count: 0 forever, -1 play once (default from config)")
	gifCmd.Flags().StringVar(&gifScaler, "scaler", "", "Scaler: nearest, approxbilinear, bilinear, catmullrom")
	gifCmd.Flags().BoolVarP(&gifQuiet, "quiet", "q", false, "Hide the progress bar")
	_ = gifCmd.MarkFlagRequired("output")
}

// gifSettings merges flags over the loaded config.
func gifSettings(cmd *cobra.Command) (gifenc.ConvertOptions, float64, error) {
	flags := cmd.Flags()

	srcFPS := cfg.GIF.SourceFPS
	if flags.Changed("src-fps") {
		srcFPS = gifSrcFPS
	}
	duration := cfg.GetGIFDuration()
	if flags.Changed("duration") {
		duration = gifDuration
	}
	fps := cfg.GIF.FPS
	if flags.Changed("fps") {
		fps = gifFPS
	}
	width := cfg.GIF.Width
	if flags.Changed("width") {
		width = gifWidth
	}
	loop := cfg.GIF.Loop
	if flags.Changed("loop") {
		loop = gifLoop
	}
	scalerName := cfg.GIF.Scaler
	if flags.Changed("scaler") {
		scalerName = gifScaler
	}

	scaler, err := gifenc.ScalerByName(scalerName)
	if err != nil {
		return gifenc.ConvertOptions{}, 0, err
	}
	if loop < -1 || loop > 65535 {
		return gifenc.ConvertOptions{}, 0, fmt.Errorf("loop must be within -1..65535, got %d", loop)
	}

	opts := gifenc.ConvertOptions{
		Capture: gifenc.CaptureOptions{
			Start:       gifStart,
			Duration:    duration,
			FPS:         float64(fps),
			Width:       width,
			MaxDuration: cfg.GetMaxDuration(),
			Scaler:      scaler,
			SeekTimeout: cfg.GetSeekTimeout(),
		},
		Encode: gifenc.Options{
			Delay:     gifenc.DelayForFPS(float64(fps)),
			LoopCount: loop,
			Workers:   cfg.GIF.Workers,
		},
	}
	return opts, srcFPS, nil
}

func runGIF(cmd *cobra.Command, args []string) error {
	opts, srcFPS, err := gifSettings(cmd)
	if err != nil {
		return err
	}

	src, err := framesrc.OpenDir(args[0], srcFPS)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, true)
	defer cancel()

	if !gifQuiet {
		bar := progressbar.NewOptions(100,
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("converting"),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		opts.Progress = func(percent int) {
			_ = bar.Set(percent)
		}
		defer func() { _ = bar.Finish() }()
	}

	if dir := filepath.Dir(gifOutput); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	tmp := gifOutput + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}

	stats, err := gifenc.Convert(ctx, src, opts, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close output: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, gifOutput); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", gifOutput, err)
	}

	logger.Info("gif created",
		zap.String("output", gifOutput),
		zap.Int("source_frames", src.Len()),
		zap.Int("frames", stats.Frames),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d frames, %dx%d, %d bytes\n",
		gifOutput, stats.Frames, stats.Width, stats.Height, stats.Bytes)
	return nil
}
