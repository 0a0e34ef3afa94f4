package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snaptools/internal/hashgen"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

// resetFlags restores every flag to its default so runs don't leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "snaptools.yaml")))

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestDiff_Plain(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.txt": "a\nb\nc", "b.txt": "a\nx\nc"})
	a, b := filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")

	out, _, err := execute(t, "", "diff", "--plain", a, b)
	require.NoError(t, err)
	assert.Equal(t, "  a\n- b\n+ x\n  c\n", out)

	out, _, err = execute(t, "", "diff", "--plain", "-u", "-C", "0", a, b)
	require.NoError(t, err)
	assert.Equal(t, "--- "+a+"\n+++ "+b+"\n@@ -2 +2 @@\n-b\n+x\n", out)
}

func TestDiff_Stdin(t *testing.T) {
	dir := writeFiles(t, map[string]string{"b.txt": "a\nx\nc"})

	out, _, err := execute(t, "a\nb\nc", "diff", "--plain", "-", filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "  a\n- b\n+ x\n  c\n", out)

	_, _, err = execute(t, "", "diff", "-", "-")
	assert.Error(t, err)
}

func TestDiff_Styled(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.txt": "a\nb\nc", "b.txt": "a\nx\nc"})

	out, _, err := execute(t, "", "diff", "--words", filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Contains(t, out, "- b")
	assert.Contains(t, out, "+ x")
	assert.Contains(t, out, "+1 added")
	assert.Contains(t, out, "-1 removed")
}

func TestDiff_Errors(t *testing.T) {
	_, _, err := execute(t, "", "diff", "only-one.txt")
	assert.Error(t, err)

	dir := t.TempDir()
	_, _, err = execute(t, "", "diff", filepath.Join(dir, "missing.txt"), filepath.Join(dir, "missing2.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func writeSequence(t *testing.T, n, w, h int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		c := color.RGBA{R: uint8(i * 20), G: 64, B: 200, A: 255}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetRGBA(x, y, c)
			}
		}
		f, err := os.Create(filepath.Join(dir, "frame"+string(rune('a'+i))+".png"))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
	return dir
}

func TestGIF_Command(t *testing.T) {
	src := writeSequence(t, 10, 40, 20)
	out := filepath.Join(t.TempDir(), "nested", "clip.gif")

	stdout, _, err := execute(t, "", "gif", src, "-o", out, "-q",
		"--src-fps", "10", "--fps", "5", "--duration", "1s", "--width", "20", "--loop", "2", "--scaler", "nearest")
	require.NoError(t, err)
	assert.Contains(t, stdout, "5 frames, 20x10")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	g, err := gif.DecodeAll(f)
	require.NoError(t, err)

	require.Len(t, g.Image, 5)
	assert.Equal(t, 20, g.Config.Width)
	assert.Equal(t, 10, g.Config.Height)
	assert.Equal(t, 2, g.LoopCount)
	for _, d := range g.Delay {
		assert.Equal(t, 20, d)
	}

	_, err = os.Stat(out + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestGIF_Errors(t *testing.T) {
	src := writeSequence(t, 3, 8, 8)

	_, _, err := execute(t, "", "gif", src)
	assert.Error(t, err, "output is required")

	out := filepath.Join(t.TempDir(), "x.gif")
	_, _, err = execute(t, "", "gif", src, "-o", out, "--scaler", "lanczos")
	assert.Error(t, err)

	_, _, err = execute(t, "", "gif", src, "-o", out, "--loop", "-2")
	assert.Error(t, err)

	_, _, err = execute(t, "", "gif", t.TempDir(), "-o", out)
	assert.Error(t, err)
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestHash_Text(t *testing.T) {
	out, _, err := execute(t, "", "hash", "--text", "abc", "--algo", "md5,sha-256")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "MD5      900150983cd24fb0d6963f7d28e17f72", lines[0])
	assert.Equal(t, "SHA-256  ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", lines[1])
}

func TestHash_DefaultAlgorithms(t *testing.T) {
	out, _, err := execute(t, "", "hash", "--text", "")
	require.NoError(t, err)
	assert.Equal(t, len(hashgen.DefaultAlgorithms), strings.Count(out, "\n"))
	assert.Contains(t, out, "d41d8cd98f00b204e9800998ecf8427e")
}

func TestHash_FileAndStdin(t *testing.T) {
	dir := writeFiles(t, map[string]string{"data.txt": "abc"})

	out, stderr, err := execute(t, "", "hash", "--algo", "sha1", filepath.Join(dir, "data.txt"))
	require.NoError(t, err)
	assert.Equal(t, "SHA-1  a9993e364706816aba3e25717850c26c9cd0d89d\n", out)
	assert.NotContains(t, stderr, "a9993e36")

	out, _, err = execute(t, "abc", "hash", "--algo", "sha1", "-")
	require.NoError(t, err)
	assert.Equal(t, "SHA-1  a9993e364706816aba3e25717850c26c9cd0d89d\n", out)
}

func TestHash_Errors(t *testing.T) {
	_, _, err := execute(t, "", "hash", "--text", "abc", "--algo", "crc32")
	assert.True(t, errors.Is(err, hashgen.ErrUnknownAlgorithm))

	_, _, err = execute(t, "", "hash")
	assert.Error(t, err)

	_, _, err = execute(t, "", "hash", "--text", "abc", "file.txt")
	assert.Error(t, err)

	_, _, err = execute(t, "", "hash", filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCard(t *testing.T) {
	out, _, err := execute(t, "", "card", "4111", "1111", "1111", "1111")
	require.NoError(t, err)
	assert.Contains(t, out, "4111 1111 1111 1111")
	assert.Contains(t, out, "Visa")
	assert.Contains(t, out, "✓ Valid")

	out, _, err = execute(t, "", "card", "4111-1111-1111-1112")
	require.NoError(t, err)
	assert.Contains(t, out, "✗ Invalid")

	_, _, err = execute(t, "", "card", "--strict", "4111-1111-1111-1112")
	assert.Error(t, err)

	_, _, err = execute(t, "", "card")
	assert.Error(t, err)
}

func TestRoot_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gif:\n  fps: 0\n"), 0o644))

	resetFlags(rootCmd)
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"card", "4111", "--config", path})
	assert.Error(t, rootCmd.Execute())
}

func TestRoot_ConfigCaseAndHashNames(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("gif:\n  scaler: CatmullRom\n"), 0o644))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("hash:\n  algorithms: [md5, crc32]\n"), 0o644))

	run := func(path string) error {
		resetFlags(rootCmd)
		rootCmd.SetOut(&bytes.Buffer{})
		rootCmd.SetErr(&bytes.Buffer{})
		rootCmd.SetArgs([]string{"card", "4111", "--config", path})
		return rootCmd.Execute()
	}

	assert.NoError(t, run(good))
	err := run(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, hashgen.ErrUnknownAlgorithm)
}
