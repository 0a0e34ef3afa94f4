package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"snaptools/internal/hashgen"
	"snaptools/internal/ui"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	hashText  string
	hashAlgos string
	hashQuiet bool
)

// hashCmd computes digests
var hashCmd = &cobra.Command{
	Use:   "hash [FILE|-]",
	Short: "Compute MD5/SHA digests of text or a file",
	Long: `Computes message digests of a file, stdin ("-") or --text.
All digests are computed in a single pass and printed as lower-case hex.

Supported algorithms: MD5, SHA-1, SHA-256, SHA-384, SHA-512, SHA3-256, BLAKE2b-256.

Examples:
  snaptools hash --text "hello world"
  snaptools hash --algo sha256,blake2b-256 image.iso
  cat notes.txt | snaptools hash -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHash,
}

func init() {
	hashCmd.Flags().StringVarP(&hashText, "text", "t", "", "Hash this text instead of a file")
	hashCmd.Flags().StringVarP(&hashAlgos, "algo", "a", "", "Comma-separated algorithms (default from config)")
	hashCmd.Flags().BoolVarP(&hashQuiet, "quiet", "q", false, "Hide the progress bar")
}

func hashAlgorithms() ([]hashgen.Algorithm, error) {
	names := cfg.Hash.Algorithms
	if hashAlgos != "" {
		names = strings.Split(hashAlgos, ",")
	}
	return hashgen.ParseList(names)
}

func runHash(cmd *cobra.Command, args []string) error {
	algos, err := hashAlgorithms()
	if err != nil {
		return err
	}

	textSet := cmd.Flags().Changed("text")
	switch {
	case textSet && len(args) > 0:
		return fmt.Errorf("give either --text or a file, not both")
	case !textSet && len(args) == 0:
		return fmt.Errorf("nothing to hash: give a file, \"-\" or --text")
	}

	var digests []hashgen.Digest
	switch {
	case textSet:
		digests, err = hashgen.SumString(hashText, algos...)
	case args[0] == "-":
		digests, err = hashgen.Sum(cmd.InOrStdin(), nil, algos...)
	default:
		digests, err = hashFile(cmd, args[0], algos)
	}
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), ui.RenderHashes(ui.DefaultStyles(), digests))
	return nil
}

func hashFile(cmd *cobra.Command, path string, algos []hashgen.Algorithm) ([]hashgen.Digest, error) {
	if hashQuiet {
		return hashgen.SumFile(path, nil, algos...)
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	bar := progressbar.NewOptions64(
		st.Size(),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("hashing"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(120*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	defer func() { _ = bar.Finish() }()

	return hashgen.SumFile(path, func(n int64) { _ = bar.Add64(n) }, algos...)
}
