package main

import (
	"fmt"
	"strings"

	"snaptools/internal/cardcheck"
	"snaptools/internal/logging"
	"snaptools/internal/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cardStrict bool

// cardCmd validates a payment card number
var cardCmd = &cobra.Command{
	Use:   "card NUMBER...",
	Short: "Validate a card number with the Luhn checksum",
	Long: `Strips everything but digits from NUMBER, detects the card network from
its prefix and verifies the Luhn checksum. Arguments are joined, so the
number may be typed in groups.

Examples:
  snaptools card 4111 1111 1111 1111
  snaptools card --strict 378282246310005`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCard,
}

func init() {
	cardCmd.Flags().BoolVar(&cardStrict, "strict", false, "Exit with an error when the number is not valid")
}

func runCard(cmd *cobra.Command, args []string) error {
	res := cardcheck.Check(strings.Join(args, " "))

	network := ""
	if res.Network != nil {
		network = res.Network.Name
	}
	// Never log the number itself.
	logging.Get(logging.CategoryCard).Debug("card checked",
		zap.Int("digits", len(res.Digits)),
		zap.String("network", network),
		zap.Bool("valid", res.Valid),
	)

	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSuffix(ui.RenderCard(ui.DefaultStyles(), res), "\n"))
	if cardStrict && !res.Valid {
		return fmt.Errorf("card number is not valid")
	}
	return nil
}
