// AngelaMos | 2026
// secret.go

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/voice-tutor/internal/core"
)

var secretBytes int

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Print a random value for TELEGRAM_WEBHOOK_SECRET",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := core.GenerateSecureToken(secretBytes)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	secretCmd.Flags().IntVar(&secretBytes, "bytes", 32, "number of random bytes before encoding")
}
