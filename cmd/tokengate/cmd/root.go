package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tokengate",
	Short: "tokengate issues, validates, and revokes session bearer tokens",
	Long: `tokengate is a bearer-token authentication service. Tokens are signed JWTs bound to a
server-side session record, so a token stops working the moment its session is revoked.
Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
