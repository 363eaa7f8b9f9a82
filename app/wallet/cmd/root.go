// Package cmd contains the wallet app commands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	walletPath string
	nodeHost   string
	nodePort   int
)

// rootCmd represents the base command when called without any
// subcommands.
var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Your simple tinychain wallet",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&walletPath, "wallet", "w", "wallet.dat", "Path to the wallet file.")
	rootCmd.PersistentFlags().StringVarP(&nodeHost, "node", "n", "localhost", "Hostname of the node to talk to.")
	rootCmd.PersistentFlags().IntVarP(&nodePort, "port", "p", 9999, "Port of the node to talk to.")
}
