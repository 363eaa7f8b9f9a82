package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/tinychain/tinychain/foundation/blockchain/wallet"
)

// generateCmd represents the generate command.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new wallet key if none exists",
	Run: func(cmd *cobra.Command, args []string) {
		w, err := wallet.Load(walletPath)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("wallet:", walletPath)
		fmt.Println("address:", w.Address())
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
