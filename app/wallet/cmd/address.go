package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/tinychain/tinychain/foundation/blockchain/wallet"
)

// addressCmd represents the address command.
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print your payment address.",
	Run: func(cmd *cobra.Command, args []string) {
		w, err := wallet.Load(walletPath)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(w.Address())
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
}
