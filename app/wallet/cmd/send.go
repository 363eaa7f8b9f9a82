package cmd

import (
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tinychain/tinychain/foundation/blockchain/wallet"
)

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send [address] [value]",
	Short: "Send belushis to an address.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		toAddress := args[0]

		value, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			log.Fatal(err)
		}

		w, err := wallet.Load(walletPath)
		if err != nil {
			log.Fatal(err)
		}

		utxos, err := fetchUTXOs(w.Address())
		if err != nil {
			log.Fatal(err)
		}

		tx, err := w.BuildTransaction(utxos, toAddress, value)
		if err != nil {
			log.Fatal(err)
		}

		if err := nodeClient().Send(nodeHost, tx); err != nil {
			log.Fatal(err)
		}

		fmt.Println("sent txn:", tx.ID())
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
