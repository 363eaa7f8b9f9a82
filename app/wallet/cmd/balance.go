package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/tinychain/tinychain/foundation/blockchain/params"
	"github.com/tinychain/tinychain/foundation/blockchain/wallet"
)

// balanceCmd represents the balance command.
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run: func(cmd *cobra.Command, args []string) {
		w, err := wallet.Load(walletPath)
		if err != nil {
			log.Fatal(err)
		}

		utxos, err := fetchUTXOs(w.Address())
		if err != nil {
			log.Fatal(err)
		}

		var total uint64
		for _, utxo := range utxos {
			total += utxo.Value
		}

		fmt.Printf("%s: %d belushis (%.8f coins)\n",
			w.Address(), total, float64(total)/float64(params.BelushisPerCoin))
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
