package cmd

import (
	"fmt"

	"github.com/tinychain/tinychain/foundation/blockchain/database"
	"github.com/tinychain/tinychain/foundation/blockchain/p2p"
	"github.com/tinychain/tinychain/foundation/blockchain/peer"
)

// nodeClient constructs a p2p client pointed at the configured node.
func nodeClient() *p2p.Client {
	peers := peer.NewPeerSet()
	peers.Add(peer.New(nodeHost))

	return &p2p.Client{
		Port:  nodePort,
		Peers: peers,
	}
}

// fetchUTXOs asks the node for its UTXO set and returns the outputs
// locked to the specified address.
func fetchUTXOs(address string) ([]database.UnspentTxOut, error) {
	client := nodeClient()

	resp, err := client.Request(nodeHost, p2p.GetUTXOsMsg{})
	if err != nil {
		return nil, fmt.Errorf("query node: %w", err)
	}

	pairs, ok := resp.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected response %T", resp)
	}

	var utxos []database.UnspentTxOut
	for _, rawPair := range pairs {
		pair, ok := rawPair.([]any)
		if !ok || len(pair) != 2 {
			continue
		}

		utxo, ok := pair[1].(database.UnspentTxOut)
		if !ok {
			continue
		}

		if address == "" || utxo.ToAddress == address {
			utxos = append(utxos, utxo)
		}
	}

	return utxos, nil
}
