package worker

import (
	"context"
	"errors"

	"github.com/tinychain/tinychain/foundation/blockchain/wallet"
)

// miningOperations runs the mining loop: assemble a block on the current
// tip, search for a nonce, connect and persist on success, repeat.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		default:
			w.runMiningOperation()
		}
	}
}

// runMiningOperation performs one assemble-and-solve attempt. A chain
// mutation elsewhere cancels the nonce search so the next attempt builds
// on the new tip.
func (w *Worker) runMiningOperation() {

	// The wallet is re-read each round so a rotated key file takes
	// effect without a restart.
	wlt, err := wallet.Load(w.walletPath)
	if err != nil {
		w.evHandler("worker: runMiningOperation: wallet: ERROR: %s", err)
		return
	}

	// Drain any stale cancel signal before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
			cancel()
		case <-w.shut:
			cancel()
		case <-ctx.Done():
		}
	}()

	block, err := w.state.AssembleAndSolveBlock(ctx, wlt.Address(), nil)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return
	}

	if _, ok := w.state.ConnectBlock(block); !ok {
		w.evHandler("worker: runMiningOperation: MINING: WARNING: mined block %s rejected", block.ID())
		return
	}

	if err := w.state.SaveToDisk(); err != nil {
		w.evHandler("worker: runMiningOperation: MINING: save chain: ERROR: %s", err)
	}
}
