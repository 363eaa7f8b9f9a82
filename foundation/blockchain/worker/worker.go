// Package worker implements the node's background workflows: initial
// block download, peer announcements, and the mining loop.
package worker

import (
	"sync"
	"time"

	"github.com/tinychain/tinychain/foundation/blockchain/state"
)

// peerUpdateInterval represents the interval for announcing this node to
// its known peers.
const peerUpdateInterval = time.Minute

// ibdGracePeriod is how long the node waits on initial block download
// before mining starts regardless of progress.
const ibdGracePeriod = 60 * time.Second

// Worker manages the background workflows for the node.
type Worker struct {
	state        *state.State
	walletPath   string
	wg           sync.WaitGroup
	ticker       *time.Ticker
	shut         chan struct{}
	cancelMining chan bool
	evHandler    state.EventHandler
}

// Run creates a worker, registers it with the state, performs initial
// block download, and starts the background goroutines.
func Run(st *state.State, walletPath string, evHandler state.EventHandler) *Worker {
	w := Worker{
		state:        st,
		walletPath:   walletPath,
		ticker:       time.NewTicker(peerUpdateInterval),
		shut:         make(chan struct{}),
		cancelMining: make(chan bool, 1),
		evHandler:    evHandler,
	}

	// Register this worker with the state so chain mutations can
	// interrupt an in-flight nonce search.
	st.Worker = &w

	// Bring this node up to date with the network before mining.
	w.sync()

	operations := []func(){
		w.peerOperations,
		w.miningOperations,
	}

	g := len(operations)
	w.wg.Add(g)

	hasStarted := make(chan bool)

	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.ticker.Stop()

	close(w.shut)
	w.SignalCancelMining()
	w.wg.Wait()
}

// SignalCancelMining signals the goroutine executing the mining
// operation to stop and restart from the new tip.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
}

// =============================================================================

func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

// sync performs initial block download: ask a random peer for the blocks
// after our tip, then wait for the ping-pong to finish or the grace
// period to expire.
func (w *Worker) sync() {
	if w.state.RetrieveKnownPeers().Count() == 0 {
		w.evHandler("worker: sync: no known peers, skipping initial block download")
		w.state.MarkIBDDone()
		return
	}

	w.evHandler("worker: sync: starting initial block download")

	w.state.AnnounceSelf()
	w.state.RequestInitialBlocks()

	select {
	case <-w.state.IBDDone():
	case <-time.After(ibdGracePeriod):
		w.evHandler("worker: sync: grace period expired, mining starts anyway")
	}
}

// peerOperations handles announcing this node to its peers.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.state.AnnounceSelf()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}
