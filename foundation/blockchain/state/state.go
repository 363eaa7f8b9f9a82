// Package state is the core API for the blockchain node: it owns the
// active chain, the side branches, the UTXO set, and the mempool, and
// implements validation, chain selection, reorganization, and mining
// assembly over them.
package state

import (
	"sync"

	"github.com/tinychain/tinychain/foundation/blockchain/database"
	"github.com/tinychain/tinychain/foundation/blockchain/mempool"
	"github.com/tinychain/tinychain/foundation/blockchain/p2p"
	"github.com/tinychain/tinychain/foundation/blockchain/params"
	"github.com/tinychain/tinychain/foundation/blockchain/peer"
)

// activeChainIdx identifies the active chain in the chain index scheme:
// index 0 is the active chain, index k>=1 is side branch k-1.
const activeChainIdx = 0

// EventHandler defines a function that is called when events occur in the
// processing of blocks and transactions.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by
// any package providing support for mining.
type Worker interface {
	Shutdown()
	SignalCancelMining()
}

// Config represents the configuration required to start the node state.
type Config struct {
	Params     params.Params
	ChainPath  string
	Host       string
	NetPort    int
	KnownPeers *peer.PeerSet
	EvHandler  EventHandler
}

// State manages the blockchain state machine.
type State struct {
	mu sync.Mutex

	params    params.Params
	chainPath string
	host      string
	evHandler EventHandler

	activeChain  []database.Block
	sideBranches [][]database.Block
	utxoSet      *database.UTXOSet
	mempool      *mempool.Mempool
	orphanBlocks []database.Block

	knownPeers *peer.PeerSet
	client     *p2p.Client

	ibdOnce sync.Once
	ibdDone chan struct{}

	// The Worker is not set here. The call to worker.Run will assign
	// itself and start the mining workflow for the node.
	Worker Worker
}

// New constructs the node state, replaying the chain from disk when a
// chain file exists and starting from genesis otherwise.
func New(cfg Config) (*State, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	s := State{
		params:     cfg.Params,
		chainPath:  cfg.ChainPath,
		host:       cfg.Host,
		evHandler:  ev,
		utxoSet:    database.NewUTXOSet(),
		mempool:    mempool.New(),
		knownPeers: knownPeers,
		ibdDone:    make(chan struct{}),
	}

	s.client = &p2p.Client{
		Port:      cfg.NetPort,
		Peers:     knownPeers,
		EvHandler: ev,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadFromDisk(); err != nil {
		ev("state: load chain from disk failed, starting from genesis: %s", err)
		s.activeChain = nil
		s.sideBranches = nil
		s.utxoSet = database.NewUTXOSet()
	}

	if len(s.activeChain) == 0 {
		s.connectBlock(cfg.Params.Genesis, false)
	}

	return &s, nil
}

// Shutdown cleanly brings the node state down.
func (s *State) Shutdown() error {
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// =============================================================================
// Accessors. Chain mutations happen under the single state mutex; these
// provide snapshots for callers outside the engine.

// Params returns the consensus parameters the state runs with.
func (s *State) Params() params.Params {
	return s.params
}

// RetrieveActiveChain returns a copy of the active chain.
func (s *State) RetrieveActiveChain() []database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := make([]database.Block, len(s.activeChain))
	copy(chain, s.activeChain)

	return chain
}

// Height returns the index of the active tip, with genesis at height 0.
func (s *State) Height() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.height()
}

// RetrieveTip returns the active tip block.
func (s *State) RetrieveTip() (database.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.activeChain) == 0 {
		return database.Block{}, false
	}

	return s.activeChain[len(s.activeChain)-1], true
}

// SideBranches returns a copy of the current side branches.
func (s *State) SideBranches() [][]database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	branches := make([][]database.Block, len(s.sideBranches))
	for i, branch := range s.sideBranches {
		cpy := make([]database.Block, len(branch))
		copy(cpy, branch)
		branches[i] = cpy
	}

	return branches
}

// OrphanBlocks returns a copy of the orphan blocks.
func (s *State) OrphanBlocks() []database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	orphans := make([]database.Block, len(s.orphanBlocks))
	copy(orphans, s.orphanBlocks)

	return orphans
}

// UTXOSet returns the UTXO set.
func (s *State) UTXOSet() *database.UTXOSet {
	return s.utxoSet
}

// Mempool returns the mempool.
func (s *State) Mempool() *mempool.Mempool {
	return s.mempool
}

// RetrieveKnownPeers returns the known peer set.
func (s *State) RetrieveKnownPeers() *peer.PeerSet {
	return s.knownPeers
}

// RetrieveHost returns this node's host identity.
func (s *State) RetrieveHost() string {
	return s.host
}

// =============================================================================

// height assumes the lock is held.
func (s *State) height() int64 {
	return int64(len(s.activeChain)) - 1
}

// signalMineInterrupt tells the mining workflow the tip it is building on
// is stale.
func (s *State) signalMineInterrupt() {
	if s.Worker != nil {
		s.Worker.SignalCancelMining()
	}
}

// IBDDone returns a channel closed once initial block download completes.
func (s *State) IBDDone() <-chan struct{} {
	return s.ibdDone
}

// MarkIBDDone records that initial block download has finished.
func (s *State) MarkIBDDone() {
	s.ibdOnce.Do(func() {
		s.evHandler("state: initial block download complete")
		close(s.ibdDone)
	})
}
