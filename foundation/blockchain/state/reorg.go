package state

import (
	"github.com/tinychain/tinychain/foundation/blockchain/database"
)

// reorgIfNecessary checks every side branch against the active chain and
// promotes the first branch whose tip height strictly exceeds the active
// height. Chains are compared by block count; see chainWork for the
// cumulative-work hook. Assumes the lock is held.
func (s *State) reorgIfNecessary() bool {
	reorged := false

	frozenSideBranches := make([][]database.Block, len(s.sideBranches))
	copy(frozenSideBranches, s.sideBranches)

	for i, branch := range frozenSideBranches {
		branchIdx := i + 1

		if len(branch) == 0 {
			continue
		}

		_, forkIdx, found := locateBlockInChain(branch[0].PrevBlockHash, s.activeChain)
		if !found {
			continue
		}

		// The branch's height counts the active blocks through the
		// fork plus the branch itself.
		activeHeight := s.chainWork(s.activeChain)
		branchHeight := s.chainWork(branch) + forkIdx + 1

		if branchHeight > activeHeight {
			s.evHandler("state: reorg: attempting reorg of idx %d to active, height %d vs %d",
				branchIdx, branchHeight, activeHeight)

			if s.tryReorg(branch, branchIdx, forkIdx) {
				reorged = true
			}
		}
	}

	return reorged
}

// chainWork is the chain-selection metric. Block count stands in for
// cumulative work; swap the body to sum per-block work to change the
// selection rule.
func (s *State) chainWork(chain []database.Block) int {
	return len(chain)
}

// tryReorg promotes a side branch to active. The active blocks above the
// fork are disconnected and retained; if any branch block fails to
// connect, the whole attempt is rolled back and the previous active chain
// restored. Assumes the lock is held.
func (s *State) tryReorg(branch []database.Block, branchIdx int, forkIdx int) bool {
	forkBlock := s.activeChain[forkIdx]

	oldActive := s.disconnectToFork(forkBlock)

	rollback := func() {
		s.disconnectToFork(forkBlock)
		for _, block := range oldActive {
			if idx, ok := s.connectBlock(block, true); !ok || idx != activeChainIdx {
				s.evHandler("state: reorg: rollback reconnect of %s failed", block.ID())
			}
		}
	}

	for _, block := range branch {
		if idx, ok := s.connectBlock(block, true); !ok || idx != activeChainIdx {
			s.evHandler("state: reorg: block %s failed connect during reorg, rolling back", block.ID())
			rollback()
			return false
		}
	}

	// The branch is now the active chain; the demoted blocks become a
	// side branch of their own.
	s.sideBranches = append(s.sideBranches[:branchIdx-1], s.sideBranches[branchIdx:]...)
	s.sideBranches = append(s.sideBranches, oldActive)

	s.evHandler("state: reorg: chain reorg successful, new height %d", s.height())

	return true
}

// disconnectToFork removes active blocks from the tip down to the fork
// block, returning the removed blocks in their original order. Assumes
// the lock is held.
func (s *State) disconnectToFork(forkBlock database.Block) []database.Block {
	var removed []database.Block

	for len(s.activeChain) > 0 && s.activeChain[len(s.activeChain)-1].ID() != forkBlock.ID() {
		var block database.Block
		s.activeChain, block = s.disconnectBlock(s.activeChain)
		removed = append([]database.Block{block}, removed...)
	}

	return removed
}
