package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tinychain/tinychain/foundation/blockchain/database"
	"github.com/tinychain/tinychain/foundation/blockchain/serialize"
)

// SaveToDisk writes the active chain to the chain file using the same
// framing as the wire protocol.
func (s *State) SaveToDisk() error {
	s.mu.Lock()
	chain := make([]database.Block, len(s.activeChain))
	copy(chain, s.activeChain)
	s.mu.Unlock()

	f, err := os.Create(s.chainPath)
	if err != nil {
		return fmt.Errorf("create chain file: %w", err)
	}
	defer f.Close()

	if err := serialize.WriteFrame(f, chain); err != nil {
		return fmt.Errorf("write chain file: %w", err)
	}

	s.evHandler("state: saved chain with %d blocks", len(chain))

	return nil
}

// loadFromDisk replays the chain file through connectBlock. A missing
// file is not an error; a corrupt one is, and the caller restarts from
// genesis. Assumes the lock is held.
func (s *State) loadFromDisk() error {
	if s.chainPath == "" {
		return nil
	}

	f, err := os.Open(s.chainPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open chain file: %w", err)
	}
	defer f.Close()

	msg, err := serialize.ReadMessage(f)
	if err != nil {
		return fmt.Errorf("read chain file: %w", err)
	}

	blocks, ok := msg.([]any)
	if !ok {
		return fmt.Errorf("chain file does not contain a block list")
	}

	for _, raw := range blocks {
		block, ok := raw.(database.Block)
		if !ok {
			return fmt.Errorf("chain file entry is not a block")
		}
		s.connectBlock(block, false)
	}

	s.evHandler("state: loaded chain with %d blocks from %s", len(s.activeChain), s.chainPath)

	return nil
}
