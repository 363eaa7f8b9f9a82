package database

import (
	"context"
	"math/big"
	"runtime"
	"sync"
)

// powCheckInterval is how many nonces a search worker grinds between
// cancellation checks.
const powCheckInterval = 4096

// POW searches for a nonce that makes the block id satisfy the block's
// bits. The search fans out across CPUs, each worker striding the nonce
// space, and is cancelled through the context. Returns the solved block.
func POW(ctx context.Context, b Block) (Block, error) {
	if err := ctx.Err(); err != nil {
		return Block{}, err
	}

	target := PoWTarget(b.Bits)
	workers := runtime.GOMAXPROCS(0)

	var (
		wg     sync.WaitGroup
		once   sync.Once
		solved Block
		found  bool
	)

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(start uint64) {
			defer wg.Done()

			candidate := b
			candidate.Nonce = start

			for {
				for i := 0; i < powCheckInterval; i++ {
					h, ok := new(big.Int).SetString(candidate.ID(), 16)
					if ok && h.Cmp(target) < 0 {
						once.Do(func() {
							solved = candidate
							found = true
							cancel()
						})
						return
					}
					candidate.Nonce += uint64(workers)
				}

				if searchCtx.Err() != nil {
					return
				}
			}
		}(b.Nonce + uint64(w))
	}

	wg.Wait()

	if !found {
		if err := ctx.Err(); err != nil {
			return Block{}, err
		}
		return Block{}, context.Canceled
	}

	return solved, nil
}
