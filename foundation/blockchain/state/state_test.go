package state_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/tinychain/tinychain/foundation/blockchain/database"
	"github.com/tinychain/tinychain/foundation/blockchain/merkle"
	"github.com/tinychain/tinychain/foundation/blockchain/params"
	"github.com/tinychain/tinychain/foundation/blockchain/state"
	"github.com/tinychain/tinychain/foundation/blockchain/wallet"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// testBits keeps the nonce search short enough for unit tests.
const testBits = 12

// =============================================================================
// Test helpers.

// solve grinds the nonce until the block satisfies its own bits.
func solve(t *testing.T, b database.Block) database.Block {
	t.Helper()

	for !b.SatisfiesPoW() {
		b.Nonce++
	}

	return b
}

// merkleOf recomputes the merkle commitment for a transaction set.
func merkleOf(txns []database.Transaction) string {
	ids := make([]string, len(txns))
	for i, tx := range txns {
		ids[i] = tx.ID()
	}

	return merkle.Root(ids).Val
}

// testParams builds a cheap-difficulty network whose genesis coinbase
// pays the specified address.
func testParams(t *testing.T, payTo string, periodInBlocks int) params.Params {
	t.Helper()

	coinbase := database.NewCoinbase(payTo, 5_000_000_000, 0)

	genesis := database.Block{
		Version:       0,
		PrevBlockHash: database.GenesisPrevBlockHash,
		MerkleHash:    merkleOf([]database.Transaction{coinbase}),
		Timestamp:     time.Now().Unix() - 1000,
		Bits:          testBits,
		Nonce:         0,
		Txns:          []database.Transaction{coinbase},
	}

	return params.Params{
		MaxFutureBlockTime:       60 * 60 * 2,
		CoinbaseMaturity:         2,
		TimeBetweenBlocksTarget:  60,
		DifficultyPeriodTarget:   60 * 60 * 10,
		DifficultyPeriodInBlocks: periodInBlocks,
		InitialDifficultyBits:    testBits,
		HalveSubsidyAfterBlocks:  210_000,
		Genesis:                  solve(t, genesis),
	}
}

// newTestState builds a node state over a fresh test network.
func newTestState(t *testing.T, payTo string) (*state.State, params.Params) {
	t.Helper()

	p := testParams(t, payTo, 1000)

	s, err := state.New(state.Config{
		Params:    p,
		ChainPath: "",
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	return s, p
}

// makeChild builds and solves a block on top of prev.
func makeChild(t *testing.T, s *state.State, prev database.Block, ts int64, height int, payTo string, extra []database.Transaction) database.Block {
	t.Helper()

	coinbase := database.NewCoinbase(payTo, 50*params.BelushisPerCoin, height)
	txns := append([]database.Transaction{coinbase}, extra...)

	block := database.Block{
		Version:       0,
		PrevBlockHash: prev.ID(),
		MerkleHash:    merkleOf(txns),
		Timestamp:     ts,
		Bits:          s.NextWorkRequired(prev.ID()),
		Nonce:         0,
		Txns:          txns,
	}

	return solve(t, block)
}

func testWallet(t *testing.T) *wallet.Wallet {
	t.Helper()

	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a key: %v", failed, err)
	}

	return wallet.New(priv)
}

// =============================================================================

func TestGenesisOnly(t *testing.T) {
	t.Log("Given the need to validate a fresh node holds only genesis.")
	{
		w := testWallet(t)
		s, p := newTestState(t, w.Address())

		chain := s.RetrieveActiveChain()
		if len(chain) != 1 || chain[0].ID() != p.Genesis.ID() {
			t.Fatalf("\t%s\tTest 0:\tShould hold exactly the genesis block.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould hold exactly the genesis block.", success)

		if s.UTXOSet().Count() != 1 {
			t.Fatalf("\t%s\tTest 0:\tShould hold one UTXO, got %d.", failed, s.UTXOSet().Count())
		}
		t.Logf("\t%s\tTest 0:\tShould hold one UTXO.", success)

		utxo, ok := s.UTXOSet().Get(database.OutPoint{TxID: p.Genesis.Txns[0].ID(), TxOutIdx: 0})
		if !ok || utxo.Value != 5_000_000_000 || utxo.Height != 0 || !utxo.IsCoinbase {
			t.Fatalf("\t%s\tTest 0:\tShould hold the genesis coinbase output: %+v", failed, utxo)
		}
		t.Logf("\t%s\tTest 0:\tShould hold the genesis coinbase output.", success)
	}
}

func TestMineOneBlock(t *testing.T) {
	t.Log("Given the need to mine a block on top of genesis.")
	{
		w := testWallet(t)
		s, _ := newTestState(t, w.Address())

		miner := testWallet(t)

		block, err := s.AssembleAndSolveBlock(context.Background(), miner.Address(), nil)
		if err != nil {
			t.Fatalf("\t%s\tTest 0:\tShould be able to mine a block: %v", failed, err)
		}
		t.Logf("\t%s\tTest 0:\tShould be able to mine a block.", success)

		if idx, ok := s.ConnectBlock(block); !ok || idx != 0 {
			t.Fatalf("\t%s\tTest 0:\tShould connect the block to the active chain.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould connect the block to the active chain.", success)

		if s.Height() != 1 {
			t.Fatalf("\t%s\tTest 0:\tShould be at height 1, got %d.", failed, s.Height())
		}
		t.Logf("\t%s\tTest 0:\tShould be at height 1.", success)

		utxo, ok := s.UTXOSet().Get(database.OutPoint{TxID: block.Txns[0].ID(), TxOutIdx: 0})
		if !ok || utxo.Value != 50*params.BelushisPerCoin || utxo.Height != 1 {
			t.Fatalf("\t%s\tTest 0:\tShould credit the full subsidy at height 1: %+v", failed, utxo)
		}
		t.Logf("\t%s\tTest 0:\tShould credit the full subsidy at height 1.", success)

		if s.Mempool().Count() != 0 {
			t.Fatalf("\t%s\tTest 0:\tShould leave the mempool unchanged.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould leave the mempool unchanged.", success)
	}
}

func TestCoinbaseMaturity(t *testing.T) {
	t.Log("Given the need to enforce coinbase maturity.")
	{
		w := testWallet(t)
		s, p := newTestState(t, w.Address())

		base := p.Genesis.Timestamp
		miner := testWallet(t)

		a1 := makeChild(t, s, p.Genesis, base+100, 1, miner.Address(), nil)
		if _, ok := s.ConnectBlock(a1); !ok {
			t.Fatalf("\t%s\tTest 0:\tShould connect block 1.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould connect block 1.", success)

		spend, err := w.BuildTransaction(s.UTXOSet().FindByAddress(w.Address()), miner.Address(), 1_000_000_000)
		if err != nil {
			t.Fatalf("\t%s\tTest 0:\tShould be able to build a spend: %v", failed, err)
		}

		if s.AddTxnToMempool(spend) {
			t.Fatalf("\t%s\tTest 0:\tShould reject an immature coinbase spend at height 1.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould reject an immature coinbase spend at height 1.", success)

		a2 := makeChild(t, s, a1, base+200, 2, miner.Address(), nil)
		if _, ok := s.ConnectBlock(a2); !ok {
			t.Fatalf("\t%s\tTest 0:\tShould connect block 2.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould connect block 2.", success)

		if !s.AddTxnToMempool(spend) {
			t.Fatalf("\t%s\tTest 0:\tShould accept the same spend at height 2.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould accept the same spend at height 2.", success)
	}
}

func TestMineWithTransaction(t *testing.T) {
	t.Log("Given the need to mine a block carrying a mempool spend.")
	{
		w := testWallet(t)
		s, p := newTestState(t, w.Address())

		base := p.Genesis.Timestamp
		miner := testWallet(t)

		a1 := makeChild(t, s, p.Genesis, base+100, 1, miner.Address(), nil)
		s.ConnectBlock(a1)
		a2 := makeChild(t, s, a1, base+200, 2, miner.Address(), nil)
		s.ConnectBlock(a2)

		spend, err := w.BuildTransaction(s.UTXOSet().FindByAddress(w.Address()), miner.Address(), 1_000_000_000)
		if err != nil {
			t.Fatalf("\t%s\tTest 0:\tShould be able to build a spend: %v", failed, err)
		}
		if !s.AddTxnToMempool(spend) {
			t.Fatalf("\t%s\tTest 0:\tShould accept the spend into the mempool.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould accept the spend into the mempool.", success)

		block, err := s.AssembleAndSolveBlock(context.Background(), miner.Address(), nil)
		if err != nil {
			t.Fatalf("\t%s\tTest 0:\tShould be able to mine: %v", failed, err)
		}

		if len(block.Txns) != 2 || block.Txns[1].ID() != spend.ID() {
			t.Fatalf("\t%s\tTest 0:\tShould include the mempool spend.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould include the mempool spend.", success)

		// The whole 5000000000 input goes to a 1000000000 output, so
		// the difference joins the subsidy as fee.
		expValue := uint64(50*params.BelushisPerCoin) + 4_000_000_000
		if block.Txns[0].TxOuts[0].Value != expValue {
			t.Fatalf("\t%s\tTest 0:\tShould pay subsidy plus fees, got %d, exp %d.", failed, block.Txns[0].TxOuts[0].Value, expValue)
		}
		t.Logf("\t%s\tTest 0:\tShould pay subsidy plus fees.", success)

		if _, ok := s.ConnectBlock(block); !ok {
			t.Fatalf("\t%s\tTest 0:\tShould connect the block.", failed)
		}

		if s.Mempool().Contains(spend.ID()) {
			t.Fatalf("\t%s\tTest 0:\tShould remove the confirmed spend from the mempool.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould remove the confirmed spend from the mempool.", success)

		if s.UTXOSet().Contains(database.OutPoint{TxID: p.Genesis.Txns[0].ID(), TxOutIdx: 0}) {
			t.Fatalf("\t%s\tTest 0:\tShould remove the spent genesis output.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould remove the spent genesis output.", success)
	}
}

func TestReorgLongerBranchWins(t *testing.T) {
	t.Log("Given the need to reorganize onto a longer side branch.")
	{
		w := testWallet(t)
		s, p := newTestState(t, w.Address())

		base := p.Genesis.Timestamp
		minerA := testWallet(t)
		minerB := testWallet(t)

		a1 := makeChild(t, s, p.Genesis, base+100, 1, minerA.Address(), nil)
		s.ConnectBlock(a1)
		a2 := makeChild(t, s, a1, base+200, 2, minerA.Address(), nil)
		s.ConnectBlock(a2)

		// Two blocks forking off genesis: equal height, no reorg.
		b1 := makeChild(t, s, p.Genesis, base+110, 1, minerB.Address(), nil)
		if idx, ok := s.ConnectBlock(b1); !ok || idx != 1 {
			t.Fatalf("\t%s\tTest 0:\tShould connect the fork to side branch 1, got %d.", failed, idx)
		}
		t.Logf("\t%s\tTest 0:\tShould connect the fork to side branch 1.", success)

		b2 := makeChild(t, s, b1, base+210, 2, minerB.Address(), nil)
		s.ConnectBlock(b2)

		if len(s.RetrieveActiveChain()) != 3 {
			t.Fatalf("\t%s\tTest 0:\tShould not reorg on equal height.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould not reorg on equal height.", success)

		// The third side block makes the branch strictly taller.
		b3 := makeChild(t, s, b2, base+310, 3, minerB.Address(), nil)
		s.ConnectBlock(b3)

		chain := s.RetrieveActiveChain()
		if len(chain) != 4 || chain[3].ID() != b3.ID() {
			t.Fatalf("\t%s\tTest 0:\tShould reorg to the longer branch, height %d.", failed, len(chain)-1)
		}
		t.Logf("\t%s\tTest 0:\tShould reorg to the longer branch.", success)

		branches := s.SideBranches()
		var demoted []database.Block
		for _, branch := range branches {
			if len(branch) == 2 && branch[0].ID() == a1.ID() && branch[1].ID() == a2.ID() {
				demoted = branch
			}
		}
		if demoted == nil {
			t.Fatalf("\t%s\tTest 0:\tShould demote the former active blocks to a side branch.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould demote the former active blocks to a side branch.", success)

		// The UTXO set must reflect the new chain only.
		for height, block := range []database.Block{b1, b2, b3} {
			utxo, ok := s.UTXOSet().Get(database.OutPoint{TxID: block.Txns[0].ID(), TxOutIdx: 0})
			if !ok || utxo.Height != int64(height)+1 {
				t.Fatalf("\t%s\tTest 0:\tShould hold the new chain coinbase at height %d.", failed, height+1)
			}
		}
		t.Logf("\t%s\tTest 0:\tShould hold the new chain coinbases.", success)

		for _, block := range []database.Block{a1, a2} {
			if s.UTXOSet().Contains(database.OutPoint{TxID: block.Txns[0].ID(), TxOutIdx: 0}) {
				t.Fatalf("\t%s\tTest 0:\tShould drop the demoted chain coinbases.", failed)
			}
		}
		t.Logf("\t%s\tTest 0:\tShould drop the demoted chain coinbases.", success)
	}
}

func TestReorgRollback(t *testing.T) {
	t.Log("Given the need to roll back a reorg onto an invalid branch.")
	{
		w := testWallet(t)
		s, p := newTestState(t, w.Address())

		base := p.Genesis.Timestamp
		minerA := testWallet(t)
		minerB := testWallet(t)

		a1 := makeChild(t, s, p.Genesis, base+100, 1, minerA.Address(), nil)
		s.ConnectBlock(a1)
		a2 := makeChild(t, s, a1, base+200, 2, minerA.Address(), nil)
		s.ConnectBlock(a2)

		b1 := makeChild(t, s, p.Genesis, base+110, 1, minerB.Address(), nil)
		s.ConnectBlock(b1)
		b2 := makeChild(t, s, b1, base+210, 2, minerB.Address(), nil)
		s.ConnectBlock(b2)

		// The tall block carries the wrong bits. Side branch extension
		// skips the bits check, so it joins the branch, but the full
		// validation during the reorg rejects it.
		b3 := makeChild(t, s, b2, base+310, 3, minerB.Address(), nil)
		b3.Bits = testBits + 1
		b3 = solve(t, b3)
		s.ConnectBlock(b3)

		chain := s.RetrieveActiveChain()
		if len(chain) != 3 || chain[1].ID() != a1.ID() || chain[2].ID() != a2.ID() {
			t.Fatalf("\t%s\tTest 0:\tShould restore the original active chain.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould restore the original active chain.", success)

		for height, block := range []database.Block{a1, a2} {
			utxo, ok := s.UTXOSet().Get(database.OutPoint{TxID: block.Txns[0].ID(), TxOutIdx: 0})
			if !ok || utxo.Height != int64(height)+1 {
				t.Fatalf("\t%s\tTest 0:\tShould restore the active chain coinbases.", failed)
			}
		}
		t.Logf("\t%s\tTest 0:\tShould restore the active chain coinbases.", success)

		var kept bool
		for _, branch := range s.SideBranches() {
			if len(branch) == 3 && branch[0].ID() == b1.ID() {
				kept = true
			}
		}
		if !kept {
			t.Fatalf("\t%s\tTest 0:\tShould keep the failed branch as a side branch.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould keep the failed branch as a side branch.", success)
	}
}

func TestOrphanBlock(t *testing.T) {
	t.Log("Given the need to park a block with an unknown parent.")
	{
		w := testWallet(t)
		s, _ := newTestState(t, w.Address())

		miner := testWallet(t)

		coinbase := database.NewCoinbase(miner.Address(), 50*params.BelushisPerCoin, 9)
		orphan := database.Block{
			Version:       0,
			PrevBlockHash: "00000000000000000000000000000000000000000000000000000000deadbeef",
			MerkleHash:    merkleOf([]database.Transaction{coinbase}),
			Timestamp:     time.Now().Unix(),
			Bits:          testBits,
			Nonce:         0,
			Txns:          []database.Transaction{coinbase},
		}
		orphan = solve(t, orphan)

		if _, ok := s.ConnectBlock(orphan); ok {
			t.Fatalf("\t%s\tTest 0:\tShould not connect an orphan block.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould not connect an orphan block.", success)

		orphans := s.OrphanBlocks()
		if len(orphans) != 1 || orphans[0].ID() != orphan.ID() {
			t.Fatalf("\t%s\tTest 0:\tShould hold exactly that orphan.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould hold exactly that orphan.", success)

		if s.Height() != 0 {
			t.Fatalf("\t%s\tTest 0:\tShould leave the active chain unchanged.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould leave the active chain unchanged.", success)
	}
}

func TestDifficultyRetarget(t *testing.T) {
	t.Log("Given the need to retarget difficulty at a period boundary.")
	{
		w := testWallet(t)
		p := testParams(t, w.Address(), 3)

		s, err := state.New(state.Config{Params: p})
		if err != nil {
			t.Fatalf("\t%s\tTest 0:\tShould be able to construct the state: %v", failed, err)
		}

		base := p.Genesis.Timestamp
		miner := testWallet(t)

		c1 := makeChild(t, s, p.Genesis, base+1, 1, miner.Address(), nil)
		s.ConnectBlock(c1)
		c2 := makeChild(t, s, c1, base+2, 2, miner.Address(), nil)
		s.ConnectBlock(c2)

		// The period of 3 blocks completed in 2 seconds, far under the
		// target, so the next block must be one bit harder.
		if bits := s.NextWorkRequired(c2.ID()); bits != testBits+1 {
			t.Fatalf("\t%s\tTest 0:\tShould raise difficulty by one bit, got %d.", failed, bits)
		}
		t.Logf("\t%s\tTest 0:\tShould raise difficulty by one bit.", success)

		// Inside a period the previous bits carry forward.
		if bits := s.NextWorkRequired(c1.ID()); bits != testBits {
			t.Fatalf("\t%s\tTest 0:\tShould keep bits inside a period, got %d.", failed, bits)
		}
		t.Logf("\t%s\tTest 0:\tShould keep bits inside a period.", success)
	}
}

func TestPersistence(t *testing.T) {
	t.Log("Given the need to persist and reload the active chain.")
	{
		w := testWallet(t)
		p := testParams(t, w.Address(), 1000)

		chainPath := t.TempDir() + "/chain.dat"

		s, err := state.New(state.Config{Params: p, ChainPath: chainPath})
		if err != nil {
			t.Fatalf("\t%s\tTest 0:\tShould be able to construct the state: %v", failed, err)
		}

		miner := testWallet(t)
		a1 := makeChild(t, s, p.Genesis, p.Genesis.Timestamp+100, 1, miner.Address(), nil)
		s.ConnectBlock(a1)

		if err := s.SaveToDisk(); err != nil {
			t.Fatalf("\t%s\tTest 0:\tShould be able to save the chain: %v", failed, err)
		}
		t.Logf("\t%s\tTest 0:\tShould be able to save the chain.", success)

		reloaded, err := state.New(state.Config{Params: p, ChainPath: chainPath})
		if err != nil {
			t.Fatalf("\t%s\tTest 0:\tShould be able to reload the state: %v", failed, err)
		}

		if reloaded.Height() != 1 {
			t.Fatalf("\t%s\tTest 0:\tShould reload to height 1, got %d.", failed, reloaded.Height())
		}
		t.Logf("\t%s\tTest 0:\tShould reload to height 1.", success)

		tip, _ := reloaded.RetrieveTip()
		if tip.ID() != a1.ID() {
			t.Fatalf("\t%s\tTest 0:\tShould reload the same tip.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould reload the same tip.", success)

		if reloaded.UTXOSet().Count() != 2 {
			t.Fatalf("\t%s\tTest 0:\tShould rebuild the UTXO set, got %d.", failed, reloaded.UTXOSet().Count())
		}
		t.Logf("\t%s\tTest 0:\tShould rebuild the UTXO set.", success)

		t.Logf("\tTest 1:\tWhen the chain file is corrupt.")
		{
			if err := writeJunk(chainPath); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to corrupt the file: %v", failed, err)
			}

			fresh, err := state.New(state.Config{Params: p, ChainPath: chainPath})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould still construct the state: %v", failed, err)
			}

			if fresh.Height() != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould restart from genesis, got height %d.", failed, fresh.Height())
			}
			t.Logf("\t%s\tTest 1:\tShould restart from genesis.", success)
		}
	}
}

func writeJunk(path string) error {
	return os.WriteFile(path, []byte("this is not a chain file"), 0644)
}

func TestMiningInterrupt(t *testing.T) {
	t.Log("Given the need to abandon a nonce search whose context is cancelled.")
	{
		w := testWallet(t)
		s, _ := newTestState(t, w.Address())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := s.AssembleAndSolveBlock(ctx, w.Address(), nil); err == nil {
			t.Fatalf("\t%s\tTest 0:\tShould return an error when cancelled.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould return an error when cancelled.", success)
	}
}
