package mempool_test

import (
	"testing"

	"github.com/tinychain/tinychain/foundation/blockchain/database"
	"github.com/tinychain/tinychain/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func makeTx(seq uint32) database.Transaction {
	return database.Transaction{
		TxIns:  []database.TxIn{{ToSpend: &database.OutPoint{TxID: "aa", TxOutIdx: 0}, Sequence: seq}},
		TxOuts: []database.TxOut{{Value: uint64(seq) + 1, ToAddress: "addr"}},
	}
}

func TestCRUD(t *testing.T) {
	t.Log("Given the need to validate mempool operations.")
	{
		mp := mempool.New()

		txs := []database.Transaction{makeTx(0), makeTx(1), makeTx(2)}
		for _, tx := range txs {
			mp.Upsert(tx)
		}

		if mp.Count() != 3 {
			t.Fatalf("\t%s\tTest 0:\tShould hold three transactions, got %d.", failed, mp.Count())
		}
		t.Logf("\t%s\tTest 0:\tShould hold three transactions.", success)

		ids := mp.TxIDs()
		for i, tx := range txs {
			if ids[i] != tx.ID() {
				t.Fatalf("\t%s\tTest 0:\tShould keep insertion order at %d.", failed, i)
			}
		}
		t.Logf("\t%s\tTest 0:\tShould keep insertion order.", success)

		// Re-upserting must not change position or count.
		mp.Upsert(txs[0])
		if mp.Count() != 3 || mp.TxIDs()[0] != txs[0].ID() {
			t.Fatalf("\t%s\tTest 0:\tShould keep position across upserts.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould keep position across upserts.", success)

		mp.Delete(txs[1].ID())
		if mp.Count() != 2 || mp.Contains(txs[1].ID()) {
			t.Fatalf("\t%s\tTest 0:\tShould delete a transaction.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould delete a transaction.", success)

		ids = mp.TxIDs()
		if ids[0] != txs[0].ID() || ids[1] != txs[2].ID() {
			t.Fatalf("\t%s\tTest 0:\tShould keep order after delete.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould keep order after delete.", success)
	}
}

func TestFindUTXO(t *testing.T) {
	t.Log("Given the need to resolve inputs against unconfirmed outputs.")
	{
		mp := mempool.New()

		parent := makeTx(9)
		mp.Upsert(parent)

		txIn := database.TxIn{ToSpend: &database.OutPoint{TxID: parent.ID(), TxOutIdx: 0}}

		utxo, found := mp.FindUTXO(txIn)
		if !found {
			t.Fatalf("\t%s\tTest 0:\tShould resolve an unconfirmed output.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould resolve an unconfirmed output.", success)

		if utxo.Height != -1 || utxo.IsCoinbase {
			t.Fatalf("\t%s\tTest 0:\tShould mark the record unconfirmed: %+v", failed, utxo)
		}
		t.Logf("\t%s\tTest 0:\tShould mark the record unconfirmed.", success)

		badIdx := database.TxIn{ToSpend: &database.OutPoint{TxID: parent.ID(), TxOutIdx: 5}}
		if _, found := mp.FindUTXO(badIdx); found {
			t.Fatalf("\t%s\tTest 0:\tShould not resolve an out of range index.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould not resolve an out of range index.", success)

		if _, found := mp.FindUTXO(database.TxIn{}); found {
			t.Fatalf("\t%s\tTest 0:\tShould not resolve a coinbase input.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould not resolve a coinbase input.", success)
	}
}

func TestOrphans(t *testing.T) {
	t.Log("Given the need to park orphan transactions.")
	{
		mp := mempool.New()

		orphan := makeTx(3)
		mp.AddOrphan(orphan)

		orphans := mp.Orphans()
		if len(orphans) != 1 || orphans[0].ID() != orphan.ID() {
			t.Fatalf("\t%s\tTest 0:\tShould hold the orphan.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould hold the orphan.", success)

		if mp.Contains(orphan.ID()) {
			t.Fatalf("\t%s\tTest 0:\tShould not admit the orphan to the pool.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould not admit the orphan to the pool.", success)
	}
}
