package merkle_test

import (
	"testing"

	"github.com/tinychain/tinychain/foundation/blockchain/merkle"
	"github.com/tinychain/tinychain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func TestRoot(t *testing.T) {
	t.Log("Given the need to build merkle roots over transaction ids.")
	{
		t.Logf("\tTest 0:\tWhen handling a single leaf.")
		{
			root := merkle.Root([]string{"leafA"})
			if root == nil {
				t.Fatalf("\t%s\tTest 0:\tShould get a root back.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get a root back.", success)

			// A single leaf is duplicated before pairing.
			h := signature.Hash([]byte("leafA"))
			exp := signature.Hash([]byte(h + h))
			if root.Val != exp {
				t.Fatalf("\t%s\tTest 0:\tShould duplicate the last leaf: got %s, exp %s.", failed, root.Val, exp)
			}
			t.Logf("\t%s\tTest 0:\tShould duplicate the last leaf.", success)

			if len(root.Children) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould have two children.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have two children.", success)
		}

		t.Logf("\tTest 1:\tWhen handling an odd number of leaves.")
		{
			odd := merkle.Root([]string{"a", "b", "c"})
			padded := merkle.Root([]string{"a", "b", "c", "c"})

			if odd.Val != padded.Val {
				t.Fatalf("\t%s\tTest 1:\tShould equal the explicitly padded tree.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould equal the explicitly padded tree.", success)
		}

		t.Logf("\tTest 2:\tWhen checking determinism and order sensitivity.")
		{
			first := merkle.Root([]string{"a", "b", "c", "d"})
			second := merkle.Root([]string{"a", "b", "c", "d"})
			if first.Val != second.Val {
				t.Fatalf("\t%s\tTest 2:\tShould be deterministic.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould be deterministic.", success)

			swapped := merkle.Root([]string{"b", "a", "c", "d"})
			if first.Val == swapped.Val {
				t.Fatalf("\t%s\tTest 2:\tShould depend on leaf order.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould depend on leaf order.", success)
		}

		t.Logf("\tTest 3:\tWhen handling no leaves.")
		{
			if root := merkle.Root(nil); root != nil {
				t.Fatalf("\t%s\tTest 3:\tShould get no root back.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould get no root back.", success)
		}
	}
}
