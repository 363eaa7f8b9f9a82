package peer_test

import (
	"testing"

	"github.com/tinychain/tinychain/foundation/blockchain/peer"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func TestPeerSet(t *testing.T) {
	t.Log("Given the need to validate the known peer set.")
	{
		ps := peer.NewPeerSet()

		if !ps.Add(peer.New("host1")) {
			t.Fatalf("\t%s\tTest 0:\tShould add a new peer.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould add a new peer.", success)

		if ps.Add(peer.New("host1")) {
			t.Fatalf("\t%s\tTest 0:\tShould not add a duplicate peer.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould not add a duplicate peer.", success)

		ps.Add(peer.New("host2"))

		if got := ps.Copy("host1"); len(got) != 1 || !got[0].Match("host2") {
			t.Fatalf("\t%s\tTest 0:\tShould exclude the local host from copies.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould exclude the local host from copies.", success)

		ps.Remove(peer.New("host2"))
		if ps.Count() != 1 {
			t.Fatalf("\t%s\tTest 0:\tShould remove a peer.", failed)
		}
		t.Logf("\t%s\tTest 0:\tShould remove a peer.", success)
	}
}
