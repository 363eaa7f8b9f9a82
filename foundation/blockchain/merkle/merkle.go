// Package merkle builds the merkle commitment over a block's transaction
// ids. The root value is what a block header carries as its merkle hash.
package merkle

import (
	"github.com/tinychain/tinychain/foundation/blockchain/serialize"
	"github.com/tinychain/tinychain/foundation/blockchain/signature"
)

// Node is one node of the merkle tree. Leaves have no children.
type Node struct {
	Val      string  `json:"val"`
	Children []*Node `json:"children"`
}

func init() {
	serialize.Register("MerkleNode", Node{})
}

// Root builds a merkle tree from the ordered leaf values and returns the
// root node. An odd number of leaves duplicates the last leaf, and an odd
// level duplicates its last node, so pairing is always possible. The leaf
// order is the block's transaction order.
func Root(leaves []string) *Node {
	if len(leaves) == 0 {
		return nil
	}

	if len(leaves)%2 == 1 {
		leaves = append(leaves[:len(leaves):len(leaves)], leaves[len(leaves)-1])
	}

	nodes := make([]*Node, len(leaves))
	for i, leaf := range leaves {
		nodes[i] = &Node{Val: signature.Hash([]byte(leaf))}
	}

	return findRoot(nodes)
}

func findRoot(nodes []*Node) *Node {
	if len(nodes) == 1 {
		return nodes[0]
	}

	if len(nodes)%2 == 1 {
		nodes = append(nodes, nodes[len(nodes)-1])
	}

	level := make([]*Node, 0, len(nodes)/2)
	for i := 0; i < len(nodes); i += 2 {
		left, right := nodes[i], nodes[i+1]
		level = append(level, &Node{
			Val:      signature.Hash([]byte(left.Val + right.Val)),
			Children: []*Node{left, right},
		})
	}

	return findRoot(level)
}
