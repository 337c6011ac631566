// Package trie implements the per-column compressed (radix) trie: a
// dictionary mapping strings to stable positive integer indices, with
// prefix sharing, single-child merging, and depth-first renumbering
// (spec.md §4.B), grounded on original_source/joedb/joedb.py's Trie.
package trie

import (
	joerr "joedb/pkg/errors"
)

// Node is one trie node. Children are kept in an order-preserving slice
// rather than a Go map: spec.md §4.B requires the encoder and decoder to
// serialize/reconstruct children in the same order a node's children were
// first created in, which a map cannot guarantee.
type Node struct {
	children []edge
	Index    int // 0 means "no index assigned"
}

type edge struct {
	label string
	node  *Node
}

// Trie is a rooted compressed trie. The zero value is not usable; use New.
type Trie struct {
	Root    *Node
	nextIdx int
}

// New creates an empty trie. Index 0 is reserved for "absent" and is never
// assigned to a node (spec.md §3).
func New() *Trie {
	return &Trie{Root: &Node{}, nextIdx: 1}
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func (n *Node) childIndex(label byte) int {
	for i, e := range n.children {
		if len(e.label) > 0 && e.label[0] == label {
			return i
		}
	}
	return -1
}

// Insert walks from the root consuming the longest matching edge at each
// step, splitting an edge on partial overlap, and assigns a fresh index
// at the terminal node if one isn't already indexed (spec.md §4.B).
func (t *Trie) Insert(word string) int {
	node := t.Root
	rest := word

	for {
		if rest == "" {
			if node.Index == 0 {
				node.Index = t.nextIdx
				t.nextIdx++
			}
			return node.Index
		}

		idx := node.childIndex(rest[0])
		if idx < 0 {
			leaf := &Node{Index: t.nextIdx}
			t.nextIdx++
			node.children = append(node.children, edge{label: rest, node: leaf})
			return leaf.Index
		}

		e := node.children[idx]
		cp := commonPrefixLen(rest, e.label)
		if cp == len(e.label) {
			// Full edge consumed; descend.
			node = e.node
			rest = rest[cp:]
			continue
		}
		// Partial overlap (cp > 0, since childIndex only matched
		// entries sharing rest's first byte): split the edge.
		return t.splitAndInsert(node, idx, cp, rest)
	}
}

// splitAndInsert splits the edge at node.children[idx] at length cp,
// creating an internal node for the shared prefix, then continues
// inserting the remaining suffix of rest under it. The mid node created by
// the split is always given a fresh index, whether or not it ends up being
// the word's own terminus (spec.md §4.B, §9 third bullet): a pure branch
// point's index simply goes unreferenced by any column, and is either
// coalesced away later by MergeSingleChildren or, if it keeps 2+ children,
// stays allocated but dead. This keeps the wire format self-describing —
// the decoder can assign an index to every node it reconstructs, in the
// same depth-first order, with no separate "has index" flag on the wire.
func (t *Trie) splitAndInsert(node *Node, idx int, cp int, rest string) int {
	e := node.children[idx]
	commonLabel := e.label[:cp]
	oldSuffix := e.label[cp:]
	newSuffix := rest[cp:]

	mid := &Node{Index: t.nextIdx}
	t.nextIdx++
	mid.children = append(mid.children, edge{label: oldSuffix, node: e.node})
	node.children[idx] = edge{label: commonLabel, node: mid}

	if newSuffix == "" {
		return mid.Index
	}

	leaf := &Node{Index: t.nextIdx}
	t.nextIdx++
	mid.children = append(mid.children, edge{label: newSuffix, node: leaf})
	return leaf.Index
}

// MergeSingleChildren replaces any node with exactly one child whose own
// index is not in protected by concatenating its edge label into the
// parent edge (spec.md §4.B).
func (t *Trie) MergeSingleChildren(protected map[int]bool) {
	var dfs func(n *Node)
	dfs = func(n *Node) {
		for i, e := range n.children {
			child := e.node
			label := e.label
			for len(child.children) == 1 && !protected[child.Index] {
				gc := child.children[0]
				label = label + gc.label
				child = gc.node
			}
			n.children[i] = edge{label: label, node: child}
			dfs(child)
		}
	}
	dfs(t.Root)
}

// RenameIndices assigns consecutive integers starting at 1 to every
// indexed node in depth-first visit order, returning old->new (spec.md
// §4.B). After this call the trie's own nextIdx also reflects the dense
// numbering, matching spec.md §8 property 3.
func (t *Trie) RenameIndices() map[int]int {
	renamed := make(map[int]int)
	next := 1
	var dfs func(n *Node)
	dfs = func(n *Node) {
		if n.Index != 0 {
			renamed[n.Index] = next
			n.Index = next
			next++
		}
		for _, e := range n.children {
			dfs(e.node)
		}
	}
	dfs(t.Root)
	t.nextIdx = next
	return renamed
}

// BuildValueMap produces index -> full string by walking the trie
// depth-first and accumulating edge labels (spec.md §4.B).
func (t *Trie) BuildValueMap() map[int]string {
	out := make(map[int]string)
	var dfs func(n *Node, prefix string)
	dfs = func(n *Node, prefix string) {
		if n.Index != 0 {
			out[n.Index] = prefix
		}
		for _, e := range n.children {
			dfs(e.node, prefix+e.label)
		}
	}
	dfs(t.Root, "")
	return out
}

// Walk visits every (edge label, child) pair in the order children were
// created, depth-first, calling enter before descending and leave after.
// The encoder serializes tries with WriteTo, not Walk.
func (t *Trie) Walk(enter func(label string, childCount int), leave func()) {
	var dfs func(n *Node)
	dfs = func(n *Node) {
		for _, e := range n.children {
			enter(e.label, len(e.node.children))
			dfs(e.node)
			leave()
		}
	}
	dfs(t.Root)
}

// ErrInvariant builds the fatal TrieInvariantViolation error (spec.md §7).
func ErrInvariant(operation, message string) error {
	return joerr.NewCritical(joerr.CodeTrieInvariant, joerr.ComponentTrie, operation, message)
}
