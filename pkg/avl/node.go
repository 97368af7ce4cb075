package avl

import (
	"cmp"
	"errors"
	"fmt"
)

// ErrInvariant is returned by [Tree.Check] when the tree is not a valid
// balanced search tree.
var ErrInvariant = errors.New("avl invariant violated")

// Node is a read-only view of a node in a [Tree]. The zero Node and the
// children of a leaf do not exist; check [Node.Exists] before reading values.
//
// A Node is only valid until the next mutation of its tree.
type Node[K cmp.Ordered] struct {
	t *Tree[K]
	r ref
}

// Root returns a view of the root node.
func (t *Tree[K]) Root() Node[K] { return Node[K]{t: t, r: t.root} }

// Exists reports whether the view refers to a node.
func (n Node[K]) Exists() bool { return n.t != nil && n.r != none }

// Value returns the node's key. It returns the zero K for a missing node.
func (n Node[K]) Value() K {
	var zero K
	if !n.Exists() {
		return zero
	}
	return n.t.nodes[n.r].value
}

// Height returns the node's height; 0 for a missing node.
func (n Node[K]) Height() int {
	if !n.Exists() {
		return 0
	}
	return n.t.nodes[n.r].height
}

// Balance returns height(left) - height(right).
func (n Node[K]) Balance() int {
	if !n.Exists() {
		return 0
	}
	return n.t.balance(n.r)
}

// Left returns the left child view.
func (n Node[K]) Left() Node[K] {
	if !n.Exists() {
		return Node[K]{}
	}
	return Node[K]{t: n.t, r: n.t.nodes[n.r].left}
}

// Right returns the right child view.
func (n Node[K]) Right() Node[K] {
	if !n.Exists() {
		return Node[K]{}
	}
	return Node[K]{t: n.t, r: n.t.nodes[n.r].right}
}

// Check verifies that every node is ordered relative to its subtrees, that
// every height equals 1 + max(child heights), that every balance factor is in
// {-1, 0, 1} and that the node count matches [Tree.Len].
func (t *Tree[K]) Check() error {
	count, err := t.check(t.root, nil, nil)
	if err != nil {
		return err
	}
	if count != t.size {
		return fmt.Errorf("%w: counted %d nodes, size is %d", ErrInvariant, count, t.size)
	}
	return nil
}

func (t *Tree[K]) check(n ref, lo, hi *K) (int, error) {
	if n == none {
		return 0, nil
	}
	nd := t.nodes[n]
	if lo != nil && nd.value <= *lo {
		return 0, fmt.Errorf("%w: %v is not greater than ancestor %v", ErrInvariant, nd.value, *lo)
	}
	if hi != nil && nd.value >= *hi {
		return 0, fmt.Errorf("%w: %v is not less than ancestor %v", ErrInvariant, nd.value, *hi)
	}

	lc, err := t.check(nd.left, lo, &nd.value)
	if err != nil {
		return 0, err
	}
	rc, err := t.check(nd.right, &nd.value, hi)
	if err != nil {
		return 0, err
	}

	if want := 1 + max(t.height(nd.left), t.height(nd.right)); nd.height != want {
		return 0, fmt.Errorf("%w: node %v has height %d, want %d", ErrInvariant, nd.value, nd.height, want)
	}
	if b := t.balance(n); b < -1 || b > 1 {
		return 0, fmt.Errorf("%w: node %v has balance %d", ErrInvariant, nd.value, b)
	}
	return lc + rc + 1, nil
}
