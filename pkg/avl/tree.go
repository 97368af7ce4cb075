package avl

import (
	"cmp"
	"iter"
	"slices"
)

// ref addresses a node slot in the arena. The zero ref is the absent marker;
// slot 0 is a sentinel whose height is always 0.
type ref int32

const none ref = 0

type node[K cmp.Ordered] struct {
	value  K
	height int
	left   ref
	right  ref
}

// Tree is a self-balancing binary search tree over keys of type K.
//
// The zero value is an empty tree ready to use.
type Tree[K cmp.Ordered] struct {
	nodes  []node[K] // nodes[0] is the sentinel
	free   []ref
	root   ref
	size   int
	tracer func(Event[K])
}

// New creates an empty tree.
func New[K cmp.Ordered]() *Tree[K] {
	return &Tree[K]{}
}

// SetTracer installs fn to observe the steps of subsequent operations.
// Passing nil removes the tracer.
func (t *Tree[K]) SetTracer(fn func(Event[K])) {
	t.tracer = fn
}

// Len returns the number of keys in the tree.
func (t *Tree[K]) Len() int { return t.size }

// Height returns the height of the tree; 0 for an empty tree.
func (t *Tree[K]) Height() int { return t.height(t.root) }

// Insert adds v to the tree and rebalances the path back to the root.
// It reports whether v was added; inserting a present value is a no-op.
func (t *Tree[K]) Insert(v K) bool {
	var added bool
	t.root, added = t.insert(t.root, v)
	if added {
		t.size++
	}
	return added
}

// Delete removes v from the tree and rebalances the path back to the root.
// It reports whether v was removed; deleting an absent value is a no-op.
func (t *Tree[K]) Delete(v K) bool {
	var removed bool
	t.root, removed = t.delete(t.root, v)
	if removed {
		t.size--
	}
	return removed
}

// Search reports whether v is present. The tree is not modified.
func (t *Tree[K]) Search(v K) bool {
	n := t.root
	for n != none {
		nv := t.nodes[n].value
		t.emit(Event[K]{Op: OpCompare, Key: v, Value: nv})
		switch {
		case v == nv:
			t.emit(Event[K]{Op: OpFound, Key: v, Value: nv})
			return true
		case v < nv:
			n = t.nodes[n].left
		default:
			n = t.nodes[n].right
		}
	}
	t.emit(Event[K]{Op: OpMissing, Key: v})
	return false
}

// All returns an iterator over the keys in ascending order.
// The sequence may be iterated any number of times.
func (t *Tree[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		t.walk(t.root, yield)
	}
}

// Traverse returns the keys in ascending order (in-order traversal).
func (t *Tree[K]) Traverse() []K {
	out := make([]K, 0, t.size)
	return slices.AppendSeq(out, t.All())
}

// Reset removes every key. The node arena is released.
func (t *Tree[K]) Reset() {
	t.nodes = nil
	t.free = nil
	t.root = none
	t.size = 0
}

func (t *Tree[K]) walk(n ref, yield func(K) bool) bool {
	if n == none {
		return true
	}
	return t.walk(t.nodes[n].left, yield) &&
		yield(t.nodes[n].value) &&
		t.walk(t.nodes[n].right, yield)
}

func (t *Tree[K]) emit(e Event[K]) {
	if t.tracer != nil {
		t.tracer(e)
	}
}

// =============================================================================
// Arena
// =============================================================================

func (t *Tree[K]) alloc(v K) ref {
	if len(t.nodes) == 0 {
		t.nodes = append(t.nodes, node[K]{})
	}
	n := node[K]{value: v, height: 1}
	if k := len(t.free); k > 0 {
		r := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[r] = n
		return r
	}
	t.nodes = append(t.nodes, n)
	return ref(len(t.nodes) - 1)
}

func (t *Tree[K]) release(r ref) {
	t.nodes[r] = node[K]{}
	t.free = append(t.free, r)
}

// =============================================================================
// Heights and rotations
// =============================================================================

func (t *Tree[K]) height(n ref) int {
	if n == none {
		return 0
	}
	return t.nodes[n].height
}

func (t *Tree[K]) balance(n ref) int {
	if n == none {
		return 0
	}
	return t.height(t.nodes[n].left) - t.height(t.nodes[n].right)
}

func (t *Tree[K]) updateHeight(n ref) {
	t.nodes[n].height = 1 + max(t.height(t.nodes[n].left), t.height(t.nodes[n].right))
}

// rotateRight lifts the left child of y into y's place and returns it.
func (t *Tree[K]) rotateRight(y ref) ref {
	x := t.nodes[y].left
	t.emit(Event[K]{Op: OpRotateRight, Value: t.nodes[y].value, Pivot: t.nodes[x].value})

	t.nodes[y].left = t.nodes[x].right
	t.nodes[x].right = y

	t.updateHeight(y)
	t.updateHeight(x)
	return x
}

// rotateLeft lifts the right child of x into x's place and returns it.
func (t *Tree[K]) rotateLeft(x ref) ref {
	y := t.nodes[x].right
	t.emit(Event[K]{Op: OpRotateLeft, Value: t.nodes[x].value, Pivot: t.nodes[y].value})

	t.nodes[x].right = t.nodes[y].left
	t.nodes[y].left = x

	t.updateHeight(x)
	t.updateHeight(y)
	return y
}

// =============================================================================
// Insert
// =============================================================================

func (t *Tree[K]) insert(n ref, v K) (ref, bool) {
	if n == none {
		t.emit(Event[K]{Op: OpInsertLeaf, Key: v, Value: v})
		return t.alloc(v), true
	}

	nv := t.nodes[n].value
	t.emit(Event[K]{Op: OpCompare, Key: v, Value: nv})

	var added bool
	switch {
	case v < nv:
		var child ref
		child, added = t.insert(t.nodes[n].left, v)
		t.nodes[n].left = child
	case v > nv:
		var child ref
		child, added = t.insert(t.nodes[n].right, v)
		t.nodes[n].right = child
	default:
		t.emit(Event[K]{Op: OpDuplicate, Key: v, Value: nv})
		return n, false
	}
	if !added {
		return n, false
	}

	t.updateHeight(n)
	return t.rebalanceInsert(n, v), true
}

func (t *Tree[K]) rebalanceInsert(n ref, v K) ref {
	bal := t.balance(n)
	switch {
	case bal > 1 && v < t.nodes[t.nodes[n].left].value:
		return t.rotateRight(n)
	case bal < -1 && v > t.nodes[t.nodes[n].right].value:
		return t.rotateLeft(n)
	case bal > 1 && v > t.nodes[t.nodes[n].left].value:
		t.nodes[n].left = t.rotateLeft(t.nodes[n].left)
		return t.rotateRight(n)
	case bal < -1 && v < t.nodes[t.nodes[n].right].value:
		t.nodes[n].right = t.rotateRight(t.nodes[n].right)
		return t.rotateLeft(n)
	}
	return n
}

// =============================================================================
// Delete
// =============================================================================

func (t *Tree[K]) delete(n ref, v K) (ref, bool) {
	if n == none {
		t.emit(Event[K]{Op: OpMissing, Key: v})
		return none, false
	}

	nv := t.nodes[n].value
	t.emit(Event[K]{Op: OpCompare, Key: v, Value: nv})

	var removed bool
	switch {
	case v < nv:
		var child ref
		child, removed = t.delete(t.nodes[n].left, v)
		t.nodes[n].left = child
	case v > nv:
		var child ref
		child, removed = t.delete(t.nodes[n].right, v)
		t.nodes[n].right = child
	default:
		removed = true
		left, right := t.nodes[n].left, t.nodes[n].right
		if left == none || right == none {
			t.emit(Event[K]{Op: OpRemove, Key: v, Value: nv})
			t.release(n)
			if left != none {
				n = left
			} else {
				n = right
			}
		} else {
			succ := t.min(right)
			sv := t.nodes[succ].value
			t.emit(Event[K]{Op: OpSuccessor, Key: v, Value: nv, Pivot: sv})
			t.nodes[n].value = sv
			t.nodes[n].right, _ = t.delete(right, sv)
		}
	}
	if !removed || n == none {
		return n, removed
	}

	t.updateHeight(n)
	return t.rebalanceDelete(n), true
}

func (t *Tree[K]) rebalanceDelete(n ref) ref {
	bal := t.balance(n)
	switch {
	case bal > 1 && t.balance(t.nodes[n].left) >= 0:
		return t.rotateRight(n)
	case bal > 1:
		t.nodes[n].left = t.rotateLeft(t.nodes[n].left)
		return t.rotateRight(n)
	case bal < -1 && t.balance(t.nodes[n].right) <= 0:
		return t.rotateLeft(n)
	case bal < -1:
		t.nodes[n].right = t.rotateRight(t.nodes[n].right)
		return t.rotateLeft(n)
	}
	return n
}

func (t *Tree[K]) min(n ref) ref {
	for t.nodes[n].left != none {
		n = t.nodes[n].left
	}
	return n
}
