// Package avl provides a height-balanced binary search tree used as the
// subject of step-by-step visualizations.
//
// # Overview
//
// [Tree] stores a set of totally ordered keys. Every public operation leaves
// the tree balanced: for each node the heights of its two subtrees differ by
// at most one, and a node's height is one more than the taller child (an
// absent child has height 0, a leaf has height 1).
//
// Nodes live in an arena addressed by index rather than behind pointers.
// Rotations are index relinks, and [Tree.Reset] simply truncates the arena.
//
// # Basic Usage
//
//	var t avl.Tree[int]
//	for _, v := range []int{10, 20, 30} {
//	    t.Insert(v)
//	}
//	fmt.Println(t.Root().Value()) // 20
//	fmt.Println(t.Traverse())     // [10 20 30]
//
// Inserting a value that is already present and deleting a value that is
// absent are no-ops, not failures. Search never mutates the tree.
//
// # Rebalancing
//
// After an insert, each ancestor on the path back to the root has its height
// recomputed and is rotated if its balance factor leaves {-1, 0, 1}. The
// inserted value selects the case: left-left, right-right, left-right or
// right-left. After a delete no value drives the choice, so the balance of the
// heavier child selects between a single and a double rotation.
//
// # Tracing
//
// [Tree.SetTracer] installs a callback that observes every comparison,
// rotation and structural change while an operation runs. Visualizers record
// these events and replay them as discrete, pausable steps once the operation
// has completed and the tree is balanced again.
//
// # Invariants
//
// [Tree.Check] verifies ordering, height bookkeeping and balance. A failure is
// a programming defect, so it is meant for tests rather than runtime handling.
//
// A Tree is not safe for concurrent use without external synchronization.
package avl
