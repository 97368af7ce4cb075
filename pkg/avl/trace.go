package avl

import (
	"cmp"
	"fmt"
)

// Op identifies the kind of step reported to a tracer.
type Op int

const (
	// OpCompare is a comparison of the operation's key against a node.
	OpCompare Op = iota
	// OpInsertLeaf is the creation of a new leaf for the key.
	OpInsertLeaf
	// OpDuplicate means the key is already present; the insert stops.
	OpDuplicate
	// OpFound means a search reached the key.
	OpFound
	// OpMissing means a search or delete ran off the tree.
	OpMissing
	// OpRemove is the unlinking of a node with at most one child.
	OpRemove
	// OpSuccessor is the replacement of a two-child node by its in-order successor.
	OpSuccessor
	// OpRotateLeft is a left rotation around Value, lifting Pivot.
	OpRotateLeft
	// OpRotateRight is a right rotation around Value, lifting Pivot.
	OpRotateRight
)

var opNames = [...]string{
	OpCompare:     "compare",
	OpInsertLeaf:  "insert",
	OpDuplicate:   "duplicate",
	OpFound:       "found",
	OpMissing:     "missing",
	OpRemove:      "remove",
	OpSuccessor:   "successor",
	OpRotateLeft:  "rotate-left",
	OpRotateRight: "rotate-right",
}

// String returns the lowercase name of the op.
func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// IsRotation reports whether the op restructures the tree.
func (o Op) IsRotation() bool { return o == OpRotateLeft || o == OpRotateRight }

// Event is a single step of a tree operation.
//
// Key is the argument of the running operation, Value the node being looked
// at. Pivot is set for rotations (the child lifted into place) and for
// successor replacement (the successor's value).
type Event[K cmp.Ordered] struct {
	Op    Op
	Key   K
	Value K
	Pivot K
}

// String returns a short human-readable description of the step.
func (e Event[K]) String() string {
	switch e.Op {
	case OpCompare:
		switch {
		case e.Key < e.Value:
			return fmt.Sprintf("%v < %v, going left", e.Key, e.Value)
		case e.Key > e.Value:
			return fmt.Sprintf("%v > %v, going right", e.Key, e.Value)
		default:
			return fmt.Sprintf("%v = %v", e.Key, e.Value)
		}
	case OpInsertLeaf:
		return fmt.Sprintf("inserted %v as a new leaf", e.Key)
	case OpDuplicate:
		return fmt.Sprintf("%v is already in the tree, skipping", e.Key)
	case OpFound:
		return fmt.Sprintf("found %v", e.Key)
	case OpMissing:
		return fmt.Sprintf("%v is not in the tree", e.Key)
	case OpRemove:
		return fmt.Sprintf("removed node %v", e.Value)
	case OpSuccessor:
		return fmt.Sprintf("replaced %v with in-order successor %v", e.Value, e.Pivot)
	case OpRotateLeft:
		return fmt.Sprintf("left rotation at %v, %v moves up", e.Value, e.Pivot)
	case OpRotateRight:
		return fmt.Sprintf("right rotation at %v, %v moves up", e.Value, e.Pivot)
	}
	return e.Op.String()
}
