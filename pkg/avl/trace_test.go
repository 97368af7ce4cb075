package avl

import (
	"slices"
	"testing"
)

func record(tree *Tree[int]) *[]Event[int] {
	var events []Event[int]
	tree.SetTracer(func(e Event[int]) { events = append(events, e) })
	return &events
}

func ops(events []Event[int]) []Op {
	out := make([]Op, len(events))
	for i, e := range events {
		out[i] = e.Op
	}
	return out
}

func TestTraceInsertWithRotation(t *testing.T) {
	tree := buildTree(10, 20)
	events := record(tree)

	tree.Insert(30)

	want := []Op{OpCompare, OpCompare, OpInsertLeaf, OpRotateLeft}
	if got := ops(*events); !slices.Equal(got, want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	rot := (*events)[3]
	if rot.Value != 10 || rot.Pivot != 20 {
		t.Errorf("rotation at %d lifting %d, want at 10 lifting 20", rot.Value, rot.Pivot)
	}
	if got := rot.String(); got != "left rotation at 10, 20 moves up" {
		t.Errorf("String() = %q", got)
	}
}

func TestTraceDoubleRotation(t *testing.T) {
	tree := buildTree(30, 10)
	events := record(tree)

	tree.Insert(20)

	want := []Op{OpCompare, OpCompare, OpInsertLeaf, OpRotateLeft, OpRotateRight}
	if got := ops(*events); !slices.Equal(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
}

func TestTraceDuplicateAndSearch(t *testing.T) {
	tree := buildTree(2, 1, 3)
	events := record(tree)

	tree.Insert(3)
	if got, want := ops(*events), []Op{OpCompare, OpCompare, OpDuplicate}; !slices.Equal(got, want) {
		t.Errorf("duplicate ops = %v, want %v", got, want)
	}

	*events = nil
	tree.Search(4)
	if got, want := ops(*events), []Op{OpCompare, OpCompare, OpMissing}; !slices.Equal(got, want) {
		t.Errorf("miss ops = %v, want %v", got, want)
	}

	*events = nil
	tree.Search(1)
	if got, want := ops(*events), []Op{OpCompare, OpCompare, OpFound}; !slices.Equal(got, want) {
		t.Errorf("hit ops = %v, want %v", got, want)
	}
}

func TestTraceDeleteSuccessor(t *testing.T) {
	tree := buildTree(20, 10, 30)
	events := record(tree)

	tree.Delete(20)

	var succ *Event[int]
	for i := range *events {
		if (*events)[i].Op == OpSuccessor {
			succ = &(*events)[i]
		}
	}
	if succ == nil {
		t.Fatalf("no successor event in %v", ops(*events))
	}
	if succ.Value != 20 || succ.Pivot != 30 {
		t.Errorf("successor event = %+v, want 20 replaced by 30", *succ)
	}
	if got := succ.String(); got != "replaced 20 with in-order successor 30" {
		t.Errorf("String() = %q", got)
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		e    Event[int]
		want string
	}{
		{Event[int]{Op: OpCompare, Key: 5, Value: 9}, "5 < 9, going left"},
		{Event[int]{Op: OpCompare, Key: 9, Value: 5}, "9 > 5, going right"},
		{Event[int]{Op: OpInsertLeaf, Key: 4}, "inserted 4 as a new leaf"},
		{Event[int]{Op: OpDuplicate, Key: 4}, "4 is already in the tree, skipping"},
		{Event[int]{Op: OpMissing, Key: 4}, "4 is not in the tree"},
		{Event[int]{Op: OpRemove, Value: 4}, "removed node 4"},
		{Event[int]{Op: OpRotateRight, Value: 30, Pivot: 20}, "right rotation at 30, 20 moves up"},
	}
	for _, tt := range tests {
		if got := tt.e.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if got := Op(99).String(); got != "op(99)" {
		t.Errorf("Op(99).String() = %q", got)
	}
}
