package layout

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/matzehuels/algoviz/pkg/avl"
)

func tree(values ...int) *avl.Tree[int] {
	t := avl.New[int]()
	for _, v := range values {
		t.Insert(v)
	}
	return t
}

func TestProjectCoordinates(t *testing.T) {
	// Shape after inserts: 20 (10 (5, 15), 30 (-, 40))
	got := Project(tree(20, 10, 30, 5, 15, 40), DefaultOptions())

	want := []VisualNode[int]{
		{Value: 20, X: 500, Y: 0},
		{Value: 10, X: 400, Y: 100},
		{Value: 5, X: 350, Y: 200},
		{Value: 15, X: 450, Y: 200},
		{Value: 30, X: 600, Y: 100},
		{Value: 40, X: 650, Y: 200},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Project() =\n%v\nwant\n%v", got, want)
	}
}

func TestProjectEmpty(t *testing.T) {
	got := Project(avl.New[int](), DefaultOptions())
	if len(got) != 0 {
		t.Errorf("Project(empty) = %v, want no nodes", got)
	}
}

func TestProjectIdempotent(t *testing.T) {
	tr := tree(8, 4, 12, 2, 6, 10, 14, 1)
	first := Project(tr, DefaultOptions())
	second := Project(tr, DefaultOptions())
	if !reflect.DeepEqual(first, second) {
		t.Error("Project() differs between calls on an unmodified tree")
	}
	if len(first) != tr.Len() {
		t.Errorf("len(Project()) = %d, want %d", len(first), tr.Len())
	}
}

func TestProjectFollowsMutation(t *testing.T) {
	tr := tree(10, 20)
	before := Project(tr, DefaultOptions())
	tr.Insert(30)
	after := Project(tr, DefaultOptions())

	if before[0].Value != 10 || after[0].Value != 20 {
		t.Errorf("root before/after = %d/%d, want 10/20", before[0].Value, after[0].Value)
	}
	if len(after) != 3 {
		t.Errorf("len(after) = %d, want 3", len(after))
	}
}

func TestProjectCustomOptions(t *testing.T) {
	got := Project(tree(2, 1, 3), Options{RootX: 0.5, LevelHeight: 10, HorizontalUnit: 40})
	want := []VisualNode[int]{
		{Value: 2, X: 0.5, Y: 0},
		{Value: 1, X: -39.5, Y: 10},
		{Value: 3, X: 40.5, Y: 10},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Project() = %v, want %v", got, want)
	}
}

func TestProjectZeroOptionsUseDefaults(t *testing.T) {
	tr := tree(2, 1, 3)
	if !reflect.DeepEqual(Project(tr, Options{}), Project(tr, DefaultOptions())) {
		t.Error("zero Options should behave like DefaultOptions")
	}
}

func TestBuild(t *testing.T) {
	l := Build(tree(20, 10, 30), DefaultOptions())

	wantEdges := []Edge[int]{{From: 20, To: 10}, {From: 20, To: 30}}
	if !reflect.DeepEqual(l.Edges, wantEdges) {
		t.Errorf("Edges = %v, want %v", l.Edges, wantEdges)
	}
	if l.MinX != 400 || l.Width != 200 || l.Height != 100 {
		t.Errorf("bounds = (%v, %v, %v), want (400, 200, 100)", l.MinX, l.Width, l.Height)
	}
}

func TestBuildEmpty(t *testing.T) {
	l := Build(avl.New[int](), DefaultOptions())
	if len(l.Nodes) != 0 || len(l.Edges) != 0 || l.Width != 0 {
		t.Errorf("Build(empty) = %+v", l)
	}
	if l.Edges == nil {
		t.Error("Edges should serialize as an empty list, not null")
	}
}

func TestLayoutFileRoundTrip(t *testing.T) {
	l := Build(tree(3, 1, 2, 5, 4), DefaultOptions())
	path := filepath.Join(t.TempDir(), "tree.layout.json")

	if err := WriteLayoutFile(l, path); err != nil {
		t.Fatalf("WriteLayoutFile() error: %v", err)
	}
	got, err := ReadLayoutFile[int](path)
	if err != nil {
		t.Fatalf("ReadLayoutFile() error: %v", err)
	}
	if !reflect.DeepEqual(got, l) {
		t.Errorf("round trip = %+v, want %+v", got, l)
	}
}

func TestUnmarshalLayoutRejectsDanglingEdge(t *testing.T) {
	data := []byte(`{"nodes":[{"value":1,"x":0,"y":0}],"edges":[{"from":1,"to":2}]}`)
	if _, err := UnmarshalLayout[int](data); err == nil {
		t.Error("UnmarshalLayout() should reject an edge to an unknown node")
	}
}

func TestReadLayoutFileMissing(t *testing.T) {
	if _, err := ReadLayoutFile[int](filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ReadLayoutFile() should fail for a missing file")
	}
}
