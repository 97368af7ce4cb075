package render

import (
	"context"
	"strings"
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

func TestToDOTEmpty(t *testing.T) {
	dot := ToDOT(avl.New[int](), Options{})
	if !strings.HasPrefix(dot, "digraph AVL {") || !strings.HasSuffix(dot, "}\n") {
		t.Errorf("unexpected DOT:\n%s", dot)
	}
	if strings.Contains(dot, "->") {
		t.Error("empty tree should have no edges")
	}
}

func TestToDOTEdges(t *testing.T) {
	dot := ToDOT(tree(20, 10, 30), Options{})
	for _, want := range []string{`"n20" -> "n10";`, `"n20" -> "n30";`, `"n10" [label="10"];`} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "_nil") {
		t.Error("full tree should not need placeholders")
	}
}

func TestToDOTPlaceholderKeepsSide(t *testing.T) {
	// 20 has only a right child: a placeholder must precede it.
	dot := ToDOT(tree(20, 10, 30, 40), Options{})
	ph := strings.Index(dot, `"n30" -> "_nil1" [style=invis];`)
	child := strings.Index(dot, `"n30" -> "n40";`)
	if ph < 0 || child < 0 || ph > child {
		t.Errorf("placeholder should be emitted before the right child:\n%s", dot)
	}
}

func TestToDOTOptions(t *testing.T) {
	hl := "10"
	dot := ToDOT(tree(20, 10, 30), Options{ShowHeights: true, Highlight: &hl})
	if !strings.Contains(dot, `label="20\nh=2 b=0"`) {
		t.Errorf("heights missing:\n%s", dot)
	}
	if !strings.Contains(dot, `"n10" [label="10\nh=1 b=0", fillcolor="#9be7d8", penwidth=2];`) {
		t.Errorf("highlight missing:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="62pt" height="44pt" viewBox="0.00 0.00 62.00 44.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 62.00 44.00" width="62" height="44"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}

	plain := []byte("<svg><g/></svg>")
	if got := normalizeViewBox(plain); string(got) != string(plain) {
		t.Errorf("svg without viewBox should be unchanged, got %s", got)
	}
}

func TestRenderSVG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz wasm start-up is slow")
	}
	svg, err := RenderSVG(context.Background(), ToDOT(tree(2, 1, 3), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Errorf("output is not SVG: %.80s", svg)
	}
}
