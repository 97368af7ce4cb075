package render

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/algoviz/pkg/avl"
)

// Options configures DOT output.
type Options struct {
	// ShowHeights adds the node height and balance factor to each label.
	ShowHeights bool

	// Highlight marks the node with this key, if present.
	Highlight *string
}

// ToDOT converts t to Graphviz DOT format.
func ToDOT[K cmp.Ordered](t *avl.Tree[K], opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph AVL {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=18];\n")
	buf.WriteString("  edge [arrowhead=none];\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	placeholders := 0
	var walk func(n avl.Node[K])
	walk = func(n avl.Node[K]) {
		id := nodeID(n.Value())
		fmt.Fprintf(&buf, "  %q [%s];\n", id, fmtAttrs(n, opts))

		left, right := n.Left(), n.Right()
		if !left.Exists() && !right.Exists() {
			return
		}
		for _, c := range [2]avl.Node[K]{left, right} {
			if c.Exists() {
				fmt.Fprintf(&buf, "  %q -> %q;\n", id, nodeID(c.Value()))
				walk(c)
				continue
			}
			placeholders++
			ph := fmt.Sprintf("_nil%d", placeholders)
			fmt.Fprintf(&buf, "  %q [style=invis, label=\"\"];\n", ph)
			fmt.Fprintf(&buf, "  %q -> %q [style=invis];\n", id, ph)
		}
	}
	if root := t.Root(); root.Exists() {
		walk(root)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID[K cmp.Ordered](v K) string {
	return fmt.Sprintf("n%v", v)
}

func fmtAttrs[K cmp.Ordered](n avl.Node[K], opts Options) string {
	label := fmt.Sprint(n.Value())
	if opts.ShowHeights {
		label = fmt.Sprintf("%v\nh=%d b=%d", n.Value(), n.Height(), n.Balance())
	}
	attrs := fmt.Sprintf("label=%q", label)
	if opts.Highlight != nil && *opts.Highlight == fmt.Sprint(n.Value()) {
		attrs += ", fillcolor=\"#9be7d8\", penwidth=2"
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root svg tag so the drawing scales with its
// container: Graphviz emits point-based width/height that browsers render tiny.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
