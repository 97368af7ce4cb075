// Package render turns an [avl.Tree] into Graphviz DOT and SVG output.
//
// [ToDOT] writes one box per key and an edge per parent-child link. Missing
// children are emitted as invisible placeholder nodes so that Graphviz keeps
// a lone child on its correct side instead of centering it under the parent.
//
// [RenderSVG] runs Graphviz in-process through [github.com/goccy/go-graphviz],
// so no system installation of Graphviz is required. [RenderSVGCached] keys
// rendered SVGs by the SHA-256 of their DOT source in a [cache.Cache].
//
//	dot := render.ToDOT(tree, render.Options{ShowHeights: true})
//	svg, err := render.RenderSVG(ctx, dot)
package render
