// Package layout projects the shape of an [avl.Tree] onto 2-D display
// coordinates.
//
// # Projection
//
// [Project] walks the tree depth-first (node, then left, then right) carrying
// the node's depth and horizontal position. The root sits at
// [Options.RootX]; every node's y is depth × [Options.LevelHeight]; a child is
// placed at its parent's x shifted by ±[Options.HorizontalUnit]/(depth+1), so
// the horizontal spread shrinks with depth.
//
// The projection is a pure function of the current tree shape. It is
// recomputed wholesale on every call, never patched incrementally, so calling
// it twice on an unchanged tree yields identical results.
//
// # Serialization
//
// [Build] adds parent-child edges and the bounding box to the projection,
// producing a [Layout] that can be written as JSON with [WriteLayoutFile] and
// consumed by a renderer:
//
//	{
//	  "nodes": [{"value": 20, "x": 500, "y": 0}, ...],
//	  "edges": [{"from": 20, "to": 10}, ...],
//	  "min_x": 400,
//	  "width": 200,
//	  "height": 100
//	}
package layout
