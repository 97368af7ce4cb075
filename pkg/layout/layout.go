package layout

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/matzehuels/algoviz/pkg/avl"
)

// Default projection parameters, in display units (pixels for a canvas).
const (
	DefaultRootX          = 500
	DefaultLevelHeight    = 100
	DefaultHorizontalUnit = 100
)

// Options configures the projection.
type Options struct {
	RootX          float64 `json:"root_x" mapstructure:"root_x"`
	LevelHeight    float64 `json:"level_height" mapstructure:"level_height"`
	HorizontalUnit float64 `json:"horizontal_unit" mapstructure:"horizontal_unit"`
}

// DefaultOptions returns the standard projection parameters.
func DefaultOptions() Options {
	return Options{
		RootX:          DefaultRootX,
		LevelHeight:    DefaultLevelHeight,
		HorizontalUnit: DefaultHorizontalUnit,
	}
}

// withDefaults fills zero fields with the defaults.
func (o Options) withDefaults() Options {
	if o.RootX == 0 {
		o.RootX = DefaultRootX
	}
	if o.LevelHeight == 0 {
		o.LevelHeight = DefaultLevelHeight
	}
	if o.HorizontalUnit == 0 {
		o.HorizontalUnit = DefaultHorizontalUnit
	}
	return o
}

// VisualNode is the display position of one tree key.
type VisualNode[K cmp.Ordered] struct {
	Value K       `json:"value"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Edge connects a parent key to a child key.
type Edge[K cmp.Ordered] struct {
	From K `json:"from"`
	To   K `json:"to"`
}

// Layout is the serializable projection of a tree.
type Layout[K cmp.Ordered] struct {
	Nodes  []VisualNode[K] `json:"nodes"`
	Edges  []Edge[K]       `json:"edges"`
	MinX   float64         `json:"min_x"`
	Width  float64         `json:"width"`
	Height float64         `json:"height"`
}

// Project returns one VisualNode per key, in pre-order.
// Zero fields of opts fall back to the defaults.
func Project[K cmp.Ordered](t *avl.Tree[K], opts Options) []VisualNode[K] {
	opts = opts.withDefaults()
	out := make([]VisualNode[K], 0, t.Len())

	var walk func(n avl.Node[K], depth int, x float64)
	walk = func(n avl.Node[K], depth int, x float64) {
		if !n.Exists() {
			return
		}
		out = append(out, VisualNode[K]{Value: n.Value(), X: x, Y: float64(depth) * opts.LevelHeight})
		offset := opts.HorizontalUnit / float64(depth+1)
		walk(n.Left(), depth+1, x-offset)
		walk(n.Right(), depth+1, x+offset)
	}
	walk(t.Root(), 0, opts.RootX)
	return out
}

// Build projects t and adds edges and the bounding box.
func Build[K cmp.Ordered](t *avl.Tree[K], opts Options) Layout[K] {
	l := Layout[K]{
		Nodes: Project(t, opts),
		Edges: appendEdges(t.Root(), []Edge[K]{}),
	}
	if len(l.Nodes) == 0 {
		return l
	}

	minX, maxX, maxY := math.Inf(1), math.Inf(-1), 0.0
	for _, n := range l.Nodes {
		minX = min(minX, n.X)
		maxX = max(maxX, n.X)
		maxY = max(maxY, n.Y)
	}
	l.MinX = minX
	l.Width = maxX - minX
	l.Height = maxY
	return l
}

func appendEdges[K cmp.Ordered](n avl.Node[K], out []Edge[K]) []Edge[K] {
	if !n.Exists() {
		return out
	}
	for _, c := range [2]avl.Node[K]{n.Left(), n.Right()} {
		if c.Exists() {
			out = append(out, Edge[K]{From: n.Value(), To: c.Value()})
			out = appendEdges(c, out)
		}
	}
	return out
}

// =============================================================================
// Serialization
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout[K cmp.Ordered](l Layout[K]) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout.
// Every edge must reference keys present in the node list.
func UnmarshalLayout[K cmp.Ordered](data []byte) (Layout[K], error) {
	var l Layout[K]
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout[K]{}, fmt.Errorf("unmarshal layout: %w", err)
	}

	known := make(map[K]bool, len(l.Nodes))
	for _, n := range l.Nodes {
		known[n.Value] = true
	}
	for _, e := range l.Edges {
		if !known[e.From] || !known[e.To] {
			return Layout[K]{}, fmt.Errorf("edge %v -> %v references an unknown node", e.From, e.To)
		}
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile[K cmp.Ordered](l Layout[K], path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile[K cmp.Ordered](path string) (Layout[K], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout[K]{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout[K](data)
}
