package scenario

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/matzehuels/algoviz/pkg/avl"
	"github.com/matzehuels/algoviz/pkg/controller"
	"github.com/matzehuels/algoviz/pkg/layout"
	"github.com/matzehuels/algoviz/pkg/observability"
	"github.com/matzehuels/algoviz/pkg/render"
)

// Player plays a scenario against a tree it owns. All methods are safe for
// concurrent use: the routine mutates the tree while a UI or HTTP handler
// reads it.
type Player struct {
	sc *Scenario

	mu     sync.RWMutex
	tree   *avl.Tree[int]
	events []avl.Event[int]
	last   *int // value of the most recent operation
}

// NewPlayer creates a player with an empty tree.
func NewPlayer(sc *Scenario) *Player {
	p := &Player{sc: sc, tree: avl.New[int]()}
	p.tree.SetTracer(func(e avl.Event[int]) {
		p.events = append(p.events, e)
	})
	return p
}

// Scenario returns the scenario being played.
func (p *Player) Scenario() *Scenario { return p.sc }

// Routine plays every operation of the scenario. It is meant to be passed as
// [controller.Config.Run].
//
// The active line is the 1-based index of the op being played.
func (p *Player) Routine(ctx context.Context, c *controller.Controller) error {
	for i, op := range p.sc.Ops {
		if err := c.SetActiveLine(ctx, i+1); err != nil {
			return err
		}
		for _, v := range op.Values {
			events, changed, err := p.apply(op.Kind, v)
			if err != nil {
				return err
			}
			observability.Tree().OnOperation(ctx, string(op.Kind), changed)

			if err := c.Stepf(ctx, "%s %d", op.Kind, v); err != nil {
				return err
			}
			for _, e := range events {
				if e.Op.IsRotation() {
					observability.Tree().OnRotation(ctx, e.Op.String())
				}
				if err := c.Stepf(ctx, "%s", e); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// apply runs one operation under the write lock and returns its trace.
func (p *Player) apply(kind Kind, v int) ([]avl.Event[int], bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = nil
	var changed bool
	switch kind {
	case KindInsert:
		changed = p.tree.Insert(v)
	case KindDelete:
		changed = p.tree.Delete(v)
	case KindSearch:
		p.tree.Search(v)
	default:
		return nil, false, fmt.Errorf("unknown operation %q", kind)
	}
	p.last = &v

	events := p.events
	p.events = nil
	return events, changed, nil
}

// Reset empties the tree. It is meant to be passed as
// [controller.Config.Reset].
func (p *Player) Reset(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tree.Reset()
	p.events = nil
	p.last = nil
	return nil
}

// Values returns the tree's values in ascending order.
func (p *Player) Values() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tree.Traverse()
}

// Len returns the number of values in the tree.
func (p *Player) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tree.Len()
}

// Layout returns the current drawing of the tree.
func (p *Player) Layout(opts layout.Options) layout.Layout[int] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return layout.Build(p.tree, opts)
}

// DOT renders the tree as Graphviz DOT, highlighting the value of the most
// recent operation if it is still in the tree.
func (p *Player) DOT(opts render.Options) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if opts.Highlight == nil && p.last != nil {
		v := strconv.Itoa(*p.last)
		opts.Highlight = &v
	}
	return render.ToDOT(p.tree, opts)
}

// Check verifies the tree invariants.
func (p *Player) Check() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tree.Check()
}
