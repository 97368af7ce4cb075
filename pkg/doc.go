// Package pkg provides the core libraries for algoviz, a step-by-step
// algorithm visualizer.
//
// # Overview
//
// An algorithm routine runs under a [controller] that can be started,
// paused, resumed and restarted from outside. Every step the routine reports
// is appended to a shared log held in [state] cells, which a terminal
// player, an HTTP client or another process can read while the routine runs.
//
// # Architecture
//
//	scenario file (TOML)
//	         ↓
//	    [scenario] Player (applies operations to an [avl] tree)
//	         ↓
//	    [controller] (lifecycle, pause points, step delay)
//	         ↓
//	    [state] cells (memory or redis)  →  [api] HTTP / SSE
//	         ↓
//	    [history] store (file or mongo)
//
// The current tree is projected to display coordinates by [layout] and drawn
// as DOT or SVG by [render].
//
// # Quick Start
//
//	p := scenario.NewPlayer(scenario.Default())
//	c, _ := controller.New(controller.Config{
//	    DisplayName: "AVL Tree",
//	    Run:         p.Routine,
//	    Reset:       p.Reset,
//	    Cells:       state.NewMemory(),
//	})
//	res, _ := c.Run(ctx)
//	fmt.Println(strings.Join(res.Log, "\n"))
//
// # Main Packages
//
//   - [avl]: AVL tree with a step tracer
//   - [controller]: run lifecycle and commands
//   - [state]: observable cells shared between controller and UI
//   - [scenario]: scenario files and the AVL player
//   - [layout]: display coordinates of a tree
//   - [render]: Graphviz DOT and SVG output
//   - [history]: recorded runs
//   - [api]: HTTP server and client
//   - [observability]: hooks for metrics
//   - [errors]: coded errors shared by all packages
//   - [buildinfo]: version information set at build time
package pkg
