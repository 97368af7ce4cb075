// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about controller runs, tree restructuring and API requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The core packages stay free of metrics libraries; internal/metrics provides
// a Prometheus-backed implementation that the CLI registers.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetControllerHooks(metrics.NewControllerHooks(reg))
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Controller().OnRunStart(ctx, name, runID)
//	// ... run the routine ...
//	observability.Controller().OnRunComplete(ctx, name, steps, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Controller Hooks
// =============================================================================

// ControllerHooks receives events from the execution controller.
type ControllerHooks interface {
	// Run lifecycle events. err is the routine failure, if any; it has
	// already been converted into a log line.
	OnRunStart(ctx context.Context, name, runID string)
	OnRunComplete(ctx context.Context, name string, steps int, duration time.Duration, err error)

	// OnStep records a logged algorithm step.
	OnStep(ctx context.Context, name string)

	// Suspension events. waited is the time spent suspended.
	OnPause(ctx context.Context, name string)
	OnResume(ctx context.Context, name string, waited time.Duration)
}

// =============================================================================
// Tree Hooks
// =============================================================================

// TreeHooks receives events from tree algorithm routines.
type TreeHooks interface {
	// OnOperation records a completed public tree operation
	// ("insert", "delete", "search") and whether it changed anything.
	OnOperation(ctx context.Context, op string, changed bool)

	// OnRotation records a single rotation ("rotate-left", "rotate-right").
	OnRotation(ctx context.Context, kind string)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the remote-control API server.
type HTTPHooks interface {
	// OnRequest records an incoming HTTP request.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records the response written for a request.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopControllerHooks is a no-op implementation of ControllerHooks.
type NoopControllerHooks struct{}

func (NoopControllerHooks) OnRunStart(context.Context, string, string) {}
func (NoopControllerHooks) OnRunComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopControllerHooks) OnStep(context.Context, string)                  {}
func (NoopControllerHooks) OnPause(context.Context, string)                 {}
func (NoopControllerHooks) OnResume(context.Context, string, time.Duration) {}

// NoopTreeHooks is a no-op implementation of TreeHooks.
type NoopTreeHooks struct{}

func (NoopTreeHooks) OnOperation(context.Context, string, bool) {}
func (NoopTreeHooks) OnRotation(context.Context, string)        {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	controllerHooks ControllerHooks = NoopControllerHooks{}
	treeHooks       TreeHooks       = NoopTreeHooks{}
	httpHooks       HTTPHooks       = NoopHTTPHooks{}
	hooksMu         sync.RWMutex
)

// SetControllerHooks registers custom controller hooks.
// This should be called once at application startup before any run starts.
func SetControllerHooks(h ControllerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		controllerHooks = h
	}
}

// SetTreeHooks registers custom tree hooks.
func SetTreeHooks(h TreeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		treeHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before serving requests.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Controller returns the registered controller hooks.
func Controller() ControllerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return controllerHooks
}

// Tree returns the registered tree hooks.
func Tree() TreeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return treeHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	controllerHooks = NoopControllerHooks{}
	treeHooks = NoopTreeHooks{}
	httpHooks = NoopHTTPHooks{}
}
