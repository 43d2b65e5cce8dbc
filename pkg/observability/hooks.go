// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about address lookups, driver activity, and host traffic.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetFetchHooks(&myFetchHooks{})
//	    observability.SetDriverHooks(&myDriverHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Fetch().OnFetchStart(ctx, provider)
//	// ... do lookup ...
//	observability.Fetch().OnFetchComplete(ctx, provider, addr, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Fetch Hooks
// =============================================================================

// FetchHooks receives events from public address lookups.
type FetchHooks interface {
	// OnFetchStart records the start of a lookup against one provider.
	OnFetchStart(ctx context.Context, provider string)

	// OnFetchComplete records the outcome of a lookup against one provider.
	OnFetchComplete(ctx context.Context, provider, address string, duration time.Duration, err error)
}

// =============================================================================
// Driver Hooks
// =============================================================================

// DriverHooks receives events from the key driver.
type DriverHooks interface {
	// OnRefresh records one refresh cycle: trigger is "timer", "press", or "appear".
	OnRefresh(ctx context.Context, trigger string, duration time.Duration, err error)

	// OnKeyPress records a physical key press before any work starts.
	OnKeyPress(ctx context.Context, keyContext string)

	// OnCopy records a clipboard write attempt.
	OnCopy(ctx context.Context, keyContext string, err error)

	// OnImagePush records an image update sent to the host for one key.
	OnImagePush(ctx context.Context, keyContext string, err error)
}

// =============================================================================
// Host Hooks
// =============================================================================

// HostHooks receives events from the stream-deck host connection.
type HostHooks interface {
	// OnConnect records a completed registration handshake.
	OnConnect(ctx context.Context, port int)

	// OnEvent records an inbound host event.
	OnEvent(ctx context.Context, event string)

	// OnSend records an outbound host command.
	OnSend(ctx context.Context, event string, err error)

	// OnDisconnect records the end of the host session.
	OnDisconnect(ctx context.Context, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopFetchHooks is a no-op implementation of FetchHooks.
type NoopFetchHooks struct{}

func (NoopFetchHooks) OnFetchStart(context.Context, string)                                  {}
func (NoopFetchHooks) OnFetchComplete(context.Context, string, string, time.Duration, error) {}

// NoopDriverHooks is a no-op implementation of DriverHooks.
type NoopDriverHooks struct{}

func (NoopDriverHooks) OnRefresh(context.Context, string, time.Duration, error) {}
func (NoopDriverHooks) OnKeyPress(context.Context, string)                      {}
func (NoopDriverHooks) OnCopy(context.Context, string, error)                   {}
func (NoopDriverHooks) OnImagePush(context.Context, string, error)              {}

// NoopHostHooks is a no-op implementation of HostHooks.
type NoopHostHooks struct{}

func (NoopHostHooks) OnConnect(context.Context, int)        {}
func (NoopHostHooks) OnEvent(context.Context, string)       {}
func (NoopHostHooks) OnSend(context.Context, string, error) {}
func (NoopHostHooks) OnDisconnect(context.Context, error)   {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	fetchHooks  FetchHooks  = NoopFetchHooks{}
	driverHooks DriverHooks = NoopDriverHooks{}
	hostHooks   HostHooks   = NoopHostHooks{}
	hooksMu     sync.RWMutex
)

// SetFetchHooks registers custom lookup hooks.
// This should be called once at application startup before any lookups.
func SetFetchHooks(h FetchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		fetchHooks = h
	}
}

// SetDriverHooks registers custom driver hooks.
// This should be called once at application startup before the driver runs.
func SetDriverHooks(h DriverHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		driverHooks = h
	}
}

// SetHostHooks registers custom host connection hooks.
// This should be called once at application startup before connecting.
func SetHostHooks(h HostHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		hostHooks = h
	}
}

// Fetch returns the registered lookup hooks.
func Fetch() FetchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return fetchHooks
}

// Driver returns the registered driver hooks.
func Driver() DriverHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return driverHooks
}

// Host returns the registered host connection hooks.
func Host() HostHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return hostHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	fetchHooks = NoopFetchHooks{}
	driverHooks = NoopDriverHooks{}
	hostHooks = NoopHostHooks{}
}
