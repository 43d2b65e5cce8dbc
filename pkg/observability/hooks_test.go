package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Fetch hooks
	f := NoopFetchHooks{}
	f.OnFetchStart(ctx, "ipify")
	f.OnFetchComplete(ctx, "ipify", "203.0.113.77", time.Second, nil)

	// Driver hooks
	d := NoopDriverHooks{}
	d.OnRefresh(ctx, "timer", time.Second, nil)
	d.OnKeyPress(ctx, "key-1")
	d.OnCopy(ctx, "key-1", nil)
	d.OnImagePush(ctx, "key-1", nil)

	// Host hooks
	h := NoopHostHooks{}
	h.OnConnect(ctx, 28196)
	h.OnEvent(ctx, "keyDown")
	h.OnSend(ctx, "setImage", nil)
	h.OnDisconnect(ctx, nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Fetch().(NoopFetchHooks); !ok {
		t.Error("Fetch() should return NoopFetchHooks by default")
	}
	if _, ok := Driver().(NoopDriverHooks); !ok {
		t.Error("Driver() should return NoopDriverHooks by default")
	}
	if _, ok := Host().(NoopHostHooks); !ok {
		t.Error("Host() should return NoopHostHooks by default")
	}

	// Set custom hooks
	customFetch := &testFetchHooks{}
	SetFetchHooks(customFetch)
	if Fetch() != customFetch {
		t.Error("SetFetchHooks should set custom hooks")
	}

	customDriver := &testDriverHooks{}
	SetDriverHooks(customDriver)
	if Driver() != customDriver {
		t.Error("SetDriverHooks should set custom hooks")
	}

	customHost := &testHostHooks{}
	SetHostHooks(customHost)
	if Host() != customHost {
		t.Error("SetHostHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Fetch().(NoopFetchHooks); !ok {
		t.Error("Reset() should restore NoopFetchHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testFetchHooks{}
	SetFetchHooks(custom)

	// Setting nil should be ignored
	SetFetchHooks(nil)

	if Fetch() != custom {
		t.Error("SetFetchHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testFetchHooks struct{ NoopFetchHooks }
type testDriverHooks struct{ NoopDriverHooks }
type testHostHooks struct{ NoopHostHooks }
