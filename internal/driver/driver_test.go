package driver

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deckwork/ipkey/pkg/deck"
	"github.com/deckwork/ipkey/pkg/errors"
	"github.com/deckwork/ipkey/pkg/keyimage"
	"github.com/deckwork/ipkey/pkg/settings"
)

const testAction = "dev.deckwork.ipkey.address"

type fakeDisplay struct {
	mu     sync.Mutex
	images map[string][]string
	alerts []string
	logs   []string
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{images: make(map[string][]string)}
}

func (f *fakeDisplay) SetImage(_ context.Context, keyContext, image string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[keyContext] = append(f.images[keyContext], image)
	return nil
}

func (f *fakeDisplay) ShowAlert(_ context.Context, keyContext string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, keyContext)
	return nil
}

func (f *fakeDisplay) LogMessage(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, message)
	return nil
}

func (f *fakeDisplay) imagesFor(keyContext string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.images[keyContext]...)
}

func (f *fakeDisplay) alertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

func (f *fakeDisplay) logLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.logs...)
}

type fetchResult struct {
	addr netip.Addr
	err  error
}

// fakeFetcher serves queued results, repeating the last one forever.
type fakeFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
}

func fetcherFor(addrs ...string) *fakeFetcher {
	f := &fakeFetcher{}
	for _, a := range addrs {
		f.results = append(f.results, fetchResult{addr: netip.MustParseAddr(a)})
	}
	return f
}

func (f *fakeFetcher) Fetch(context.Context) (netip.Addr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res.addr, res.err
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClip struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeClip) Name() string { return "fake" }

func (f *fakeClip) Copy(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeClip) copied() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type harness struct {
	driver  *Driver
	display *fakeDisplay
	fetcher *fakeFetcher
	clip    *fakeClip
	events  chan deck.Event
}

func startDriver(t *testing.T, fetcher *fakeFetcher, clip *fakeClip, opts Options) *harness {
	t.Helper()
	display := newFakeDisplay()
	events := make(chan deck.Event, 16)
	if opts.StatusHold == 0 {
		opts.StatusHold = 40 * time.Millisecond
	}
	if opts.Refresh == 0 {
		opts.Refresh = time.Hour
	}
	d := New(display, fetcher, clip, events, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("driver did not stop")
		}
	})

	return &harness{driver: d, display: display, fetcher: fetcher, clip: clip, events: events}
}

func keyEvent(t *testing.T, event, keyContext string, payload map[string]any) deck.Event {
	t.Helper()
	ev := deck.Event{Event: event, Action: testAction, Context: keyContext}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		ev.Payload = raw
	}
	return ev
}

func linesPayload(lines any) map[string]any {
	return map[string]any{"settings": map[string]any{"lines": lines}}
}

func addressURI(text string, mode keyimage.DisplayMode) string {
	return keyimage.RenderAddress(text, mode).DataURI()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWillAppearShowsPlaceholderThenAddress(t *testing.T) {
	h := startDriver(t, fetcherFor("203.0.113.77"), &fakeClip{}, Options{})

	h.events <- keyEvent(t, deck.EventWillAppear, "key-1", nil)
	waitFor(t, "two images", func() bool { return len(h.display.imagesFor("key-1")) == 2 })

	images := h.display.imagesFor("key-1")
	if images[0] != addressURI("Loading...", keyimage.ModeSingle) {
		t.Error("first image is not the placeholder")
	}
	if images[1] != addressURI("203.0.113.77", keyimage.ModeSingle) {
		t.Error("second image is not the fetched address")
	}
	if got := h.fetcher.count(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestSecondKeyReusesKnownAddress(t *testing.T) {
	h := startDriver(t, fetcherFor("203.0.113.77"), &fakeClip{}, Options{})

	h.events <- keyEvent(t, deck.EventWillAppear, "key-1", nil)
	waitFor(t, "first key painted", func() bool { return len(h.display.imagesFor("key-1")) == 2 })

	h.events <- keyEvent(t, deck.EventWillAppear, "key-2", linesPayload(4))
	waitFor(t, "second key painted", func() bool { return len(h.display.imagesFor("key-2")) == 1 })

	images := h.display.imagesFor("key-2")
	if images[0] != addressURI("203.0.113.77", keyimage.ModeQuad) {
		t.Error("second key did not reuse the known address")
	}
	if got := h.fetcher.count(); got != 1 {
		t.Errorf("fetch calls = %d, want 1 (no refetch for later keys)", got)
	}
	if got := h.driver.Snapshot().Keys; got != 2 {
		t.Errorf("snapshot keys = %d, want 2", got)
	}
}

func TestKeyDownCopiesAndConfirms(t *testing.T) {
	clip := &fakeClip{}
	h := startDriver(t, fetcherFor("203.0.113.77"), clip, Options{})

	h.events <- keyEvent(t, deck.EventWillAppear, "key-1", nil)
	waitFor(t, "key painted", func() bool { return len(h.display.imagesFor("key-1")) == 2 })

	h.events <- keyEvent(t, deck.EventKeyDown, "key-1", nil)
	waitFor(t, "press and restore", func() bool { return len(h.display.imagesFor("key-1")) == 5 })

	if got := clip.copied(); len(got) != 1 || got[0] != "203.0.113.77" {
		t.Errorf("copied = %v, want the fetched address once", got)
	}

	images := h.display.imagesFor("key-1")
	addr := addressURI("203.0.113.77", keyimage.ModeSingle)
	if images[2] != addr {
		t.Error("press did not repaint the fresh address")
	}
	if images[3] != keyimage.RenderStatus("Copied!").DataURI() {
		t.Error("press did not show the confirmation")
	}
	if images[4] != addr {
		t.Error("confirmation was not restored to the address")
	}
}

func TestKeyDownLookupFailureShowsErrorWithoutCopy(t *testing.T) {
	fetcher := fetcherFor("203.0.113.77")
	fetcher.results = append(fetcher.results, fetchResult{err: errors.New(errors.ErrCodeNetwork, "all lookup providers failed")})
	clip := &fakeClip{}
	h := startDriver(t, fetcher, clip, Options{})

	h.events <- keyEvent(t, deck.EventWillAppear, "key-1", nil)
	waitFor(t, "key painted", func() bool { return len(h.display.imagesFor("key-1")) == 2 })

	h.events <- keyEvent(t, deck.EventKeyDown, "key-1", nil)
	waitFor(t, "failure image", func() bool { return len(h.display.imagesFor("key-1")) == 3 })

	images := h.display.imagesFor("key-1")
	if images[2] != addressURI("Error", keyimage.ModeSingle) {
		t.Error("failed lookup did not paint the failure text")
	}
	if got := clip.copied(); len(got) != 0 {
		t.Errorf("clipboard written on failed lookup: %v", got)
	}
	if h.display.alertCount() != 0 {
		t.Error("lookup failure must not raise the host alert")
	}

	waitFor(t, "host log line", func() bool { return len(h.display.logLines()) == 1 })
	if line := h.display.logLines()[0]; !strings.Contains(line, "address lookup failed") {
		t.Errorf("host log = %q, want a lookup failure line", line)
	}

	snap := h.driver.Snapshot()
	if snap.Address != "Error" {
		t.Errorf("snapshot address = %q, want Error", snap.Address)
	}
	if snap.LastError == "" {
		t.Error("snapshot last error is empty after a failed lookup")
	}
}

func TestKeyDownClipboardFailureAlerts(t *testing.T) {
	clip := &fakeClip{err: &errors.CommandError{Command: "xclip", Stderr: "Error: Can't open display"}}
	h := startDriver(t, fetcherFor("203.0.113.77"), clip, Options{})

	h.events <- keyEvent(t, deck.EventWillAppear, "key-1", nil)
	waitFor(t, "key painted", func() bool { return len(h.display.imagesFor("key-1")) == 2 })

	h.events <- keyEvent(t, deck.EventKeyDown, "key-1", nil)
	waitFor(t, "host alert", func() bool { return h.display.alertCount() == 1 })

	images := h.display.imagesFor("key-1")
	if last := images[len(images)-1]; last != addressURI("203.0.113.77", keyimage.ModeSingle) {
		t.Error("clipboard failure must leave the address image up")
	}
	for _, img := range images {
		if img == keyimage.RenderStatus("Copied!").DataURI() {
			t.Error("confirmation shown although the copy failed")
		}
	}

	waitFor(t, "host log line", func() bool { return len(h.display.logLines()) == 1 })
	if line := h.display.logLines()[0]; !strings.Contains(line, "clipboard copy failed") {
		t.Errorf("host log = %q, want a clipboard failure line", line)
	}
}

func TestSettingsChangeRerenders(t *testing.T) {
	h := startDriver(t, fetcherFor("203.0.113.77"), &fakeClip{}, Options{})

	h.events <- keyEvent(t, deck.EventWillAppear, "key-1", linesPayload(2))
	waitFor(t, "key painted", func() bool { return len(h.display.imagesFor("key-1")) == 2 })

	if got := h.display.imagesFor("key-1")[1]; got != addressURI("203.0.113.77", keyimage.ModeSplit) {
		t.Error("appear did not honor the two-line setting")
	}

	h.events <- keyEvent(t, deck.EventDidReceiveSettings, "key-1", linesPayload(4))
	waitFor(t, "repaint", func() bool { return len(h.display.imagesFor("key-1")) == 3 })

	if got := h.display.imagesFor("key-1")[2]; got != addressURI("203.0.113.77", keyimage.ModeQuad) {
		t.Error("settings change did not repaint with the new layout")
	}
}

func TestTimerRefreshPicksUpNewAddress(t *testing.T) {
	fetcher := fetcherFor("203.0.113.77", "198.51.100.9")
	h := startDriver(t, fetcher, &fakeClip{}, Options{Refresh: 25 * time.Millisecond})

	h.events <- keyEvent(t, deck.EventWillAppear, "key-1", nil)
	want := addressURI("198.51.100.9", keyimage.ModeSingle)
	waitFor(t, "refreshed image", func() bool {
		images := h.display.imagesFor("key-1")
		return len(images) > 0 && images[len(images)-1] == want
	})

	if got := h.fetcher.count(); got < 2 {
		t.Errorf("fetch calls = %d, want at least 2", got)
	}
	if got := h.driver.Snapshot().Address; got != "198.51.100.9" {
		t.Errorf("snapshot address = %q, want the refreshed one", got)
	}
}

func TestRepressRestartsConfirmation(t *testing.T) {
	clip := &fakeClip{}
	h := startDriver(t, fetcherFor("203.0.113.77"), clip, Options{StatusHold: 80 * time.Millisecond})

	h.events <- keyEvent(t, deck.EventWillAppear, "key-1", nil)
	waitFor(t, "key painted", func() bool { return len(h.display.imagesFor("key-1")) == 2 })

	h.events <- keyEvent(t, deck.EventKeyDown, "key-1", nil)
	h.events <- keyEvent(t, deck.EventKeyDown, "key-1", nil)

	addr := addressURI("203.0.113.77", keyimage.ModeSingle)
	waitFor(t, "final restore", func() bool {
		images := h.display.imagesFor("key-1")
		return len(images) >= 6 && images[len(images)-1] == addr
	})

	status := keyimage.RenderStatus("Copied!").DataURI()
	var confirmations, restores int
	for _, img := range h.display.imagesFor("key-1")[2:] {
		switch img {
		case status:
			confirmations++
		case addr:
			restores++
		}
	}
	if confirmations != 2 {
		t.Errorf("confirmations = %d, want 2", confirmations)
	}
	if restores != 2 {
		t.Errorf("address repaints after press = %d, want 2 (press refresh and one restore)", restores)
	}
	if got := clip.copied(); len(got) != 2 {
		t.Errorf("copies = %d, want 2", len(got))
	}
}

func TestWillDisappearStopsPushes(t *testing.T) {
	h := startDriver(t, fetcherFor("203.0.113.77"), &fakeClip{}, Options{})

	h.events <- keyEvent(t, deck.EventWillAppear, "key-1", nil)
	waitFor(t, "key painted", func() bool { return len(h.display.imagesFor("key-1")) == 2 })

	h.events <- keyEvent(t, deck.EventWillDisappear, "key-1", nil)
	waitFor(t, "key forgotten", func() bool { return h.driver.Snapshot().Keys == 0 })

	h.driver.Kick()
	waitFor(t, "kicked refresh", func() bool { return h.fetcher.count() == 2 })

	if got := len(h.display.imagesFor("key-1")); got != 2 {
		t.Errorf("images after disappear = %d, want 2", got)
	}
}

func TestKickRefreshesSnapshot(t *testing.T) {
	fetcher := fetcherFor("203.0.113.77", "198.51.100.9")
	h := startDriver(t, fetcher, &fakeClip{}, Options{})

	h.driver.Kick()
	waitFor(t, "kicked refresh", func() bool { return h.driver.Snapshot().Address == "203.0.113.77" })

	snap := h.driver.Snapshot()
	if snap.FetchedAt.IsZero() {
		t.Error("snapshot fetched-at is zero after a successful refresh")
	}
	if snap.LastError != "" {
		t.Errorf("snapshot last error = %q, want empty", snap.LastError)
	}
}

func TestWillAppearUsesStoredSettings(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	if err := store.Set(ctx, "key-1", settings.Settings{Lines: keyimage.ModeQuad}); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	h := startDriver(t, fetcherFor("203.0.113.77"), &fakeClip{}, Options{Store: store})

	h.events <- keyEvent(t, deck.EventWillAppear, "key-1", map[string]any{})
	waitFor(t, "key painted", func() bool { return len(h.display.imagesFor("key-1")) == 2 })

	if got := h.display.imagesFor("key-1")[1]; got != addressURI("203.0.113.77", keyimage.ModeQuad) {
		t.Error("appear without payload settings did not use the stored layout")
	}

	h.events <- keyEvent(t, deck.EventWillAppear, "key-2", linesPayload(2))
	waitFor(t, "second key painted", func() bool { return len(h.display.imagesFor("key-2")) == 1 })

	saved, err := store.Get(ctx, "key-2")
	if err != nil || saved == nil {
		t.Fatalf("store.Get after appear = (%v, %v), want mirrored settings", saved, err)
	}
	if saved.Lines != keyimage.ModeSplit {
		t.Errorf("mirrored lines = %d, want 2", saved.Lines)
	}
}

func TestRunReturnsWhenEventsClose(t *testing.T) {
	events := make(chan deck.Event)
	d := New(newFakeDisplay(), fetcherFor("203.0.113.77"), &fakeClip{}, events, Options{})

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	close(events)
	select {
	case err := <-done:
		if !stderrors.Is(err, ErrHostClosed) {
			t.Errorf("Run returned %v, want ErrHostClosed", err)
		}
		if errors.GetCode(err) != errors.ErrCodeHostProtocol {
			t.Errorf("Run error code = %q, want %q", errors.GetCode(err), errors.ErrCodeHostProtocol)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the event channel closed")
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	events := make(chan deck.Event)
	d := New(newFakeDisplay(), fetcherFor("203.0.113.77"), &fakeClip{}, events, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
