// Package driver owns the runtime state of every visible key. It turns host
// events and timer ticks into address lookups, clipboard writes, and image
// pushes, and keeps all of it on one goroutine so key state never needs
// fine-grained locking.
package driver

import (
	"context"
	"io"
	"net/netip"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/deckwork/ipkey/pkg/clipboard"
	"github.com/deckwork/ipkey/pkg/deck"
	"github.com/deckwork/ipkey/pkg/errors"
	"github.com/deckwork/ipkey/pkg/keyimage"
	"github.com/deckwork/ipkey/pkg/observability"
	"github.com/deckwork/ipkey/pkg/publicip"
	"github.com/deckwork/ipkey/pkg/settings"
)

// Texts drawn on the key.
const (
	placeholderText = "Loading..."
	failureText     = "Error"
	copiedText      = "Copied!"
)

// Defaults applied when Options leave fields zero.
const (
	defaultRefresh    = 5 * time.Minute
	defaultStatusHold = 1500 * time.Millisecond
)

// restoreBuffer sizes the deferred-restore queue. Restores are tiny and
// drained immediately; the buffer only absorbs a burst of near-simultaneous
// presses.
const restoreBuffer = 16

// ErrHostClosed is returned by Run when the host ends the session by closing
// the event stream. Callers treat it as a normal shutdown, not a failure.
var ErrHostClosed = errors.New(errors.ErrCodeHostProtocol, "host connection closed")

// Display is the slice of the host connection the driver needs.
// *deck.Client satisfies it; tests substitute a recorder.
type Display interface {
	SetImage(ctx context.Context, keyContext, image string) error
	ShowAlert(ctx context.Context, keyContext string) error
	LogMessage(ctx context.Context, message string) error
}

// Fetcher resolves the machine's current public address.
type Fetcher interface {
	Fetch(ctx context.Context) (netip.Addr, error)
}

var (
	_ Display = (*deck.Client)(nil)
	_ Fetcher = (*publicip.Client)(nil)
)

// Options configures a Driver.
type Options struct {
	Refresh    time.Duration     // address refresh interval; default 5m
	StatusHold time.Duration     // how long "Copied!" stays up; default 1.5s
	Defaults   settings.Settings // layout for keys that carry no settings
	Store      settings.Store    // optional settings persistence for standalone runs
	Logger     *log.Logger
}

// keyState is everything the driver remembers about one visible key.
type keyState struct {
	settings settings.Settings

	// statusGen invalidates deferred restores: every status overlay bumps
	// it, and a restore only applies if its generation still matches.
	statusGen     uint64
	showingStatus bool
}

// restoreMsg asks the run loop to replace a status overlay with the
// current address image.
type restoreMsg struct {
	keyContext string
	gen        uint64
}

// Driver runs the plugin's key logic.
type Driver struct {
	display  Display
	fetch    Fetcher
	clip     clipboard.Writer
	store    settings.Store
	logger   *log.Logger
	defaults settings.Settings

	refreshEvery time.Duration
	statusHold   time.Duration

	events   <-chan deck.Event
	restores chan restoreMsg
	kicks    chan struct{}

	// mu guards keys and the address fields; the run loop is the only
	// writer, Snapshot readers come from other goroutines.
	mu        sync.RWMutex
	keys      map[string]*keyState
	address   string
	fetchedAt time.Time
	lastError string
}

// New creates a Driver. The events channel is normally deck.Client.Events;
// Run exits when it closes.
func New(display Display, fetcher Fetcher, clip clipboard.Writer, events <-chan deck.Event, opts Options) *Driver {
	if opts.Refresh <= 0 {
		opts.Refresh = defaultRefresh
	}
	if opts.StatusHold <= 0 {
		opts.StatusHold = defaultStatusHold
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if !opts.Defaults.Lines.Valid() {
		opts.Defaults = settings.Default()
	}
	return &Driver{
		display:      display,
		fetch:        fetcher,
		clip:         clip,
		store:        opts.Store,
		logger:       opts.Logger,
		defaults:     opts.Defaults,
		refreshEvery: opts.Refresh,
		statusHold:   opts.StatusHold,
		events:       events,
		restores:     make(chan restoreMsg, restoreBuffer),
		kicks:        make(chan struct{}, 1),
		keys:         make(map[string]*keyState),
	}
}

// Run processes host events, refresh ticks, and deferred restores until ctx
// is canceled or the event channel closes.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-d.events:
			if !ok {
				return ErrHostClosed
			}
			d.handleEvent(ctx, ev)

		case <-ticker.C:
			d.refreshAll(ctx, "timer")

		case <-d.kicks:
			d.refreshAll(ctx, "manual")

		case msg := <-d.restores:
			d.restore(ctx, msg)
		}
	}
}

// Kick requests an immediate refresh from another goroutine. It never
// blocks; if a refresh is already pending the kick folds into it.
func (d *Driver) Kick() {
	select {
	case d.kicks <- struct{}{}:
	default:
	}
}

// Snapshot is the driver state exposed on the status API.
type Snapshot struct {
	Address   string    `json:"address,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	Keys      int       `json:"keys"`
	LastError string    `json:"last_error,omitempty"`
}

// Snapshot returns the current state. Safe to call from any goroutine.
func (d *Driver) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{
		Address:   d.address,
		FetchedAt: d.fetchedAt,
		Keys:      len(d.keys),
		LastError: d.lastError,
	}
}

// refreshAll fetches the address once and pushes the result to every key
// that is not currently showing a status overlay. Returns false if the
// lookup failed; the failure text has already been displayed and logged.
func (d *Driver) refreshAll(ctx context.Context, trigger string) bool {
	start := time.Now()
	addr, err := d.fetch.Fetch(ctx)
	duration := time.Since(start)
	observability.Driver().OnRefresh(ctx, trigger, duration, err)

	d.mu.Lock()
	if err != nil {
		d.address = failureText
		d.lastError = errors.UserMessage(err)
	} else {
		d.address = addr.String()
		d.fetchedAt = time.Now()
		d.lastError = ""
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Errorf("address lookup failed (%s): %v", trigger, err)
		d.hostLog(ctx, "address lookup failed: "+errors.UserMessage(err))
	} else {
		d.logger.Debugf("address %s (%s, %s)", addr, trigger, duration.Round(time.Millisecond))
	}

	d.pushAll(ctx)
	return err == nil
}

// pushAll renders the current text for every key with its own layout.
func (d *Driver) pushAll(ctx context.Context) {
	type target struct {
		keyContext string
		lines      keyimage.DisplayMode
	}

	d.mu.RLock()
	targets := make([]target, 0, len(d.keys))
	for keyContext, st := range d.keys {
		if st.showingStatus {
			continue
		}
		targets = append(targets, target{keyContext: keyContext, lines: st.settings.Lines})
	}
	text := d.currentText()
	d.mu.RUnlock()

	for _, tgt := range targets {
		d.pushImage(ctx, tgt.keyContext, keyimage.RenderAddress(text, tgt.lines))
	}
}

// currentText is the string drawn on keys right now. Callers hold mu.
func (d *Driver) currentText() string {
	if d.address == "" {
		return placeholderText
	}
	return d.address
}

func (d *Driver) pushImage(ctx context.Context, keyContext string, img keyimage.Image) {
	err := d.display.SetImage(ctx, keyContext, img.DataURI())
	observability.Driver().OnImagePush(ctx, keyContext, err)
	if err != nil {
		d.logger.Warnf("image push for %s failed: %v", keyContext, err)
	}
}

// hostLog mirrors a line into the host's own plugin log.
func (d *Driver) hostLog(ctx context.Context, message string) {
	if err := d.display.LogMessage(ctx, "ipkey: "+message); err != nil {
		d.logger.Debugf("host log failed: %v", err)
	}
}
