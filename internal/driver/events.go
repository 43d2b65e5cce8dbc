package driver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/deckwork/ipkey/pkg/deck"
	"github.com/deckwork/ipkey/pkg/errors"
	"github.com/deckwork/ipkey/pkg/keyimage"
	"github.com/deckwork/ipkey/pkg/observability"
	"github.com/deckwork/ipkey/pkg/settings"
)

// handleEvent dispatches one host event. Unknown events are logged and
// dropped; the host adds event types over time and old plugins must not
// choke on them.
func (d *Driver) handleEvent(ctx context.Context, ev deck.Event) {
	switch ev.Event {
	case deck.EventWillAppear:
		d.handleWillAppear(ctx, ev)
	case deck.EventWillDisappear:
		d.handleWillDisappear(ev)
	case deck.EventKeyDown:
		d.handleKeyDown(ctx, ev)
	case deck.EventKeyUp:
		d.logger.Debugf("key %s released", ev.Context)
	case deck.EventDidReceiveSettings:
		d.handleDidReceiveSettings(ctx, ev)
	case deck.EventDeviceDidConnect, deck.EventDeviceDidDisconnect:
		d.logger.Debugf("device event %s (%s)", ev.Event, ev.Device)
	default:
		d.logger.Debugf("ignoring event %s", ev.Event)
	}
}

// handleWillAppear registers the key and paints it. The very first key to
// appear triggers the initial lookup; later keys reuse whatever address is
// already known.
func (d *Driver) handleWillAppear(ctx context.Context, ev deck.Event) {
	payload, err := ev.ParsePayload()
	if err != nil {
		d.logger.Warnf("%s payload: %v", ev.Event, err)
	}

	st := &keyState{settings: d.resolveSettings(ctx, ev.Context, payload.Settings)}

	d.mu.Lock()
	d.keys[ev.Context] = st
	count := len(d.keys)
	first := d.address == ""
	d.mu.Unlock()

	d.logger.Debugf("key %s appeared (lines=%d, keys=%d)", ev.Context, st.settings.Lines, count)

	if first {
		d.pushImage(ctx, ev.Context, keyimage.RenderAddress(placeholderText, st.settings.Lines))
		d.refreshAll(ctx, "appear")
		return
	}

	d.mu.RLock()
	text := d.currentText()
	d.mu.RUnlock()
	d.pushImage(ctx, ev.Context, keyimage.RenderAddress(text, st.settings.Lines))
}

// handleWillDisappear forgets the key. Its settings stay in the store so a
// reappearing key keeps its layout.
func (d *Driver) handleWillDisappear(ev deck.Event) {
	d.mu.Lock()
	_, known := d.keys[ev.Context]
	delete(d.keys, ev.Context)
	count := len(d.keys)
	d.mu.Unlock()

	if !known {
		d.logger.Debugf("disappear for unknown key %s", ev.Context)
		return
	}
	d.logger.Debugf("key %s disappeared (keys=%d)", ev.Context, count)
}

// handleDidReceiveSettings applies a layout change and repaints the key,
// unless a status overlay is up; the deferred restore will use the new
// layout anyway.
func (d *Driver) handleDidReceiveSettings(ctx context.Context, ev deck.Event) {
	payload, err := ev.ParsePayload()
	if err != nil {
		d.logger.Warnf("%s payload: %v", ev.Event, err)
	}

	s, err := settings.Parse(payload.Settings)
	if err != nil {
		d.logger.Warnf("settings for %s: %v", ev.Context, err)
	}
	d.persistSettings(ctx, ev.Context, s)

	d.mu.Lock()
	st, known := d.keys[ev.Context]
	if !known {
		st = &keyState{}
		d.keys[ev.Context] = st
	}
	st.settings = s
	overlaid := st.showingStatus
	text := d.currentText()
	d.mu.Unlock()

	d.logger.Debugf("key %s settings changed (lines=%d)", ev.Context, s.Lines)

	if overlaid {
		return
	}
	d.pushImage(ctx, ev.Context, keyimage.RenderAddress(text, s.Lines))
}

// handleKeyDown is the press flow: fetch a fresh address, copy it, confirm
// with a transient overlay. A lookup failure stops before the clipboard; a
// clipboard failure keeps the address image and raises the host alert.
func (d *Driver) handleKeyDown(ctx context.Context, ev deck.Event) {
	observability.Driver().OnKeyPress(ctx, ev.Context)
	st := d.stateFor(ev.Context)

	if !d.refreshAll(ctx, "press") {
		return
	}

	d.mu.RLock()
	text := d.address
	d.mu.RUnlock()

	copyErr := d.clip.Copy(ctx, text)
	observability.Driver().OnCopy(ctx, ev.Context, copyErr)
	if copyErr != nil {
		d.logger.Errorf("clipboard copy failed: %v", copyErr)
		d.hostLog(ctx, "clipboard copy failed: "+errors.UserMessage(copyErr))
		if err := d.display.ShowAlert(ctx, ev.Context); err != nil {
			d.logger.Warnf("alert for %s: %v", ev.Context, err)
		}
		return
	}
	d.logger.Infof("copied %s to clipboard", text)

	d.mu.Lock()
	st.statusGen++
	st.showingStatus = true
	gen := st.statusGen
	d.mu.Unlock()

	d.pushImage(ctx, ev.Context, keyimage.RenderStatus(copiedText))

	keyContext := ev.Context
	time.AfterFunc(d.statusHold, func() {
		d.queueRestore(keyContext, gen)
	})
}

// queueRestore hands a deferred restore to the run loop. Called from timer
// goroutines, so it must not block.
func (d *Driver) queueRestore(keyContext string, gen uint64) {
	select {
	case d.restores <- restoreMsg{keyContext: keyContext, gen: gen}:
	default:
		d.logger.Warnf("restore queue full, dropping restore for %s", keyContext)
	}
}

// restore replaces a status overlay with the address image. Stale restores,
// where the key vanished or was pressed again in the meantime, are dropped.
func (d *Driver) restore(ctx context.Context, msg restoreMsg) {
	d.mu.Lock()
	st, known := d.keys[msg.keyContext]
	if !known || st.statusGen != msg.gen {
		d.mu.Unlock()
		return
	}
	st.showingStatus = false
	lines := st.settings.Lines
	text := d.currentText()
	d.mu.Unlock()

	d.pushImage(ctx, msg.keyContext, keyimage.RenderAddress(text, lines))
}

// stateFor returns the key's state, registering a default one for events
// that arrive before willAppear.
func (d *Driver) stateFor(keyContext string) *keyState {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, known := d.keys[keyContext]
	if !known {
		st = &keyState{settings: d.defaults}
		d.keys[keyContext] = st
		d.logger.Debugf("event for unregistered key %s", keyContext)
	}
	return st
}

// resolveSettings picks the key's settings for willAppear: the payload when
// the host sent one, the store's copy for a payload-less appear, defaults
// otherwise. Parsed payloads are mirrored into the store.
func (d *Driver) resolveSettings(ctx context.Context, keyContext string, raw json.RawMessage) settings.Settings {
	if len(raw) == 0 {
		if d.store != nil {
			saved, err := d.store.Get(ctx, keyContext)
			if err != nil {
				d.logger.Debugf("settings store read for %s: %v", keyContext, err)
			}
			if saved != nil {
				return *saved
			}
		}
		return d.defaults
	}

	s, err := settings.Parse(raw)
	if err != nil {
		d.logger.Warnf("settings for %s: %v", keyContext, err)
	}
	d.persistSettings(ctx, keyContext, s)
	return s
}

func (d *Driver) persistSettings(ctx context.Context, keyContext string, s settings.Settings) {
	if d.store == nil {
		return
	}
	if err := d.store.Set(ctx, keyContext, s); err != nil {
		d.logger.Debugf("settings store write for %s: %v", keyContext, err)
	}
}
