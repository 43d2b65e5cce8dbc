// Package deck implements the plugin side of the stream-deck host protocol.
//
// The host launches the plugin binary with four flags (-port, -pluginUUID,
// -registerEvent, -info), and the plugin dials a websocket back to the host
// on localhost. The first message must be the registration handshake; after
// that the host pushes key lifecycle events and the plugin answers with
// display commands.
//
// A Client owns one such connection. Inbound events are surfaced on the
// Events channel from a single reader goroutine; outbound commands may be
// sent from any goroutine and are serialized internally.
package deck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/deckwork/ipkey/pkg/errors"
	"github.com/deckwork/ipkey/pkg/observability"
)

const (
	// writeWait bounds how long a single outbound command may block.
	writeWait = 10 * time.Second

	// maxMessageSize caps inbound host messages. Settings payloads are tiny;
	// anything near this size is a broken host.
	maxMessageSize = 512 * 1024

	// eventBuffer is the inbound channel depth. The host sends bursts on
	// profile switches (one willAppear per key), so leave headroom.
	eventBuffer = 16
)

// Options carries the handshake parameters the host passes on launch.
type Options struct {
	Port          int    // Websocket port on localhost
	PluginUUID    string // Identifier to register with
	RegisterEvent string // Registration event name, e.g. "registerPlugin"
	Info          string // JSON blob describing host and devices
}

// Validate checks that the host handed over everything needed to connect.
func (o Options) Validate() error {
	if o.Port <= 0 || o.Port > 65535 {
		return errors.New(errors.ErrCodeHostProtocol, "port %d out of range", o.Port)
	}
	if err := errors.ValidateContextID(o.PluginUUID); err != nil {
		return errors.Wrap(errors.ErrCodeHostProtocol, err, "plugin uuid")
	}
	if o.RegisterEvent == "" {
		return errors.New(errors.ErrCodeHostProtocol, "register event cannot be empty")
	}
	return nil
}

// registration is the first message on the wire, host-inward.
type registration struct {
	Event string `json:"event"`
	UUID  string `json:"uuid"`
}

// Client is a connected host session.
type Client struct {
	conn   *websocket.Conn
	events chan Event

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Open dials the host, performs the registration handshake, and starts the
// reader. Canceling ctx tears the connection down.
func Open(ctx context.Context, opts Options) (*Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	u := url.URL{Scheme: "ws", Host: fmt.Sprintf("127.0.0.1:%d", opts.Port)}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeHostProtocol, err, "dialing host on port %d", opts.Port)
	}
	conn.SetReadLimit(maxMessageSize)

	c := &Client{
		conn:   conn,
		events: make(chan Event, eventBuffer),
	}

	if err := c.register(ctx, opts); err != nil {
		c.Close()
		return nil, err
	}
	observability.Host().OnConnect(ctx, opts.Port)

	go c.watchContext(ctx)
	go c.readLoop(ctx)
	return c, nil
}

func (c *Client) register(ctx context.Context, opts Options) error {
	reg := registration{Event: opts.RegisterEvent, UUID: opts.PluginUUID}
	return c.send(ctx, opts.RegisterEvent, reg)
}

// Events returns the inbound event stream. The channel is closed when the
// connection ends, whatever the reason.
func (c *Client) Events() <-chan Event {
	return c.events
}

// watchContext closes the connection when ctx is canceled, which unblocks
// the reader.
func (c *Client) watchContext(ctx context.Context) {
	<-ctx.Done()
	c.Close()
}

// readLoop is the only reader on the connection. Malformed messages are
// dropped; a read error ends the session.
func (c *Client) readLoop(ctx context.Context) {
	defer close(c.events)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			observability.Host().OnDisconnect(ctx, err)
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil || ev.Event == "" {
			observability.Host().OnEvent(ctx, "unparseable")
			continue
		}
		observability.Host().OnEvent(ctx, ev.Event)

		select {
		case c.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// send marshals v and writes it as one text frame. Writes from concurrent
// goroutines are serialized here; gorilla connections do not allow
// concurrent writers.
func (c *Client) send(ctx context.Context, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding %s", event)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	observability.Host().OnSend(ctx, event, err)
	if err != nil {
		return errors.Wrap(errors.ErrCodeHostProtocol, err, "sending %s", event)
	}
	return nil
}

// Close sends a close frame and tears down the connection. It is safe to
// call from any goroutine and more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
