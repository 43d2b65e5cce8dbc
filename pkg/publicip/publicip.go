// Package publicip fetches the machine's public IPv4 address from plain-text
// lookup services.
//
// A lookup asks each configured provider in turn and returns the first answer
// that parses as an IPv4 address. Providers get exactly one attempt per
// lookup; there is no retry or backoff within a provider, because the caller
// already re-fetches on its own cadence and a stale answer is better served
// fresh on the next cycle than hammered for now.
package publicip

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/deckwork/ipkey/pkg/errors"
	"github.com/deckwork/ipkey/pkg/observability"
)

const (
	defaultTimeout = 5 * time.Second

	// maxBodySize caps how much of a provider response is read. A dotted
	// quad is at most 15 bytes; anything much larger is not an address.
	maxBodySize = 64
)

// endpoint is one lookup target: a display name for logs and errors, and
// the URL to GET.
type endpoint struct {
	name string
	url  string
}

// Client fetches the public IPv4 address with provider fallback.
// The zero value is not usable; construct with New.
type Client struct {
	http      *http.Client
	endpoints []endpoint
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithProviders replaces the fallback chain with the named providers,
// queried in the given order.
func WithProviders(providers ...Provider) Option {
	return func(c *Client) {
		if len(providers) == 0 {
			return
		}
		eps := make([]endpoint, 0, len(providers))
		for _, p := range providers {
			eps = append(eps, endpoint{name: p.String(), url: p.URL()})
		}
		c.endpoints = eps
	}
}

// WithLookupURL replaces the fallback chain with a single custom endpoint.
// The endpoint must answer GET with the address as bare text.
func WithLookupURL(rawURL string) Option {
	return func(c *Client) {
		c.endpoints = []endpoint{{name: endpointName(rawURL), url: rawURL}}
	}
}

// New creates a Client querying the default provider chain.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: defaultTimeout},
		endpoints: defaultEndpoints(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultEndpoints() []endpoint {
	providers := ListProviders()
	eps := make([]endpoint, 0, len(providers))
	for _, p := range providers {
		eps = append(eps, endpoint{name: p.String(), url: p.URL()})
	}
	return eps
}

// endpointName derives a stable display name for a custom endpoint.
func endpointName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return "custom"
}

// Fetch returns the current public IPv4 address. Each endpoint gets one
// attempt; the first valid answer wins. If every endpoint fails, the
// returned error joins the per-endpoint failures.
func (c *Client) Fetch(ctx context.Context) (netip.Addr, error) {
	if len(c.endpoints) == 0 {
		return netip.Addr{}, errors.New(errors.ErrCodeInvalidProvider, "no lookup providers configured")
	}

	var errs []error
	for _, ep := range c.endpoints {
		addr, err := c.fetchOne(ctx, ep)
		if err == nil {
			return addr, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return netip.Addr{}, errors.Wrap(errors.ErrCodeNetwork, stderrors.Join(errs...), "all lookup providers failed")
}

func (c *Client) fetchOne(ctx context.Context, ep endpoint) (addr netip.Addr, err error) {
	start := time.Now()
	observability.Fetch().OnFetchStart(ctx, ep.name)
	defer func() {
		observability.Fetch().OnFetchComplete(ctx, ep.name, addrText(addr), time.Since(start), err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.url, nil)
	if err != nil {
		return netip.Addr{}, errors.Wrap(errors.ErrCodeInternal, err, "building %s request", ep.name)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return netip.Addr{}, errors.Wrap(errors.ErrCodeTimeout, err, "%s lookup timed out", ep.name)
		}
		return netip.Addr{}, errors.Wrap(errors.ErrCodeNetwork, err, "%s lookup", ep.name)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return netip.Addr{}, errors.New(errors.ErrCodeBadResponse, "%s returned status %d", ep.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return netip.Addr{}, errors.Wrap(errors.ErrCodeNetwork, err, "reading %s response", ep.name)
	}

	return ParseAddress(string(body))
}

// ParseAddress turns a provider response body into an IPv4 address.
// Surrounding whitespace is tolerated; everything else must be the address.
func ParseAddress(body string) (netip.Addr, error) {
	text := strings.TrimSpace(body)
	addr, err := netip.ParseAddr(text)
	if err != nil {
		return netip.Addr{}, errors.Wrap(errors.ErrCodeInvalidAddress, err, "parsing lookup response %q", text)
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		return netip.Addr{}, errors.New(errors.ErrCodeInvalidAddress, "not an IPv4 address: %s", text)
	}
	return addr, nil
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

func addrText(addr netip.Addr) string {
	if !addr.IsValid() {
		return ""
	}
	return addr.String()
}
