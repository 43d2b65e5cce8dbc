// Package keyimage renders short text payloads onto the fixed square canvas
// of a programmable deck key.
//
// The renderer is a pure function of its inputs: given an address string and
// a DisplayMode it produces a self-contained SVG payload, base64-encoded and
// wrapped in a data URI so the deck host can display it directly. There is no
// error path — every string is renderable, worst case as a single oversized
// line — and identical inputs always produce byte-identical output, so the
// package is safe to call from any goroutine without synchronization.
//
// # Layout
//
// A well-formed dotted-quad address can be laid out across 1, 2, or 4 lines:
//
//	RenderAddress("203.0.113.77", keyimage.ModeSplit)
//	// line 1: "203.0"
//	// line 2: "113.77"
//
// Anything that does not split into exactly four dot-separated segments
// (the "Loading..." placeholder, the "Error" sentinel, IPv6 text) is always
// rendered as one centered line regardless of the requested mode.
package keyimage

import (
	"encoding/base64"
	"strconv"
)

// Side is the canvas edge length in SVG user units. It matches the key
// bitmap resolution of the target deck hardware at high-density rendering;
// ports targeting different hardware should treat it as the one knob.
const Side = 144

// DataURIPrefix marks an inline base64 SVG image, the form the deck host
// accepts for key images.
const DataURIPrefix = "data:image/svg+xml;base64,"

// DisplayMode is the user-chosen number of text lines (1, 2, or 4) used to
// lay out an address on the key.
type DisplayMode int

// The three layouts a dotted-quad address can be rendered in.
const (
	ModeSingle DisplayMode = 1 // full address on one line
	ModeSplit  DisplayMode = 2 // two segments per line
	ModeQuad   DisplayMode = 4 // one segment per line
)

// ParseDisplayMode maps a raw line-count preference onto a DisplayMode.
// Anything outside {1, 2, 4} falls back to ModeSingle so an unrecognized
// preference can never reach the layout code.
func ParseDisplayMode(lines int) DisplayMode {
	switch DisplayMode(lines) {
	case ModeSingle, ModeSplit, ModeQuad:
		return DisplayMode(lines)
	default:
		return ModeSingle
	}
}

// Valid reports whether m is one of the three defined modes.
func (m DisplayMode) Valid() bool {
	return m == ModeSingle || m == ModeSplit || m == ModeQuad
}

// Lines returns the line count as a plain int, for settings payloads.
func (m DisplayMode) Lines() int { return int(m) }

// String returns the line count in decimal, for flags and logs.
func (m DisplayMode) String() string { return strconv.Itoa(int(m)) }

// Image is a rendered key image. It is immutable once produced and has no
// identity beyond its byte content.
type Image struct {
	svg []byte
}

// SVG returns the raw SVG document.
func (im Image) SVG() []byte { return im.svg }

// DataURI returns the payload in the form the deck host displays directly:
// the SVG bytes, base64-encoded, behind DataURIPrefix.
func (im Image) DataURI() string {
	return DataURIPrefix + base64.StdEncoding.EncodeToString(im.svg)
}

// RenderAddress renders an address string using the requested mode.
//
// The address is split on "."; unless that yields exactly four segments the
// mode is ignored and the string is drawn as a single centered line —
// malformed input is never split across lines. With four segments, mode 1
// draws the full string, mode 2 draws "seg0.seg1" over "seg2.seg3", and
// mode 4 draws one segment per line in original order.
func RenderAddress(address string, mode DisplayMode) Image {
	return Image{svg: buildSVG(layoutAddress(address, mode))}
}

// RenderStatus renders a short confirmation or failure word ("Copied!",
// "Error") as a single centered line at a fixed size. Input length does not
// change the layout shape: status words are never split.
func RenderStatus(word string) Image {
	return Image{svg: buildSVG([]textLine{{content: word, size: statusFontSize, y: Side / 2}})}
}
