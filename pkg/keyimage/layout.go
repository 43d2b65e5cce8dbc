package keyimage

import "strings"

// Typography constants. The single-line step thresholds were tuned by eye
// against the 144-unit canvas and the host's sans-serif face; they are
// preserved literally because visual parity matters more than a derivation.
const (
	splitFontSize    = 28  // two-line mode
	splitLineSpacing = 1.3 // line height as a multiple of font size

	quadFontSize    = 30 // four-line mode
	quadLineSpacing = 1.1

	statusFontSize = 26 // fixed size for status words

	// baselineNudge shifts a stacked block down by a fraction of the font
	// size, compensating for the central baseline sitting slightly above a
	// true cap-height center.
	baselineNudge = 0.35
)

// singleLineSteps maps string length to font size for single-line layout.
// Checked in order; lengths past the last step use singleLineMinSize.
var singleLineSteps = []struct {
	maxLen int
	size   int
}{
	{maxLen: 7, size: 26},
	{maxLen: 11, size: 22},
	{maxLen: 13, size: 19},
}

const singleLineMinSize = 17

// textLine is one positioned line of key text. y is the vertical center of
// the line under the central-baseline anchoring scheme.
type textLine struct {
	content string
	size    int
	y       float64
}

// layoutAddress computes the positioned lines for an address in the given
// mode. A string that does not split into exactly four non-empty
// dot-separated segments collapses to the single-line layout no matter the
// mode, as does any mode outside the defined set. The non-empty check keeps
// placeholder text like "Loading..." (which splits into four parts, three of
// them empty) on one line.
func layoutAddress(address string, mode DisplayMode) []textLine {
	segs := strings.Split(address, ".")
	if len(segs) != 4 || hasEmptySegment(segs) {
		return singleLine(address)
	}

	switch mode {
	case ModeSplit:
		return stackLines([]string{segs[0] + "." + segs[1], segs[2] + "." + segs[3]}, splitFontSize, splitLineSpacing)
	case ModeQuad:
		return stackLines(segs, quadFontSize, quadLineSpacing)
	default:
		return singleLine(address)
	}
}

func hasEmptySegment(segs []string) bool {
	for _, s := range segs {
		if s == "" {
			return true
		}
	}
	return false
}

// singleLine centers one line on the canvas at a size stepped down from the
// string length.
func singleLine(text string) []textLine {
	return []textLine{{content: text, size: singleLineFontSize(len(text)), y: Side / 2}}
}

// singleLineFontSize is the monotonic step function from string length to
// font size: ≤7→26, ≤11→22, ≤13→19, else 17.
func singleLineFontSize(length int) int {
	for _, step := range singleLineSteps {
		if length <= step.maxLen {
			return step.size
		}
	}
	return singleLineMinSize
}

// stackLines vertically centers a block of equally sized lines. Line i sits
// at startY + lineHeight×(i+0.5), where startY places the whole block in the
// middle of the canvas plus the baseline nudge.
func stackLines(lines []string, size int, spacing float64) []textLine {
	lineHeight := float64(size) * spacing
	totalHeight := lineHeight * float64(len(lines))
	startY := (Side-totalHeight)/2 + float64(size)*baselineNudge

	out := make([]textLine, len(lines))
	for i, s := range lines {
		out[i] = textLine{
			content: s,
			size:    size,
			y:       startY + lineHeight*(float64(i)+0.5),
		}
	}
	return out
}
