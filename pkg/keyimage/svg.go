package keyimage

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Canvas colors: white text on a solid black key.
const (
	backgroundFill = "#000000"
	textFill       = "#FFFFFF"
)

// fontFamily is the generic face the deck host resolves; the layout never
// depends on its exact metrics thanks to the central-baseline anchoring.
const fontFamily = "sans-serif"

// buildSVG assembles the canvas document: a full-bleed background rect plus
// one <text> element per line, horizontally centered with anchor=middle and
// vertically positioned with dominant-baseline=central so font metrics never
// enter the layout math. Output is deterministic byte-for-byte; y values are
// fixed to one decimal place.
func buildSVG(lines []textLine) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		Side, Side, Side, Side)
	fmt.Fprintf(&buf, `  <rect width="%d" height="%d" fill="%s"/>`+"\n", Side, Side, backgroundFill)

	for _, ln := range lines {
		fmt.Fprintf(&buf,
			`  <text x="%d" y="%.1f" font-family="%s" font-size="%d" font-weight="bold" fill="%s" text-anchor="middle" dominant-baseline="central">%s</text>`+"\n",
			Side/2, ln.y, fontFamily, ln.size, textFill, escapeText(ln.content))
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// escapeText XML-escapes line content so arbitrary strings (the renderer is
// total over all inputs) keep the document well-formed.
func escapeText(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
