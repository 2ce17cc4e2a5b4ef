// Package renderer formats lots, sales and positions as markdown documents.
package renderer

import (
	"bytes"
	"io"

	"github.com/etnz/taxlots/date"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// shortID abbreviates a uuid to its first block, enough to tell lots apart on screen.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// term is the holding period label of a lot on a given day.
func term(longTerm bool) string {
	if longTerm {
		return "long"
	}
	return "short"
}

// orDash prints a dash for zero dates.
func orDash(d date.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.String()
}
