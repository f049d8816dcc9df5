package ui

import (
	"strings"

	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"
)

// Fit hard-wraps content to width so compiler paths and serial lines
// without spaces still fit a viewport. Lines still wider after wrapping are
// cut. A non-positive width returns content unchanged.
func Fit(content string, width int) string {
	if width <= 0 {
		return content
	}
	lines := strings.Split(wrap.String(content, width), "\n")
	for i, line := range lines {
		if ansi.PrintableRuneWidth(line) > width {
			lines[i] = truncate.String(line, uint(width))
		}
	}
	return strings.Join(lines, "\n")
}
