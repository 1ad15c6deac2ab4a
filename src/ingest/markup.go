package ingest

import (
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"
)

// MarkupGenerator picks between a plain image reference and a responsive
// shortcode. It holds no state beyond its thresholds.
type MarkupGenerator struct {
	// Breakpoints in any order; treated widest first
	Breakpoints []int

	// PlainExtensions are compared case-insensitively
	PlainExtensions []string

	// Shortcode is the Hugo shortcode name, e.g. "img"
	Shortcode string
}

// Generate returns the markup for publicPath. dims is nil when the image
// size is unknown.
func (g MarkupGenerator) Generate(publicPath, extension string, dims *Dimensions, insertAsHTML bool) string {
	if g.isPlainExtension(extension) || dims == nil {
		return plainReference(publicPath, insertAsHTML)
	}

	widths := g.Widths(dims.Width)
	if len(widths) == 0 {
		return plainReference(publicPath, insertAsHTML)
	}

	return g.shortcode(publicPath, widths)
}

// Widths returns the candidate widths for an image width: every
// breakpoint from the widest one strictly below width downwards.
// A width at or below the smallest breakpoint yields none.
func (g MarkupGenerator) Widths(width int) []int {
	breakpoints := slices.Clone(g.Breakpoints)
	slices.SortFunc(breakpoints, func(a, b int) int { return b - a })

	for i, bp := range breakpoints {
		if width > bp {
			return breakpoints[i:]
		}
	}
	return nil
}

func (g MarkupGenerator) isPlainExtension(extension string) bool {
	for _, ext := range g.PlainExtensions {
		if strings.EqualFold(ext, extension) {
			return true
		}
	}
	return false
}

func (g MarkupGenerator) shortcode(publicPath string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strconv.Itoa(w)
	}

	name := g.Shortcode
	if name == "" {
		name = DefaultShortcode
	}

	return fmt.Sprintf(`{{< %s src="%s" widths="%s" >}}`, name, publicPath, strings.Join(parts, ","))
}

func plainReference(publicPath string, insertAsHTML bool) string {
	if insertAsHTML {
		return fmt.Sprintf(`<img src="%s" alt="">`, html.EscapeString(publicPath))
	}
	return fmt.Sprintf("![](%s)", publicPath)
}
