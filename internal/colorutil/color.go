// Package colorutil resolves process color configuration (hex values or
// named colors) into terminal-renderable ANSI sequences and assigns colors
// round-robin to processes that did not request one.
package colorutil

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// namedColors maps the spec's fixed set of basic color names to hex values.
var namedColors = map[string]string{
	"black":   "#000000",
	"red":     "#ff0000",
	"green":   "#00ff00",
	"yellow":  "#ffff00",
	"blue":    "#0000ff",
	"magenta": "#ff00ff",
	"cyan":    "#00ffff",
	"white":   "#ffffff",
	"gray":    "#808080",
	"grey":    "#808080",
	"orange":  "#ffa500",
	"purple":  "#800080",
}

// defaultPalette is the round-robin sequence assigned to processes that
// declared no color of their own.
var defaultPalette = []string{
	"cyan", "yellow", "green", "magenta", "blue", "orange", "purple", "red",
}

// Resolve normalizes a color value (hex, basic name, or list of either) to a
// hex string usable as the seed for ANSI output. A list round-robins across
// siblings using idx. Returns an error if the value is neither a recognized
// name nor a well-formed "#rrggbb" hex string.
func Resolve(value []string, idx int) (string, error) {
	if len(value) == 0 {
		return "", fmt.Errorf("colorutil: empty color value")
	}
	pick := value[idx%len(value)]
	return normalize(pick)
}

func normalize(pick string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(pick))
	if hex, ok := namedColors[lower]; ok {
		return hex, nil
	}
	if isHex(lower) {
		return lower, nil
	}
	return "", fmt.Errorf("colorutil: invalid color %q", pick)
}

func isHex(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// Assign returns the color for process index idx: the explicit value if
// non-empty (round-robin over it by idx), otherwise entry idx of the default
// round-robin palette.
func Assign(explicit []string, idx int) (string, error) {
	if len(explicit) > 0 {
		return Resolve(explicit, idx)
	}
	return normalize(defaultPalette[idx%len(defaultPalette)])
}

// ANSI converts a hex color to an ANSI-escaped prefix appropriate for the
// current terminal's color profile (true color, 256-color, or 16-color,
// downsampling as needed), paired with the reset sequence.
func ANSI(hex string) (prefix, reset string) {
	profile := termenv.ColorProfile()
	c := profile.Color(hex)
	return termenv.CSI + c.Sequence(false) + "m", termenv.CSI + "0m"
}

// Paint wraps s in the ANSI sequence for hex, for use in prefixed log lines.
func Paint(hex, s string) string {
	prefix, reset := ANSI(hex)
	return prefix + s + reset
}
