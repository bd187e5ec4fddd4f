// color.go provides hex color parsing for the gen-assets tool.

package main

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseHexColor parses "#RRGGBB" or the "#RGB" shorthand into an opaque
// color.NRGBA. The "#" is optional.
func ParseHexColor(hex string) (color.NRGBA, error) {
	digits := strings.TrimPrefix(hex, "#")
	if len(digits) == 3 {
		digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	}
	if len(digits) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: must be 3 or 6 hex digits", hex)
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
