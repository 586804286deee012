package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a packed 0xRRGGBB value.
type Color uint32

// ParseColor accepts "#rrggbb", "0xrrggbb" or "rrggbb".
func ParseColor(s string) (Color, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "#")
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if len(raw) != 6 {
		return 0, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", s, err)
	}
	return Color(v), nil
}

// MustParseColor is ParseColor for compile-time constants.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// RGB returns the channels normalised to [0,1].
func (c Color) RGB() (r, g, b float64) {
	return float64((c>>16)&0xff) / 255, float64((c>>8)&0xff) / 255, float64(c&0xff) / 255
}

// Lerp linearly interpolates between c and other; t is clamped to [0,1].
func (c Color) Lerp(other Color, t float64) (r, g, b float64) {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	r0, g0, b0 := c.RGB()
	r1, g1, b1 := other.RGB()
	return r0 + (r1-r0)*t, g0 + (g1-g0)*t, b0 + (b1-b0)*t
}

func (c Color) String() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xffffff)
}

// MarshalText encodes the color as "#rrggbb".
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler via ParseColor.
func (c *Color) UnmarshalText(text []byte) error {
	v, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
