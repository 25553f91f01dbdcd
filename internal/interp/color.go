package interp

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Color is a straight-alpha RGBA color with channels in [0,1].
type Color struct {
	R, G, B, A float64
}

// InterpolateTo blends channel-wise in RGBA space. Channels are clamped so
// overshooting curves cannot produce invalid colors.
func (Color) InterpolateTo(from, to Color, t float64) Color {
	return Color{
		R: clamp01(Lerp(from.R, to.R, t)),
		G: clamp01(Lerp(from.G, to.G, t)),
		B: clamp01(Lerp(from.B, to.B, t)),
		A: clamp01(Lerp(from.A, to.A, t)),
	}
}

// FromRGBA converts an image/color value (premultiplied) into a Color.
func FromRGBA(c color.Color) Color {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{
		R: float64(nc.R) / 255,
		G: float64(nc.G) / 255,
		B: float64(nc.B) / 255,
		A: float64(nc.A) / 255,
	}
}

// NRGBA converts to 8-bit straight alpha.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(c.A)}
}

// Hex renders #rrggbbaa.
func (c Color) Hex() string {
	n := c.NRGBA()
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}

func (c Color) String() string { return c.Hex() }

// ParseColor accepts SVG color names ("cornflowerblue"), #rgb, #rrggbb and #rrggbbaa.
func ParseColor(s string) (Color, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Color{}, fmt.Errorf("color: empty value")
	}
	if !strings.HasPrefix(raw, "#") {
		named, ok := colornames.Map[strings.ToLower(raw)]
		if !ok {
			return Color{}, fmt.Errorf("color: unknown name %q", raw)
		}
		return FromRGBA(named), nil
	}
	if len(raw) == 9 {
		rgb, err := colorful.Hex(raw[:7])
		if err != nil {
			return Color{}, fmt.Errorf("color: %w", err)
		}
		a, err := strconv.ParseUint(raw[7:], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("color: bad alpha in %q: %w", raw, err)
		}
		return Color{R: rgb.R, G: rgb.G, B: rgb.B, A: float64(a) / 255}, nil
	}
	rgb, err := colorful.Hex(raw)
	if err != nil {
		return Color{}, fmt.Errorf("color: %w", err)
	}
	return Color{R: rgb.R, G: rgb.G, B: rgb.B, A: 1}, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}
