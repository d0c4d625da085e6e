package colorharmony

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	ErrInvalidColorFormat    = errors.New("invalid color format")
	ErrInvalidColorFrequency = errors.New("invalid color frequency")
)

var hexColorRegex = regexp.MustCompile("^[0-9a-fA-F]{6}$")

// HSL holds hue in degrees [0,360) and saturation/lightness in [0,100].
type HSL struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	L float64 `json:"l"`
}

func normalizeHex(hex string) (string, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if !hexColorRegex.MatchString(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidColorFormat, hex)
	}
	return "#" + strings.ToLower(raw), nil
}

// HexToHSL parses "#RRGGBB" or "RRGGBB" (any case).
func HexToHSL(hex string) (HSL, error) {
	normalized, err := normalizeHex(hex)
	if err != nil {
		return HSL{}, err
	}
	c, err := colorful.Hex(normalized)
	if err != nil {
		return HSL{}, fmt.Errorf("%w: %q: %v", ErrInvalidColorFormat, hex, err)
	}
	h, s, l := c.Hsl()
	if h >= 360 {
		h -= 360
	}
	return HSL{H: h, S: s * 100, L: l * 100}, nil
}

// AngularDistance is the shortest distance between two hues on the colour wheel.
func AngularDistance(h1, h2 float64) float64 {
	diff := math.Abs(h1 - h2)
	return math.Min(diff, 360-diff)
}

// HexFromRGB formats channel values as lower-case "#rrggbb".
func HexFromRGB(r, g, b uint8) string {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hex()
}
