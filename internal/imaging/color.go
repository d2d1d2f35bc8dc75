package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Background colors used by the stamp tooling.
var (
	// FlattenColor is the cream background transparent stamps are flattened onto.
	FlattenColor = color.NRGBA{R: 245, G: 235, B: 220, A: 255}

	// PreviewColor is the dark green UI background used for preview stamps.
	PreviewColor = color.NRGBA{R: 0, G: 26, B: 16, A: 255}
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a sampled pixel in several representations.
type ColorResult struct {
	Hex   string   `json:"hex"`   // Hex format "#RRGGBB" (no alpha)
	RGB   RGBColor `json:"rgb"`   // RGB components, non-premultiplied
	Alpha uint8    `json:"alpha"` // Opacity (0 = transparent, 255 = opaque)
	HSL   HSLColor `json:"hsl"`   // HSL representation
}

// SampleColor returns the color at (x, y), relative to the image's top-left
// corner.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	bounds := img.Bounds()
	if x < 0 || x >= bounds.Dx() || y < 0 || y >= bounds.Dy() {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
	h, s, l := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.Hsl()

	return &ColorResult{
		Hex:   HexString(c),
		RGB:   RGBColor{R: c.R, G: c.G, B: c.B},
		Alpha: c.A,
		HSL:   HSLColor{H: int(h), S: int(s * 100), L: int(l * 100)},
	}, nil
}

// ParseHexColor parses "#RRGGBB" or "#RGB" (the leading '#' is optional) into
// an opaque color.
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 4 && len(s) != 7 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: want #RGB or #RRGGBB", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// HexString formats a color as "#RRGGBB", ignoring alpha.
func HexString(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02X%02X%02X", n.R, n.G, n.B)
}

// HasTransparency reports whether any pixel of img is less than fully opaque.
func HasTransparency(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return ComputeAlphaStats(img).Transparent > 0
}

// Flatten pastes img onto a solid bg canvas using img's alpha as the mask.
// The result is fully opaque and the same size as img.
func Flatten(img image.Image, bg color.Color) *image.NRGBA {
	bounds := img.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), bg)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

// CompositePreview alpha-composites img over a solid bg canvas of the same size.
func CompositePreview(img image.Image, bg color.Color) *image.RGBA {
	bounds := img.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), bg)
	return blend.Normal(canvas, imaging.Clone(img))
}

// MeanLightness returns the average CIE L* of all non-transparent pixels,
// from 0 (black) to 1 (white). It returns 0 when every pixel is transparent.
func MeanLightness(img image.Image) float64 {
	bounds := img.Bounds()
	var sum float64
	n := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			l, _, _ := c.Lab()
			sum += l
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
