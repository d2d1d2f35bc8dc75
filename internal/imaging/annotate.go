package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// BoxColor is the outline color used for detection overlays.
var BoxColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}

const boxStroke = 2

// Annotate returns a copy of img with region outlined in c. When label is
// non-empty it is drawn just inside the region's top-left corner using a small
// built-in font that covers digits, ',' and '.'.
//
// The region is relative to the image's top-left corner and is clipped to the
// image; an empty or fully outside region leaves the copy unmarked.
func Annotate(img image.Image, region image.Rectangle, c color.Color, label string) *image.NRGBA {
	out := imaging.Clone(img)
	r := region.Canon().Intersect(out.Bounds())
	if r.Empty() {
		return out
	}

	// Horizontal edges
	for x := r.Min.X; x < r.Max.X; x++ {
		for t := 0; t < boxStroke; t++ {
			out.Set(x, r.Min.Y+t, c)
			out.Set(x, r.Max.Y-1-t, c)
		}
	}
	// Vertical edges
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for t := 0; t < boxStroke; t++ {
			out.Set(r.Min.X+t, y, c)
			out.Set(r.Max.X-1-t, y, c)
		}
	}

	if label != "" {
		drawLabel(out, r.Min.X+boxStroke+1, r.Min.Y+boxStroke+1, label,
			color.NRGBA{255, 255, 255, 255}, color.NRGBA{0, 0, 0, 180})
	}
	return out
}

// 3x5 glyphs for the characters used in detection labels.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	',': {"000", "000", "000", "010", "010"},
	'.': {"000", "000", "000", "000", "010"},
}

// drawLabel paints text at (x, y) on a bg plate. Unknown runes advance the
// cursor without drawing. Pixels outside img are ignored.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	const charWidth, labelHeight = 4, 7
	labelWidth := len(text) * charWidth

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			img.SetNRGBA(x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		if glyph, ok := glyphs[ch]; ok {
			for row, line := range glyph {
				for col, pixel := range line {
					if pixel == '1' {
						img.SetNRGBA(cx+col, y+row, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
