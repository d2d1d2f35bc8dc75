package imaging

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

var (
	// ErrInvalidSize is returned when a target size has a non-positive dimension.
	ErrInvalidSize = errors.New("target size must be positive")

	// ErrEmptyRegion is returned when a crop region contains no pixels.
	ErrEmptyRegion = errors.New("crop region is empty")
)

// DefaultSize is the canonical stamp canvas (4:5 postcard ratio).
var DefaultSize = Size{Width: 400, Height: 500}

// Size is a target canvas in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Crop extracts a rectangular region from an image.
//
// The region is relative to the image's top-left corner, with region.Min
// inclusive and region.Max exclusive. The result is a new image anchored at
// (0,0); img is not modified.
func Crop(img image.Image, region image.Rectangle) (*image.NRGBA, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if region.Min.X < 0 || region.Min.Y < 0 || region.Max.X > w || region.Max.Y > h {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (0,0)-(%d,%d)",
			region.Min.X, region.Min.Y, region.Max.X, region.Max.Y, w, h)
	}
	if region.Min.X >= region.Max.X || region.Min.Y >= region.Max.Y {
		return nil, fmt.Errorf("%w: x1 must be < x2, y1 must be < y2", ErrEmptyRegion)
	}

	return imaging.Crop(img, region.Add(bounds.Min)), nil
}

// FillScale returns the uniform scale factor that makes a cw x ch region cover
// size completely: the larger of the two per-axis ratios.
func FillScale(cw, ch int, size Size) float64 {
	scaleW := float64(size.Width) / float64(cw)
	scaleH := float64(size.Height) / float64(ch)
	return math.Max(scaleW, scaleH)
}

// FillDimensions returns the intermediate size a cw x ch region is resampled
// to before center cropping. Both results are at least the target dimension.
func FillDimensions(cw, ch int, size Size) (int, int) {
	scale := FillScale(cw, ch, size)
	newW := int(math.Round(float64(cw) * scale))
	newH := int(math.Round(float64(ch) * scale))
	if newW < size.Width {
		newW = size.Width
	}
	if newH < size.Height {
		newH = size.Height
	}
	return newW, newH
}

// FillResize crops img to box and scales the result to fill size exactly.
//
// Parameters:
//   - img: Source image. It is read, never modified.
//   - box: Region to keep, relative to the image's top-left corner. It is
//     clamped to the image bounds.
//   - size: Output canvas. Both dimensions must be positive.
//
// Returns:
//   - *image.NRGBA: An image of exactly size.Width x size.Height.
//   - error: ErrInvalidSize for a non-positive size, ErrEmptyRegion when the
//     clamped box contains no pixels.
//
// # Algorithm
//
//  1. Crop to box, giving a cw x ch region.
//  2. scale = max(W/cw, H/ch), so one dimension lands exactly on its target
//     and the other overshoots.
//  3. Resample uniformly (Lanczos) to (round(cw*scale), round(ch*scale)).
//     When that equals the crop size no resampling happens.
//  4. Center-crop at offset ((newW-W)/2, (newH-H)/2), integer division.
func FillResize(img image.Image, box image.Rectangle, size Size) (*image.NRGBA, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidSize, size)
	}

	bounds := img.Bounds()
	region := box.Add(bounds.Min).Intersect(bounds)
	if region.Empty() {
		return nil, fmt.Errorf("%w: box %v in %dx%d image", ErrEmptyRegion, box, bounds.Dx(), bounds.Dy())
	}

	cropped := imaging.Crop(img, region)
	cw, ch := region.Dx(), region.Dy()

	newW, newH := FillDimensions(cw, ch, size)
	resized := cropped
	if newW != cw || newH != ch {
		resized = imaging.Resize(cropped, newW, newH, imaging.Lanczos)
	}

	offsetX := (newW - size.Width) / 2
	offsetY := (newH - size.Height) / 2
	return imaging.Crop(resized, image.Rect(offsetX, offsetY, offsetX+size.Width, offsetY+size.Height)), nil
}
