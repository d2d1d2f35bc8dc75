package detection

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

var (
	// ErrNoContent is returned when no threshold yields an acceptable content box.
	// It is not fatal: callers fall back to the full image.
	ErrNoContent = errors.New("no content region found")

	// ErrEmptyImage is returned for images with zero width or height.
	ErrEmptyImage = errors.New("image has zero width or height")

	// ErrInvalidOptions is returned when detection options are out of range.
	ErrInvalidOptions = errors.New("invalid detection options")
)

// Default values used by the two detection modes.
const (
	DefaultMinAreaRatio  = 0.40
	DefaultMaxAreaRatio  = 0.95
	DefaultTrimThreshold = 240
	DefaultTrimPadding   = 10
)

// DefaultThresholds is the descending threshold sequence tried by DetectContent.
var DefaultThresholds = []int{250, 240, 230, 220, 210}

// BoundingBox is an axis-aligned box in pixel coordinates relative to the
// image's top-left corner.
//
// The coordinate convention matches image.Rectangle:
//   - (Left, Top) is inclusive
//   - (Right, Bottom) is exclusive
//   - Width = Right - Left, Height = Bottom - Top
type BoundingBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// FullBox returns the box covering an entire width x height image.
func FullBox(width, height int) BoundingBox {
	return BoundingBox{Left: 0, Top: 0, Right: width, Bottom: height}
}

// Width returns the horizontal extent of the box.
func (b BoundingBox) Width() int { return b.Right - b.Left }

// Height returns the vertical extent of the box.
func (b BoundingBox) Height() int { return b.Bottom - b.Top }

// Empty reports whether the box contains no pixels.
func (b BoundingBox) Empty() bool {
	return b.Left >= b.Right || b.Top >= b.Bottom
}

// Area returns the number of pixels covered by the box, or 0 when empty.
func (b BoundingBox) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width() * b.Height()
}

// AreaRatio returns the fraction of a width x height image covered by the box.
func (b BoundingBox) AreaRatio(width, height int) float64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	return float64(b.Area()) / float64(width*height)
}

// Rect converts the box to an image.Rectangle with the same coordinates.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rectangle{
		Min: image.Point{X: b.Left, Y: b.Top},
		Max: image.Point{X: b.Right, Y: b.Bottom},
	}
}

// Pad grows the box by n pixels on every side, clamped to [0,width]x[0,height].
// Negative n is treated as zero.
func (b BoundingBox) Pad(n, width, height int) BoundingBox {
	if n < 0 {
		n = 0
	}
	return BoundingBox{
		Left:   clamp(b.Left-n, 0, width),
		Top:    clamp(b.Top-n, 0, height),
		Right:  clamp(b.Right+n, 0, width),
		Bottom: clamp(b.Bottom+n, 0, height),
	}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.Left, b.Top, b.Right, b.Bottom)
}

// Detection is an accepted content box together with the threshold that
// produced it.
type Detection struct {
	// Box is the accepted content region.
	Box BoundingBox `json:"box"`

	// Threshold is the brightness threshold that produced Box.
	Threshold int `json:"threshold"`

	// AreaRatio is the fraction of the image covered by Box (0.0 to 1.0).
	AreaRatio float64 `json:"area_ratio"`
}

// ContentOptions configures the multi-threshold content-detect mode.
type ContentOptions struct {
	// Thresholds are tried in order; the first acceptable box wins.
	// Callers normally pass a descending sequence.
	Thresholds []int

	// MinAreaRatio and MaxAreaRatio bound the accepted box area as a fraction
	// of the image area. Both bounds are inclusive.
	MinAreaRatio float64
	MaxAreaRatio float64
}

// DefaultContentOptions returns thresholds 250..210 and the [0.40, 0.95] band.
func DefaultContentOptions() ContentOptions {
	thresholds := make([]int, len(DefaultThresholds))
	copy(thresholds, DefaultThresholds)
	return ContentOptions{
		Thresholds:   thresholds,
		MinAreaRatio: DefaultMinAreaRatio,
		MaxAreaRatio: DefaultMaxAreaRatio,
	}
}

// Validate checks that the options describe a usable search.
func (o ContentOptions) Validate() error {
	if len(o.Thresholds) == 0 {
		return fmt.Errorf("%w: at least one threshold is required", ErrInvalidOptions)
	}
	for _, t := range o.Thresholds {
		if err := validateThreshold(t); err != nil {
			return err
		}
	}
	if o.MinAreaRatio < 0 || o.MaxAreaRatio > 1 {
		return fmt.Errorf("%w: area band [%.2f, %.2f] outside [0, 1]",
			ErrInvalidOptions, o.MinAreaRatio, o.MaxAreaRatio)
	}
	if o.MinAreaRatio > o.MaxAreaRatio {
		return fmt.Errorf("%w: min area ratio %.2f exceeds max %.2f",
			ErrInvalidOptions, o.MinAreaRatio, o.MaxAreaRatio)
	}
	return nil
}

// TrimOptions configures the single-threshold border-trim mode.
type TrimOptions struct {
	// Threshold separates background (every channel >= Threshold) from content.
	Threshold int

	// Padding is added on every side of the content box, clamped to the image.
	Padding int
}

// DefaultTrimOptions returns threshold 240 with 10 pixels of padding.
func DefaultTrimOptions() TrimOptions {
	return TrimOptions{Threshold: DefaultTrimThreshold, Padding: DefaultTrimPadding}
}

// Validate checks the threshold range and padding sign.
func (o TrimOptions) Validate() error {
	if err := validateThreshold(o.Threshold); err != nil {
		return err
	}
	if o.Padding < 0 {
		return fmt.Errorf("%w: padding %d is negative", ErrInvalidOptions, o.Padding)
	}
	return nil
}

// DetectContent finds the content region of an image on a light background.
//
// Parameters:
//   - img: Source image. It is read, never modified or retained.
//   - opts: Threshold sequence and accepted area band.
//
// Returns:
//   - *Detection: The first box whose area ratio lies inside the band.
//   - error: ErrNoContent if no threshold qualifies, ErrEmptyImage for a
//     zero-size image, ErrInvalidOptions for bad options.
//
// # Algorithm
//
// For each threshold in order:
//
//  1. Start from the empty box (left=width, top=height, right=0, bottom=0).
//  2. Expand it for every pixel with any RGB channel strictly below the threshold.
//  3. Skip the threshold if no pixel, or every pixel, was content.
//  4. Accept the box if MinAreaRatio <= area/(width*height) <= MaxAreaRatio.
//
// Thresholds are tried from the most permissive (highest) down. The band
// rejects near-full boxes inflated by faint background specks as well as
// near-empty ones.
func DetectContent(img image.Image, opts ContentOptions) (*Detection, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	px, err := newPixelGrid(img)
	if err != nil {
		return nil, err
	}

	for _, threshold := range opts.Thresholds {
		box, ok := px.contentBox(threshold)
		if !ok {
			continue
		}
		ratio := box.AreaRatio(px.width, px.height)
		if ratio >= opts.MinAreaRatio && ratio <= opts.MaxAreaRatio {
			return &Detection{Box: box, Threshold: threshold, AreaRatio: ratio}, nil
		}
	}

	return nil, ErrNoContent
}

// TrimBorder finds the box that remains after trimming a uniform light border.
//
// Unlike DetectContent there is no area band: any content found at
// opts.Threshold is accepted, then grown by opts.Padding on all four sides and
// clamped to the image bounds. A uniform image returns ErrNoContent.
func TrimBorder(img image.Image, opts TrimOptions) (*Detection, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	px, err := newPixelGrid(img)
	if err != nil {
		return nil, err
	}

	box, ok := px.contentBox(opts.Threshold)
	if !ok {
		return nil, ErrNoContent
	}
	box = box.Pad(opts.Padding, px.width, px.height)

	return &Detection{
		Box:       box,
		Threshold: opts.Threshold,
		AreaRatio: box.AreaRatio(px.width, px.height),
	}, nil
}

// pixelGrid is a read-only, origin-anchored NRGBA view of the source image.
type pixelGrid struct {
	pix    []uint8
	stride int
	width  int
	height int
}

func newPixelGrid(img image.Image) (*pixelGrid, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, ErrEmptyImage
	}

	// Clone converts to non-premultiplied NRGBA anchored at (0,0), so channel
	// values are read as stored regardless of the source color model.
	src := imaging.Clone(img)
	return &pixelGrid{
		pix:    src.Pix,
		stride: src.Stride,
		width:  bounds.Dx(),
		height: bounds.Dy(),
	}, nil
}

// contentBox returns the minimal box around all pixels with any channel below
// threshold. ok is false when no pixel or every pixel qualifies, since neither
// case separates a subject from its background.
func (g *pixelGrid) contentBox(threshold int) (box BoundingBox, ok bool) {
	box = BoundingBox{Left: g.width, Top: g.height}
	count := 0

	for y := 0; y < g.height; y++ {
		row := g.pix[y*g.stride : y*g.stride+g.width*4]
		for x := 0; x < g.width; x++ {
			i := x * 4
			if int(row[i]) >= threshold && int(row[i+1]) >= threshold && int(row[i+2]) >= threshold {
				continue
			}
			count++
			if x < box.Left {
				box.Left = x
			}
			if x+1 > box.Right {
				box.Right = x + 1
			}
			if y < box.Top {
				box.Top = y
			}
			if y+1 > box.Bottom {
				box.Bottom = y + 1
			}
		}
	}

	if count == 0 || count == g.width*g.height {
		return BoundingBox{}, false
	}
	return box, true
}

func validateThreshold(t int) error {
	if t < 0 || t > 255 {
		return fmt.Errorf("%w: threshold %d outside [0, 255]", ErrInvalidOptions, t)
	}
	return nil
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
