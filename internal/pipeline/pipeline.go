// Package pipeline chains content detection, cropping and the fill resize into
// the two stamp normalization modes.
//
// A Normalizer runs the content-detect mode and always produces an image of
// the configured target size. A Trimmer runs the border-trim mode and only
// crops. Both fall back to the full image when no content box is found; that
// outcome is reported through Result.Cropped, not as an error.
//
// Normalizer and Trimmer hold no mutable state and are safe for concurrent use.
package pipeline

import (
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/ironsheep/stampkit/internal/detection"
	"github.com/ironsheep/stampkit/internal/imaging"
)

// Result describes one processed image.
type Result struct {
	// Image is the output raster, anchored at (0,0).
	Image *image.NRGBA

	// Box is the region of the source that was kept. It covers the whole
	// source when Cropped is false.
	Box detection.BoundingBox

	// Threshold is the threshold that produced Box, or 0 when Cropped is false.
	Threshold int

	// AreaRatio is Box's share of the source area (0.0 to 1.0).
	AreaRatio float64

	// Cropped is false when detection found nothing and the full image was used.
	Cropped bool

	// Source is the size of the input image.
	Source imaging.Size

	// Reduction is the percentage of source pixels removed by the crop.
	Reduction float64
}

// Normalizer detects the content region of a stamp and fill-resizes it to a
// fixed canvas.
type Normalizer struct {
	opts   detection.ContentOptions
	size   imaging.Size
	logger *zap.Logger
}

// NewNormalizer validates opts and size up front so that per-image failures
// can only come from the image itself. A nil logger disables logging.
func NewNormalizer(opts detection.ContentOptions, size imaging.Size, logger *zap.Logger) (*Normalizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !size.Valid() {
		return nil, fmt.Errorf("%w: got %s", imaging.ErrInvalidSize, size)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Thresholds = append([]int(nil), opts.Thresholds...)
	return &Normalizer{opts: opts, size: size, logger: logger}, nil
}

// WithLogger returns a copy of n that logs to logger.
func (n *Normalizer) WithLogger(logger *zap.Logger) *Normalizer {
	c := *n
	c.logger = logger
	return &c
}

// Size returns the output canvas.
func (n *Normalizer) Size() imaging.Size { return n.size }

// Detect runs the content-detect mode only. It returns detection.ErrNoContent
// when no threshold qualifies.
func (n *Normalizer) Detect(img image.Image) (*detection.Detection, error) {
	return detection.DetectContent(img, n.opts)
}

// Normalize detects the content box of img, crops to it and fill-resizes the
// crop to the target size. When no threshold qualifies the whole image is
// resized instead and "no crop applied" is logged.
func (n *Normalizer) Normalize(img image.Image) (*Result, error) {
	src, err := sourceSize(img)
	if err != nil {
		return nil, err
	}

	res := &Result{Source: src}
	det, err := n.Detect(img)
	switch {
	case err == nil:
		res.Box, res.Threshold, res.AreaRatio, res.Cropped = det.Box, det.Threshold, det.AreaRatio, true
		n.logger.Debug("content detected",
			zap.Stringer("box", det.Box),
			zap.Int("threshold", det.Threshold),
			zap.Float64("area_ratio", det.AreaRatio))
	case errors.Is(err, detection.ErrNoContent):
		res.Box, res.AreaRatio = detection.FullBox(src.Width, src.Height), 1
		n.logger.Info("no crop applied",
			zap.Stringer("source", src),
			zap.Ints("thresholds", n.opts.Thresholds))
	default:
		return nil, fmt.Errorf("failed to detect content: %w", err)
	}

	out, err := imaging.FillResize(img, res.Box.Rect(), n.size)
	if err != nil {
		return nil, fmt.Errorf("failed to resize: %w", err)
	}
	res.Image = out
	res.Reduction = reduction(res.AreaRatio)
	return res, nil
}

// Trimmer removes a uniform light border, leaving padding around the content.
type Trimmer struct {
	opts   detection.TrimOptions
	logger *zap.Logger
}

// NewTrimmer validates opts. A nil logger disables logging.
func NewTrimmer(opts detection.TrimOptions, logger *zap.Logger) (*Trimmer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trimmer{opts: opts, logger: logger}, nil
}

// WithLogger returns a copy of t that logs to logger.
func (t *Trimmer) WithLogger(logger *zap.Logger) *Trimmer {
	c := *t
	c.logger = logger
	return &c
}

// Trim crops img to its padded content box. The output keeps the box's size;
// nothing is resized. A uniform image yields an unmodified copy.
func (t *Trimmer) Trim(img image.Image) (*Result, error) {
	src, err := sourceSize(img)
	if err != nil {
		return nil, err
	}

	res := &Result{Source: src}
	det, err := detection.TrimBorder(img, t.opts)
	switch {
	case err == nil:
		res.Box, res.Threshold, res.AreaRatio, res.Cropped = det.Box, det.Threshold, det.AreaRatio, true
	case errors.Is(err, detection.ErrNoContent):
		res.Box, res.AreaRatio = detection.FullBox(src.Width, src.Height), 1
		t.logger.Info("no crop applied",
			zap.Stringer("source", src),
			zap.Int("threshold", t.opts.Threshold))
	default:
		return nil, fmt.Errorf("failed to trim border: %w", err)
	}

	out, err := imaging.Crop(img, res.Box.Rect())
	if err != nil {
		return nil, err
	}
	res.Image = out
	res.Reduction = reduction(res.AreaRatio)

	t.logger.Debug("border trimmed",
		zap.Stringer("box", res.Box),
		zap.Float64("reduction_pct", res.Reduction))
	return res, nil
}

func sourceSize(img image.Image) (imaging.Size, error) {
	if img == nil || img.Bounds().Empty() {
		return imaging.Size{}, detection.ErrEmptyImage
	}
	b := img.Bounds()
	return imaging.Size{Width: b.Dx(), Height: b.Dy()}, nil
}

func reduction(areaRatio float64) float64 {
	return (1 - areaRatio) * 100
}
