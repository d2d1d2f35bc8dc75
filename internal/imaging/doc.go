// Package imaging provides the raster operations of the stamp pipeline.
//
// It covers cropping, the fill resize that brings a stamp to its canonical
// canvas, background compositing, and file I/O with inspection. All operations
// take standard image.Image values and return new images; inputs are never
// modified.
//
// # Coordinate System
//
// Regions are relative to the image's top-left corner, whatever its
// Bounds().Min:
//   - X increases rightward, Y increases downward
//   - Min is inclusive (top-left), Max is exclusive (bottom-right)
//
// # Fill Resize
//
// FillResize scales a region by max(W/cw, H/ch) so the output canvas is fully
// covered, then center-crops the overshooting dimension. The output is always
// exactly the requested size; nothing is letterboxed.
//
// # Backgrounds
//
// Two compositing helpers exist for transparent stamps:
//   - Flatten pastes a stamp onto a solid color (cream by default) using alpha
//     as the mask, producing an opaque image for detection.
//   - CompositePreview alpha-composites a stamp onto the dark green UI color
//     for preview assets.
//
// # Annotation
//
// Annotate outlines a detected box on a copy of an image and labels it with
// the threshold that produced it, for reviewing detection results by eye.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Regions outside image bounds or with zero area (ErrEmptyRegion)
//   - Non-positive target sizes (ErrInvalidSize)
//   - File I/O and decoding errors
package imaging
