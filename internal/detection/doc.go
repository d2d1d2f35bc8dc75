// Package detection locates the content region of stamp images.
//
// Stamp artwork sits on a near-uniform light background. A pixel is treated as
// content when any of its red, green or blue channels is strictly darker than a
// brightness threshold; the detector returns the minimal axis-aligned box that
// contains every content pixel.
//
// # Modes
//
// Two calling conventions share the same scan:
//
//   - Content-detect (DetectContent): tries a descending threshold sequence
//     (250, 240, 230, 220, 210 by default) and accepts the first box covering
//     between 40% and 95% of the image. No padding.
//   - Border-trim (TrimBorder): one fixed threshold (240 by default), no area
//     check, and a symmetric padding (10 pixels by default) clamped to the
//     image bounds.
//
// The modes keep separate acceptance rules and padding policies.
//
// # Coordinate System
//
// Boxes are relative to the image's top-left corner, whatever its Bounds().Min:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward, Y increases downward
//   - Left/Top inclusive, Right/Bottom exclusive
//
// # Alpha
//
// Channels are read non-premultiplied and alpha is ignored. Transparent stamps
// should be flattened onto a background color before detection.
//
// # Thread Safety
//
// Detection functions keep no state and never modify their input, so they can
// run concurrently on different images.
package detection
