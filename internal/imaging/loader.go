package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Load opens and decodes an image file.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP. The returned format
// is the decoder name reported by image.Decode (e.g. "png").
func Load(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// SavePNG encodes img as PNG at path.
//
// The image is written to a temporary file in the same directory and renamed
// into place, so an existing file is never left half-written. The result keeps
// the permissions of the file it replaces; a new file gets 0644.
func SavePNG(path string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := imaging.Encode(tmp, img, imaging.PNG); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace image: %w", err)
	}
	return nil
}

// AlphaStats summarizes the alpha channel of an image.
type AlphaStats struct {
	// Min and Max are the lowest and highest alpha values found (0-255).
	Min uint8 `json:"min"`
	Max uint8 `json:"max"`

	// Transparent counts pixels with alpha below 255.
	Transparent int `json:"transparent"`

	// Total is the number of pixels examined.
	Total int `json:"total"`

	// Percent is Transparent / Total * 100.
	Percent float64 `json:"percent"`
}

// ComputeAlphaStats scans every pixel of img and reports its alpha range and
// the share of pixels that are not fully opaque.
func ComputeAlphaStats(img image.Image) AlphaStats {
	bounds := img.Bounds()
	stats := AlphaStats{Min: 255, Max: 0}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			a8 := uint8(a >> 8)
			if a8 < stats.Min {
				stats.Min = a8
			}
			if a8 > stats.Max {
				stats.Max = a8
			}
			if a8 < 255 {
				stats.Transparent++
			}
			stats.Total++
		}
	}

	if stats.Total == 0 {
		return AlphaStats{}
	}
	stats.Percent = float64(stats.Transparent) / float64(stats.Total) * 100
	return stats
}

// ImageInfo contains metadata about an image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder name: "png", "jpeg", "gif", "bmp", "tiff" or "webp".
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the color model can carry transparency.
	HasAlpha bool `json:"has_alpha"`

	// Alpha holds the alpha channel statistics.
	Alpha AlphaStats `json:"alpha"`

	// Corner is the color at the top-left pixel, usually the background.
	Corner ColorResult `json:"corner"`

	// MeanLightness is the average CIE L* (0-1) of non-transparent pixels.
	MeanLightness float64 `json:"mean_lightness"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// Inspect loads an image and reports its dimensions, format, alpha usage and
// background color.
//
// # Color Depth Detection
//
// Color depth is determined by the Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
//
// Paletted images report HasAlpha when any palette entry is not fully opaque.
func Inspect(path string) (*ImageInfo, error) {
	img, format, err := Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	info, err := Describe(img)
	if err != nil {
		return nil, err
	}
	info.Format = format
	info.FileSizeBytes = stat.Size()
	return info, nil
}

// Describe reports the in-memory properties of img. Format and FileSizeBytes
// are left empty.
func Describe(img image.Image) (*ImageInfo, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("image has zero width or height")
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch m := img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	case *image.Paletted:
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a < 0xffff {
				hasAlpha = true
				break
			}
		}
	}

	corner, err := SampleColor(img, 0, 0)
	if err != nil {
		return nil, err
	}

	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		Alpha:         ComputeAlphaStats(img),
		Corner:        *corner,
		MeanLightness: MeanLightness(img),
	}, nil
}
