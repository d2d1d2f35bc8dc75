package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"
)

// rect builds a Rectangle without canonicalizing it, so inverted regions
// survive to the function under test.
func rect(x1, y1, x2, y2 int) image.Rectangle {
	return image.Rectangle{Min: image.Pt(x1, y1), Max: image.Pt(x2, y2)}
}

// createStripeImage creates an image split into three equal stripes
// (red, green, blue), vertical when horizontal is true.
func createStripeImage(width, height int, horizontal bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	stripes := []color.RGBA{
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y * 3 / height
			if horizontal {
				idx = x * 3 / width
			}
			img.Set(x, y, stripes[idx])
		}
	}
	return img
}

func TestCrop(t *testing.T) {
	img := createPatternImage(100, 100)

	result, err := Crop(img, image.Rect(0, 0, 50, 50))
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}

	if result.Bounds().Dx() != 50 || result.Bounds().Dy() != 50 {
		t.Errorf("dimensions: got %dx%d, want 50x50", result.Bounds().Dx(), result.Bounds().Dy())
	}
	if result.Bounds().Min != (image.Point{}) {
		t.Errorf("origin: got %v, want (0,0)", result.Bounds().Min)
	}
}

func TestCrop_OutOfBounds(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"x1 negative", -1, 0, 50, 50},
		{"y1 negative", 0, -1, 50, 50},
		{"x2 too large", 0, 0, 101, 50},
		{"y2 too large", 0, 0, 50, 101},
		{"all out of bounds", -1, -1, 200, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Crop(img, rect(tt.x1, tt.y1, tt.x2, tt.y2))
			if err == nil {
				t.Error("Crop should fail for out-of-bounds coordinates")
			}
		})
	}
}

func TestCrop_InvalidRegion(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"x1 >= x2", 50, 0, 50, 50},
		{"x1 > x2", 60, 0, 50, 50},
		{"y1 >= y2", 0, 50, 50, 50},
		{"y1 > y2", 0, 60, 50, 50},
		{"zero area", 50, 50, 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Crop(img, rect(tt.x1, tt.y1, tt.x2, tt.y2))
			if !errors.Is(err, ErrEmptyRegion) {
				t.Errorf("got %v, want ErrEmptyRegion", err)
			}
		})
	}
}

func TestCrop_VerifyContent(t *testing.T) {
	img := createPatternImage(100, 100)

	tests := []struct {
		name    string
		region  image.Rectangle
		wantHex string
	}{
		{"top-left", image.Rect(0, 0, 50, 50), "#FF0000"},
		{"top-right", image.Rect(50, 0, 100, 50), "#00FF00"},
		{"bottom-left", image.Rect(0, 50, 50, 100), "#0000FF"},
		{"bottom-right", image.Rect(50, 50, 100, 100), "#FFFFFF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Crop(img, tt.region)
			if err != nil {
				t.Fatalf("Crop failed: %v", err)
			}
			if got := HexString(result.At(25, 25)); got != tt.wantHex {
				t.Errorf("color: got %s, want %s", got, tt.wantHex)
			}
		})
	}
}

func TestCrop_SubImage(t *testing.T) {
	img := createPatternImage(100, 100)
	sub := img.SubImage(image.Rect(50, 50, 100, 100))

	result, err := Crop(sub, image.Rect(0, 0, 10, 10))
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if got := HexString(result.At(5, 5)); got != "#FFFFFF" {
		t.Errorf("color: got %s, want #FFFFFF (region is relative to sub-image)", got)
	}
}

func TestFillResize_Idempotent(t *testing.T) {
	img := createPatternImage(40, 50)

	result, err := FillResize(img, img.Bounds(), Size{Width: 40, Height: 50})
	if err != nil {
		t.Fatalf("FillResize failed: %v", err)
	}

	if result.Bounds().Dx() != 40 || result.Bounds().Dy() != 50 {
		t.Fatalf("dimensions: got %dx%d, want 40x50", result.Bounds().Dx(), result.Bounds().Dy())
	}
	for y := 0; y < 50; y++ {
		for x := 0; x < 40; x++ {
			r1, g1, b1, a1 := img.At(x, y).RGBA()
			r2, g2, b2, a2 := result.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				t.Fatalf("pixel (%d,%d): got %v, want %v", x, y, result.At(x, y), img.At(x, y))
			}
		}
	}
}

func TestFillResize_ExactSize(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		target Size
	}{
		{"square to portrait", 1000, 1000, Size{400, 500}},
		{"wide", 300, 100, Size{400, 500}},
		{"tall", 100, 300, Size{400, 500}},
		{"single pixel", 1, 1, Size{400, 500}},
		{"almost target", 401, 499, Size{400, 500}},
		{"very tall", 20, 100, Size{400, 500}},
		{"exact multiple", 800, 1000, Size{400, 500}},
		{"odd target", 250, 130, Size{37, 91}},
		{"landscape target", 120, 360, Size{300, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createInMemoryImage(tt.w, tt.h, color.RGBA{10, 20, 30, 255})

			result, err := FillResize(img, img.Bounds(), tt.target)
			if err != nil {
				t.Fatalf("FillResize failed: %v", err)
			}
			if result.Bounds().Dx() != tt.target.Width || result.Bounds().Dy() != tt.target.Height {
				t.Errorf("dimensions: got %dx%d, want %s",
					result.Bounds().Dx(), result.Bounds().Dy(), tt.target)
			}
		})
	}
}

func TestFillDimensions_ScaleDirection(t *testing.T) {
	targets := []Size{{400, 500}, {500, 400}, {1, 1}, {37, 91}, {100, 100}}

	for _, target := range targets {
		for cw := 1; cw <= 120; cw += 7 {
			for ch := 1; ch <= 120; ch += 5 {
				newW, newH := FillDimensions(cw, ch, target)
				if newW < target.Width || newH < target.Height {
					t.Fatalf("%dx%d -> %s: got %dx%d, want both >= target", cw, ch, target, newW, newH)
				}
				if newW != target.Width && newH != target.Height {
					t.Fatalf("%dx%d -> %s: got %dx%d, want one dimension exactly on target",
						cw, ch, target, newW, newH)
				}
			}
		}
	}
}

func TestFillScale(t *testing.T) {
	tests := []struct {
		name   string
		cw, ch int
		target Size
		want   float64
	}{
		{"width limited", 200, 100, Size{400, 100}, 2},
		{"height limited", 100, 100, Size{400, 500}, 5},
		{"downscale", 800, 1000, Size{400, 500}, 0.5},
		{"identity", 400, 500, Size{400, 500}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FillScale(tt.cw, tt.ch, tt.target); got != tt.want {
				t.Errorf("got %f, want %f", got, tt.want)
			}
		})
	}
}

func TestFillResize_CenterCrop(t *testing.T) {
	tests := []struct {
		name       string
		horizontal bool
		w, h       int
	}{
		{"wide trims left and right", true, 300, 100},
		{"tall trims top and bottom", false, 100, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createStripeImage(tt.w, tt.h, tt.horizontal)

			result, err := FillResize(img, img.Bounds(), Size{Width: 100, Height: 100})
			if err != nil {
				t.Fatalf("FillResize failed: %v", err)
			}

			// Only the middle (green) stripe survives the center crop.
			for _, p := range []image.Point{{0, 0}, {50, 50}, {99, 99}, {0, 99}, {99, 0}} {
				if got := HexString(result.At(p.X, p.Y)); got != "#00FF00" {
					t.Errorf("pixel %v: got %s, want #00FF00", p, got)
				}
			}
		})
	}
}

func TestFillResize_Upscale(t *testing.T) {
	img := createInMemoryImage(10, 20, color.RGBA{200, 0, 0, 255})

	result, err := FillResize(img, img.Bounds(), Size{Width: 400, Height: 500})
	if err != nil {
		t.Fatalf("FillResize failed: %v", err)
	}

	c := result.NRGBAAt(200, 250)
	if abs(int(c.R)-200) > 1 || c.G > 1 || c.B > 1 {
		t.Errorf("center color: got %v, want ~(200,0,0)", c)
	}
}

func TestFillResize_CropBox(t *testing.T) {
	img := createInMemoryImage(200, 200, color.RGBA{255, 255, 255, 255}).(*image.RGBA)
	for y := 50; y < 150; y++ {
		for x := 50; x < 150; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}

	result, err := FillResize(img, image.Rect(50, 50, 150, 150), Size{Width: 20, Height: 20})
	if err != nil {
		t.Fatalf("FillResize failed: %v", err)
	}

	for _, p := range []image.Point{{0, 0}, {10, 10}, {19, 19}} {
		c := result.NRGBAAt(p.X, p.Y)
		if c.R < 253 || c.G > 2 || c.B > 2 {
			t.Errorf("pixel %v: got %v, want red (white border must be cropped away)", p, c)
		}
	}
}

func TestFillResize_BoxClamped(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{0, 0, 255, 255})

	result, err := FillResize(img, image.Rect(-10, -10, 300, 300), Size{Width: 40, Height: 50})
	if err != nil {
		t.Fatalf("FillResize failed: %v", err)
	}
	if result.Bounds().Dx() != 40 || result.Bounds().Dy() != 50 {
		t.Errorf("dimensions: got %dx%d, want 40x50", result.Bounds().Dx(), result.Bounds().Dy())
	}
}

func TestFillResize_InvalidSize(t *testing.T) {
	img := createInMemoryImage(10, 10, color.RGBA{0, 0, 0, 255})

	tests := []struct {
		name string
		size Size
	}{
		{"zero width", Size{0, 500}},
		{"zero height", Size{400, 0}},
		{"negative", Size{-1, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FillResize(img, img.Bounds(), tt.size)
			if !errors.Is(err, ErrInvalidSize) {
				t.Errorf("got %v, want ErrInvalidSize", err)
			}
		})
	}
}

func TestFillResize_EmptyRegion(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{0, 0, 0, 255})

	tests := []struct {
		name string
		box  image.Rectangle
	}{
		{"zero width", rect(50, 50, 50, 80)},
		{"outside image", image.Rect(200, 200, 300, 300)},
		{"empty", image.Rectangle{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FillResize(img, tt.box, DefaultSize)
			if !errors.Is(err, ErrEmptyRegion) {
				t.Errorf("got %v, want ErrEmptyRegion", err)
			}
		})
	}
}

func TestFillResize_DoesNotModifyInput(t *testing.T) {
	img := createPatternImage(60, 30)
	before := make([]byte, len(img.Pix))
	copy(before, img.Pix)

	if _, err := FillResize(img, image.Rect(5, 5, 50, 25), DefaultSize); err != nil {
		t.Fatalf("FillResize failed: %v", err)
	}
	if !bytes.Equal(before, img.Pix) {
		t.Error("input image pixels were modified")
	}
}

func TestSize(t *testing.T) {
	if !DefaultSize.Valid() {
		t.Error("DefaultSize should be valid")
	}
	if got := DefaultSize.String(); got != "400x500" {
		t.Errorf("String: got %s, want 400x500", got)
	}
	if (Size{Width: 0, Height: 5}).Valid() {
		t.Error("zero width should be invalid")
	}
}
