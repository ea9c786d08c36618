package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// EncodePNG returns img encoded as PNG bytes.
func EncodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// WritePNG encodes img into dir/name and returns the full path.
func WritePNG(t testing.TB, dir, name string, img image.Image) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, EncodePNG(t, img), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// CheckerImage returns a black and white checkerboard with square cells.
func CheckerImage(w, h, cell int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if (x/cell+y/cell)%2 == 0 {
				c = color.RGBA{0, 0, 0, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// GradientImage returns a smooth red-to-blue horizontal gradient with a
// vertical green ramp.
func GradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(255 * (w - 1 - x) / max(1, w-1)),
				G: uint8(255 * y / max(1, h-1)),
				B: uint8(255 * x / max(1, w-1)),
				A: 255,
			})
		}
	}
	return img
}

// ShapesImage draws filled rectangles and discs of distinct colours on a pale
// background. Variant shifts the layout so different variants share no
// structure while the same variant is always identical.
func ShapesImage(w, h, variant int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := color.RGBA{235, 230, 220, 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, bg)
		}
	}
	palette := []color.RGBA{
		{200, 30, 40, 255},
		{30, 120, 200, 255},
		{20, 160, 70, 255},
		{240, 180, 20, 255},
		{90, 40, 140, 255},
		{10, 10, 10, 255},
	}
	for i := 0; i < 9; i++ {
		k := i + variant*7
		c := palette[(k*5+variant)%len(palette)]
		cx := (k*97 + 31) % w
		cy := (k*61 + 17) % h
		size := 12 + (k*13)%(max(1, min(w, h)/5))
		if k%2 == 0 {
			fillRect(img, cx-size/2, cy-size/3, cx+size/2, cy+size/3, c)
		} else {
			fillDisc(img, cx, cy, size/2, c)
		}
	}
	return img
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	r := image.Rect(x0, y0, x1, y1).Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func fillDisc(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			if (image.Point{X: x, Y: y}).In(img.Bounds()) {
				img.SetRGBA(x, y, c)
			}
		}
	}
}
