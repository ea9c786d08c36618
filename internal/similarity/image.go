package similarity

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ImageRef points at encoded image bytes, either in memory or on disk.
// Data takes precedence over Path.
type ImageRef struct {
	Path string `json:"path,omitempty"`
	Data []byte `json:"-"`
}

func (r ImageRef) String() string {
	switch {
	case len(r.Data) > 0:
		return fmt.Sprintf("<%d bytes>", len(r.Data))
	case r.Path != "":
		return r.Path
	default:
		return "<empty>"
	}
}

func decodeImage(ref ImageRef) (image.Image, error) {
	data := ref.Data
	if len(data) == 0 {
		if ref.Path == "" {
			return nil, errors.New("no image data or path")
		}
		raw, err := os.ReadFile(ref.Path)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("image has no pixels")
	}
	return img, nil
}

// normalizeImage pads img onto a white square and scales it to size x size.
// The returned rectangle is the area covered by the original pixels.
func normalizeImage(img image.Image, size int) (*image.RGBA, image.Rectangle) {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	b := img.Bounds()
	side := float64(max(b.Dx(), b.Dy()))
	w := max(1, int(math.Round(float64(b.Dx())*float64(size)/side)))
	h := max(1, int(math.Round(float64(b.Dy())*float64(size)/side)))
	x0 := (size - w) / 2
	y0 := (size - h) / 2
	content := image.Rect(x0, y0, x0+w, y0+h)
	draw.BiLinear.Scale(dst, content, img, b, draw.Over, nil)
	return dst, content
}

func toGray(img *image.RGBA) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

func resizeGray(src *image.Gray, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// plane is a dense float64 image used by the metric kernels.
type plane struct {
	w, h int
	pix  []float64
}

func newPlane(w, h int) plane {
	return plane{w: w, h: h, pix: make([]float64, w*h)}
}

func (p plane) at(x, y int) float64 {
	return p.pix[y*p.w+x]
}

func planeFromGray(g *image.Gray) plane {
	b := g.Bounds()
	p := newPlane(b.Dx(), b.Dy())
	for y := 0; y < p.h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+p.w]
		for x, v := range row {
			p.pix[y*p.w+x] = float64(v)
		}
	}
	return p
}

// integral is a summed-area table with one row and column of zero padding.
type integral struct {
	w, h int
	sum  []float64
}

func newIntegral(w, h int, value func(i int) float64) integral {
	stride := w + 1
	in := integral{w: w, h: h, sum: make([]float64, stride*(h+1))}
	for y := 0; y < h; y++ {
		var row float64
		for x := 0; x < w; x++ {
			row += value(y*w + x)
			in.sum[(y+1)*stride+x+1] = in.sum[y*stride+x+1] + row
		}
	}
	return in
}

// rect sums the half-open rectangle [x0,x1) x [y0,y1).
func (in integral) rect(x0, y0, x1, y1 int) float64 {
	stride := in.w + 1
	return in.sum[y1*stride+x1] - in.sum[y0*stride+x1] - in.sum[y1*stride+x0] + in.sum[y0*stride+x0]
}

func clampScore(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// prepared holds every per-image artifact the metrics need, so a batch source
// is decoded and analysed once.
type prepared struct {
	rgba     *image.RGBA
	content  image.Rectangle
	gray     plane
	features features
	hist     colorHistogram
	edges    []plane
}

func prepare(ref ImageRef, tuning Tuning) (*prepared, error) {
	img, err := decodeImage(ref)
	if err != nil {
		return nil, err
	}
	rgba, content := normalizeImage(img, tuning.WorkingSize)
	gray := toGray(rgba)
	return &prepared{
		rgba:     rgba,
		content:  content,
		gray:     planeFromGray(gray),
		features: detectFeatures(gray, tuning.MaxKeypoints),
		hist:     hsvHistogram(rgba, content),
		edges:    buildEdgeMaps(gray),
	}, nil
}
