package similarity

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	hueBins = 16
	satBins = 4
	valBins = 4
)

type colorHistogram [hueBins * satBins * valBins]float64

// hsvHistogram bins the content area of img, ignoring padding, and normalizes
// the counts to sum to 1.
func hsvHistogram(img *image.RGBA, content image.Rectangle) colorHistogram {
	var hist colorHistogram
	content = content.Intersect(img.Bounds())
	total := 0.0
	for y := content.Min.Y; y < content.Max.Y; y++ {
		for x := content.Min.X; x < content.Max.X; x++ {
			i := img.PixOffset(x, y)
			h, s, v := rgbToHSV(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
			hb := min(int(h/360*hueBins), hueBins-1)
			sb := min(int(s*satBins), satBins-1)
			vb := min(int(v*valBins), valBins-1)
			hist[(hb*satBins+sb)*valBins+vb]++
			total++
		}
	}
	if total > 0 {
		for i := range hist {
			hist[i] /= total
		}
	}
	return hist
}

func rgbToHSV(r8, g8, b8 uint8) (h, s, v float64) {
	r, g, b := float64(r8)/255, float64(g8)/255, float64(b8)/255
	hi := max(r, g, b)
	lo := min(r, g, b)
	delta := hi - lo
	v = hi
	if hi > 0 {
		s = delta / hi
	}
	if delta == 0 {
		return 0, s, v
	}
	switch hi {
	case r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// histogramScore is the Pearson correlation of two histograms, scaled to
// 0-100 and floored at 0. Flat histograms score 100 only when identical.
func histogramScore(a, b colorHistogram) float64 {
	r := stat.Correlation(a[:], b[:], nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		if a == b {
			return 100
		}
		return 0
	}
	return clampScore(r * 100)
}
