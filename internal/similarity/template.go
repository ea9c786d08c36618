package similarity

import (
	"image"
	"math"
)

const (
	templateSize   = 128
	templateStride = 2
	flatVariance   = 1e-9
)

// templateScales are the relative sizes at which one edge map is searched for
// inside the other.
var templateScales = []float64{1.0, 0.9, 0.8}

// buildEdgeMaps returns Sobel magnitude maps of gray at each template scale.
func buildEdgeMaps(gray *image.Gray) []plane {
	out := make([]plane, len(templateScales))
	for i, s := range templateScales {
		n := int(math.Round(templateSize * s))
		out[i] = sobel(planeFromGray(resizeGray(gray, n, n)))
	}
	return out
}

func sobel(p plane) plane {
	out := newPlane(p.w, p.h)
	for y := 1; y < p.h-1; y++ {
		for x := 1; x < p.w-1; x++ {
			gx := -p.at(x-1, y-1) - 2*p.at(x-1, y) - p.at(x-1, y+1) +
				p.at(x+1, y-1) + 2*p.at(x+1, y) + p.at(x+1, y+1)
			gy := -p.at(x-1, y-1) - 2*p.at(x, y-1) - p.at(x+1, y-1) +
				p.at(x-1, y+1) + 2*p.at(x, y+1) + p.at(x+1, y+1)
			out.pix[y*out.w+x] = math.Hypot(gx, gy)
		}
	}
	return out
}

// templateScore searches each image's scaled edge maps inside the other's
// full-size map and keeps the best normalized cross-correlation.
func templateScore(a, b []plane) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	best := max(bestNCC(a[0], b), bestNCC(b[0], a))
	return clampScore(best * 100)
}

func bestNCC(base plane, templates []plane) float64 {
	ib := newIntegral(base.w, base.h, func(i int) float64 { return base.pix[i] })
	ibb := newIntegral(base.w, base.h, func(i int) float64 { return base.pix[i] * base.pix[i] })

	best := 0.0
	for _, t := range templates {
		if t.w > base.w || t.h > base.h {
			continue
		}
		n := float64(t.w * t.h)
		var mean float64
		for _, v := range t.pix {
			mean += v
		}
		mean /= n
		centered := make([]float64, len(t.pix))
		var tvar float64
		for i, v := range t.pix {
			centered[i] = v - mean
			tvar += centered[i] * centered[i]
		}

		for y := 0; y+t.h <= base.h; y += templateStride {
			for x := 0; x+t.w <= base.w; x += templateStride {
				sum := ib.rect(x, y, x+t.w, y+t.h)
				bvar := ibb.rect(x, y, x+t.w, y+t.h) - sum*sum/n
				var ncc float64
				switch {
				case bvar <= flatVariance && tvar <= flatVariance:
					ncc = 1
				case bvar <= flatVariance || tvar <= flatVariance:
					ncc = 0
				default:
					var num float64
					for ty := 0; ty < t.h; ty++ {
						row := base.pix[(y+ty)*base.w+x : (y+ty)*base.w+x+t.w]
						trow := centered[ty*t.w : (ty+1)*t.w]
						for tx, tv := range trow {
							num += row[tx] * tv
						}
					}
					ncc = num / math.Sqrt(bvar*tvar)
				}
				if ncc > best {
					best = ncc
				}
			}
		}
	}
	return best
}
