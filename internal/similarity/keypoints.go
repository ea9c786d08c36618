package similarity

import (
	"image"
	"math"
	"math/rand/v2"
	"sort"
)

const (
	fastThreshold    = 20
	fastArc          = 9
	pyramidLevels    = 3
	pyramidScale     = 1.4
	orientRadius     = 15
	descriptorBorder = 18
	briefBits        = 256
	briefExtent      = 12
	blurRadius       = 2
)

type keypoint struct {
	X, Y   float64 // working-resolution coordinates
	lx, ly int     // coordinates within the pyramid level
	level  int
	score  int
	angle  float64
}

type descriptor [briefBits / 64]uint64

type features struct {
	points []keypoint
	descs  []descriptor
}

var fastCircle = [16]image.Point{
	{0, -3}, {1, -3}, {2, -2}, {3, -1}, {3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1}, {-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// briefPattern holds point pairs (x1, y1, x2, y2) sampled once from a fixed
// seed so descriptors are comparable across processes.
var briefPattern = buildBriefPattern()

func buildBriefPattern() [briefBits][4]int {
	rng := rand.New(rand.NewPCG(0x5ed0a1, 0x0b1e5))
	var pattern [briefBits][4]int
	for i := range pattern {
		for j := range pattern[i] {
			pattern[i][j] = rng.IntN(2*briefExtent+1) - briefExtent
		}
	}
	return pattern
}

// detectFeatures finds up to maxKeypoints oriented corners across the pyramid
// and computes a rotated binary descriptor for each.
func detectFeatures(base *image.Gray, maxKeypoints int) features {
	levels := buildPyramid(base)

	var found []keypoint
	for level, img := range levels {
		scale := math.Pow(pyramidScale, float64(level))
		for _, kp := range detectFAST(img, fastThreshold, descriptorBorder) {
			kp.level = level
			kp.X = float64(kp.lx) * scale
			kp.Y = float64(kp.ly) * scale
			found = append(found, kp)
		}
	}

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.level != b.level {
			return a.level < b.level
		}
		if a.ly != b.ly {
			return a.ly < b.ly
		}
		return a.lx < b.lx
	})
	if maxKeypoints > 0 && len(found) > maxKeypoints {
		found = found[:maxKeypoints]
	}

	smoothed := make([]*plane, len(levels))
	out := features{
		points: make([]keypoint, 0, len(found)),
		descs:  make([]descriptor, 0, len(found)),
	}
	for _, kp := range found {
		if smoothed[kp.level] == nil {
			p := boxBlur(levels[kp.level], blurRadius)
			smoothed[kp.level] = &p
		}
		kp.angle = orientation(levels[kp.level], kp.lx, kp.ly)
		out.points = append(out.points, kp)
		out.descs = append(out.descs, describe(*smoothed[kp.level], kp))
	}
	return out
}

func buildPyramid(base *image.Gray) []*image.Gray {
	levels := []*image.Gray{base}
	b := base.Bounds()
	for level := 1; level < pyramidLevels; level++ {
		scale := math.Pow(pyramidScale, float64(level))
		w := int(math.Round(float64(b.Dx()) / scale))
		h := int(math.Round(float64(b.Dy()) / scale))
		if w <= 2*descriptorBorder || h <= 2*descriptorBorder {
			break
		}
		levels = append(levels, resizeGray(base, w, h))
	}
	return levels
}

// detectFAST runs FAST-9 with 3x3 non-maximum suppression.
func detectFAST(g *image.Gray, threshold, border int) []keypoint {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 2*border || h <= 2*border {
		return nil
	}
	scores := make([]int, w*h)
	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			scores[y*w+x] = fastScore(g, x, y, threshold)
		}
	}

	var out []keypoint
	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			s := scores[y*w+x]
			if s == 0 || !isLocalMax(scores, w, x, y, s) {
				continue
			}
			out = append(out, keypoint{lx: x, ly: y, score: s})
		}
	}
	return out
}

// isLocalMax breaks ties in favour of the earlier pixel in raster order.
func isLocalMax(scores []int, w, x, y, s int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := scores[(y+dy)*w+x+dx]
			before := dy < 0 || (dy == 0 && dx < 0)
			if n > s || (before && n == s) {
				return false
			}
		}
	}
	return true
}

func fastScore(g *image.Gray, x, y, threshold int) int {
	center := int(g.Pix[y*g.Stride+x])
	var diffs [16]int
	for i, o := range fastCircle {
		diffs[i] = int(g.Pix[(y+o.Y)*g.Stride+x+o.X]) - center
	}
	if !hasArc(diffs, threshold) {
		return 0
	}
	score := 0
	for _, d := range diffs {
		switch {
		case d > threshold:
			score += d - threshold
		case d < -threshold:
			score += -d - threshold
		}
	}
	return score
}

// hasArc reports whether fastArc contiguous circle pixels are all brighter or
// all darker than the centre by more than threshold.
func hasArc(diffs [16]int, threshold int) bool {
	for _, sign := range [2]int{1, -1} {
		run := 0
		for i := 0; i < len(diffs)+fastArc-1; i++ {
			if sign*diffs[i%len(diffs)] > threshold {
				run++
				if run >= fastArc {
					return true
				}
				continue
			}
			run = 0
		}
	}
	return false
}

// orientation returns the intensity-centroid angle of the circular patch.
func orientation(g *image.Gray, x, y int) float64 {
	var m01, m10 float64
	for dy := -orientRadius; dy <= orientRadius; dy++ {
		row := (y + dy) * g.Stride
		for dx := -orientRadius; dx <= orientRadius; dx++ {
			if dx*dx+dy*dy > orientRadius*orientRadius {
				continue
			}
			v := float64(g.Pix[row+x+dx])
			m10 += float64(dx) * v
			m01 += float64(dy) * v
		}
	}
	return math.Atan2(m01, m10)
}

func boxBlur(g *image.Gray, radius int) plane {
	src := planeFromGray(g)
	in := newIntegral(src.w, src.h, func(i int) float64 { return src.pix[i] })
	out := newPlane(src.w, src.h)
	for y := 0; y < src.h; y++ {
		y0, y1 := max(0, y-radius), min(src.h, y+radius+1)
		for x := 0; x < src.w; x++ {
			x0, x1 := max(0, x-radius), min(src.w, x+radius+1)
			out.pix[y*out.w+x] = in.rect(x0, y0, x1, y1) / float64((x1-x0)*(y1-y0))
		}
	}
	return out
}

func describe(p plane, kp keypoint) descriptor {
	sin, cos := math.Sincos(kp.angle)
	var d descriptor
	for i, pair := range briefPattern {
		ax, ay := rotate(pair[0], pair[1], sin, cos)
		bx, by := rotate(pair[2], pair[3], sin, cos)
		if p.at(kp.lx+ax, kp.ly+ay) < p.at(kp.lx+bx, kp.ly+by) {
			d[i/64] |= 1 << uint(i%64)
		}
	}
	return d
}

func rotate(x, y int, sin, cos float64) (int, int) {
	fx, fy := float64(x), float64(y)
	return int(math.Round(cos*fx - sin*fy)), int(math.Round(sin*fx + cos*fy))
}
