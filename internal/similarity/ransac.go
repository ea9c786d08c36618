package similarity

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"
)

const (
	ransacIterations = 200
	ransacThreshold  = 5.0
	homographyPoints = 4
)

type pointPair struct {
	x, y float64 // source
	u, v float64 // candidate
}

type homography [8]float64

func matchedPairs(matches []match, a, b features) []pointPair {
	pairs := make([]pointPair, len(matches))
	for i, m := range matches {
		pa, pb := a.points[m.a], b.points[m.b]
		pairs[i] = pointPair{x: pa.X, y: pa.Y, u: pb.X, v: pb.Y}
	}
	return pairs
}

// countHomographyInliers fits homographies to random 4-point samples and
// returns the largest number of pairs agreeing with one of them. Pairs are put
// in an orientation-free order and fitted in both directions, so swapping the
// two images gives the same count. The sampler is seeded from the input size
// so results are reproducible.
func countHomographyInliers(pairs []pointPair) int {
	if len(pairs) < homographyPoints {
		return 0
	}
	ordered := canonicalOrder(pairs)
	return max(ransacInliers(ordered), ransacInliers(swapPairs(ordered)))
}

func ransacInliers(pairs []pointPair) int {
	rng := rand.New(rand.NewPCG(0x5ed0a1, uint64(len(pairs))))
	limit := ransacThreshold * ransacThreshold
	best := 0
	var sample [homographyPoints]int
	for iter := 0; iter < ransacIterations && best < len(pairs); iter++ {
		pickDistinct(rng, len(pairs), sample[:])
		var quad [homographyPoints]pointPair
		for i, idx := range sample {
			quad[i] = pairs[idx]
		}
		h, ok := solveHomography(quad)
		if !ok {
			continue
		}
		n := 0
		for _, p := range pairs {
			if reprojectionError(h, p) <= limit {
				n++
			}
		}
		if n > best {
			best = n
		}
	}
	return best
}

// canonicalOrder sorts pairs by their two endpoints taken low-first, a key
// that is unchanged when every pair is swapped.
func canonicalOrder(pairs []pointPair) []pointPair {
	out := slices.Clone(pairs)
	slices.SortStableFunc(out, func(p, q pointPair) int {
		plo, phi := p.endpoints()
		qlo, qhi := q.endpoints()
		if c := comparePoints(plo, qlo); c != 0 {
			return c
		}
		return comparePoints(phi, qhi)
	})
	return out
}

func swapPairs(pairs []pointPair) []pointPair {
	out := make([]pointPair, len(pairs))
	for i, p := range pairs {
		out[i] = pointPair{x: p.u, y: p.v, u: p.x, v: p.y}
	}
	return out
}

func (p pointPair) endpoints() (lo, hi [2]float64) {
	a, b := [2]float64{p.x, p.y}, [2]float64{p.u, p.v}
	if comparePoints(a, b) <= 0 {
		return a, b
	}
	return b, a
}

func comparePoints(a, b [2]float64) int {
	if c := cmp.Compare(a[0], b[0]); c != 0 {
		return c
	}
	return cmp.Compare(a[1], b[1])
}

func pickDistinct(rng *rand.Rand, n int, out []int) {
	for i := range out {
	retry:
		for {
			c := rng.IntN(n)
			for _, prev := range out[:i] {
				if prev == c {
					continue retry
				}
			}
			out[i] = c
			break
		}
	}
}

// solveHomography solves the 8x8 DLT system with h33 fixed to 1. Degenerate
// samples (collinear or repeated points) report ok=false.
func solveHomography(quad [homographyPoints]pointPair) (homography, bool) {
	a := mat.NewDense(8, 8, nil)
	rhs := mat.NewVecDense(8, nil)
	for i, p := range quad {
		a.SetRow(2*i, []float64{p.x, p.y, 1, 0, 0, 0, -p.u * p.x, -p.u * p.y})
		a.SetRow(2*i+1, []float64{0, 0, 0, p.x, p.y, 1, -p.v * p.x, -p.v * p.y})
		rhs.SetVec(2*i, p.u)
		rhs.SetVec(2*i+1, p.v)
	}
	var x mat.VecDense
	if err := x.SolveVec(a, rhs); err != nil {
		return homography{}, false
	}
	var h homography
	for i := range h {
		h[i] = x.AtVec(i)
		if math.IsNaN(h[i]) || math.IsInf(h[i], 0) {
			return homography{}, false
		}
	}
	return h, true
}

func reprojectionError(h homography, p pointPair) float64 {
	w := h[6]*p.x + h[7]*p.y + 1
	if math.Abs(w) < 1e-12 {
		return math.Inf(1)
	}
	u := (h[0]*p.x + h[1]*p.y + h[2]) / w
	v := (h[3]*p.x + h[4]*p.y + h[5]) / w
	du, dv := u-p.u, v-p.v
	return du*du + dv*dv
}
