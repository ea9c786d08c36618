package similarity

import "math/bits"

const (
	matchRatio  = 0.8
	maxHamming  = 64
	noNeighbour = -1
)

type match struct {
	a, b int
	dist int
}

func hamming(a, b descriptor) int {
	n := 0
	for i := range a {
		n += bits.OnesCount64(a[i] ^ b[i])
	}
	return n
}

// nearest returns, for each descriptor in from, the index and distance of its
// closest descriptor in to and the distance of the runner-up.
func nearest(from, to []descriptor) (best, bestDist, secondDist []int) {
	best = make([]int, len(from))
	bestDist = make([]int, len(from))
	secondDist = make([]int, len(from))
	for i, d := range from {
		best[i], bestDist[i], secondDist[i] = noNeighbour, noNeighbour, noNeighbour
		for j, other := range to {
			dist := hamming(d, other)
			switch {
			case best[i] == noNeighbour || dist < bestDist[i]:
				secondDist[i] = bestDist[i]
				best[i], bestDist[i] = j, dist
			case secondDist[i] == noNeighbour || dist < secondDist[i]:
				secondDist[i] = dist
			}
		}
	}
	return best, bestDist, secondDist
}

// matchFeatures keeps mutual nearest neighbours that pass the ratio test in
// both directions and an absolute distance ceiling. The matched set does not
// depend on which image is a and which is b.
func matchFeatures(a, b features) []match {
	if len(a.descs) == 0 || len(b.descs) == 0 {
		return nil
	}
	abBest, abDist, abSecond := nearest(a.descs, b.descs)
	baBest, _, baSecond := nearest(b.descs, a.descs)

	var out []match
	for i, j := range abBest {
		if j == noNeighbour || baBest[j] != i {
			continue
		}
		d := abDist[i]
		if d > maxHamming || !distinctive(d, abSecond[i]) || !distinctive(d, baSecond[j]) {
			continue
		}
		out = append(out, match{a: i, b: j, dist: d})
	}
	return out
}

// distinctive is the ratio test: the best distance must be clearly shorter
// than the runner-up, when there is one.
func distinctive(best, second int) bool {
	return second == noNeighbour || float64(best) < matchRatio*float64(second)
}

// keypointScore is the share of detected keypoints that found a consistent
// partner, scaled to 0-100.
func keypointScore(matches, nA, nB int) float64 {
	if nA+nB == 0 {
		return 0
	}
	return clampScore(100 * 2 * float64(matches) / float64(nA+nB))
}
