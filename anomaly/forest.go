package anomaly

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/montanaflynn/stats"
)

const (
	maxSamplesCap = 256
	eulerGamma    = 0.5772156649
)

// Forest is an isolation forest trained on one batch.
type Forest struct {
	trees         []*node
	sampleSize    int
	contamination float64
	offset        float64
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	size      int
}

func (n *node) isLeaf() bool {
	return n.left == nil
}

// Fit grows nTrees isolation trees over rows and calibrates the decision
// offset so that roughly contamination of the training rows fall below zero.
func Fit(rows [][]float64, nTrees int, contamination float64, seed uint64) *Forest {
	f := &Forest{contamination: contamination}
	if len(rows) == 0 {
		return f
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	f.sampleSize = min(maxSamplesCap, len(rows))
	maxDepth := int(math.Ceil(math.Log2(float64(max(f.sampleSize, 2)))))

	f.trees = make([]*node, 0, nTrees)
	for range nTrees {
		idx := rng.Perm(len(rows))[:f.sampleSize]
		f.trees = append(f.trees, grow(rows, idx, 0, maxDepth, rng))
	}

	scores := make([]float64, len(rows))
	for i, row := range rows {
		scores[i] = f.ScoreSample(row)
	}
	f.offset = percentile(scores, 100*contamination)

	return f
}

func grow(rows [][]float64, idx []int, depth, maxDepth int, rng *rand.Rand) *node {
	if depth >= maxDepth || len(idx) <= 1 {
		return &node{size: len(idx)}
	}

	nFeatures := len(rows[idx[0]])
	var candidates []int
	lows := make([]float64, nFeatures)
	highs := make([]float64, nFeatures)
	for f := range nFeatures {
		lo, hi := rows[idx[0]][f], rows[idx[0]][f]
		for _, i := range idx[1:] {
			lo = math.Min(lo, rows[i][f])
			hi = math.Max(hi, rows[i][f])
		}
		lows[f], highs[f] = lo, hi
		if hi > lo {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return &node{size: len(idx)}
	}

	feature := candidates[rng.IntN(len(candidates))]
	threshold := lows[feature] + rng.Float64()*(highs[feature]-lows[feature])

	var left, right []int
	for _, i := range idx {
		if rows[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		size:      len(idx),
		left:      grow(rows, left, depth+1, maxDepth, rng),
		right:     grow(rows, right, depth+1, maxDepth, rng),
	}
}

func pathLength(n *node, row []float64) float64 {
	depth := 0.0
	for !n.isLeaf() {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}

	return depth + averagePathLength(n.size)
}

// ScoreSample returns the opposite of the isolation anomaly score, in [-1, 0).
// Lower is more anomalous.
func (f *Forest) ScoreSample(row []float64) float64 {
	if len(f.trees) == 0 {
		return -0.5
	}

	depths := make([]float64, len(f.trees))
	for i, t := range f.trees {
		depths[i] = pathLength(t, row)
	}
	meanDepth, err := stats.Mean(depths)
	if err != nil {
		return -0.5
	}

	norm := averagePathLength(f.sampleSize)
	if norm == 0 {
		return -0.5
	}

	return -math.Pow(2, -meanDepth/norm)
}

// Decision shifts ScoreSample by the fitted offset. Negative values are outliers.
func (f *Forest) Decision(row []float64) float64 {
	return f.ScoreSample(row) - f.offset
}

// Offset is the score threshold derived from the contamination fraction.
func (f *Forest) Offset() float64 {
	return f.offset
}

// averagePathLength is c(n), the mean path length of an unsuccessful search
// in a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}

// percentile uses linear interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))

	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
