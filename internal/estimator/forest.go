package estimator

import (
	"errors"
	"math/rand/v2"
	"slices"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
)

// Regression defaults: 100 trees, seed 42.
const (
	DefaultTrees = 100
	DefaultSeed  = 42
)

// minImpurityDecrease keeps float noise from producing useless splits.
const minImpurityDecrease = 1e-12

// Forest is a fitted random-forest regressor: bagged CART trees split on
// squared-error reduction over every feature, averaged at prediction time.
// A Forest is immutable once built and safe for concurrent use.
type Forest struct {
	trees []*node
}

type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

// FitForest trains nTrees trees on X/y with bootstrap samples drawn from a
// generator seeded with seed. Identical inputs always give the same forest.
func FitForest(X [][]float64, y []float64, nTrees int, seed uint64) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, errors.New("training data must be non-empty with one target per row")
	}
	if nTrees <= 0 {
		return nil, errors.New("forest needs at least one tree")
	}
	width := len(X[0])
	for _, row := range X {
		if len(row) != width {
			return nil, errors.New("training rows must have equal width")
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	f := &Forest{trees: make([]*node, nTrees)}
	n := len(X)
	for t := range f.trees {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		f.trees[t] = grow(X, y, sample, width, rng)
	}
	return f, nil
}

// Predict averages the tree outputs for x.
func (f *Forest) Predict(x []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees))
}

// Size returns the number of trees.
func (f *Forest) Size() int { return len(f.trees) }

func (n *node) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// grow builds a fully grown tree over the rows in idx.
func grow(X [][]float64, y []float64, idx []int, width int, rng *rand.Rand) *node {
	mean, sse := meanSSE(y, idx)
	if len(idx) < 2 || sse <= minImpurityDecrease {
		return &node{leaf: true, value: mean}
	}

	bestFeature, bestThreshold, bestSSE := -1, 0.0, sse
	for _, f := range rng.Perm(width) {
		threshold, split, ok := bestSplit(X, y, idx, f)
		if ok && split < bestSSE-minImpurityDecrease {
			bestFeature, bestThreshold, bestSSE = f, threshold, split
		}
	}
	if bestFeature < 0 {
		return &node{leaf: true, value: mean}
	}

	var left, right []int
	for _, i := range idx {
		if X[i][bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &node{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      grow(X, y, left, width, rng),
		right:     grow(X, y, right, width, rng),
	}
}

// bestSplit finds the midpoint threshold on feature f minimising the summed
// squared error of both children.
func bestSplit(X [][]float64, y []float64, idx []int, f int) (threshold, sse float64, ok bool) {
	order := slices.Clone(idx)
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case X[a][f] < X[b][f]:
			return -1
		case X[a][f] > X[b][f]:
			return 1
		}
		return 0
	})

	var totalSum, totalSq float64
	for _, i := range order {
		totalSum += y[i]
		totalSq += y[i] * y[i]
	}

	n := float64(len(order))
	var leftSum, leftSq float64
	for k := 0; k < len(order)-1; k++ {
		i := order[k]
		leftSum += y[i]
		leftSq += y[i] * y[i]
		cur, next := X[i][f], X[order[k+1]][f]
		if cur == next {
			continue
		}
		nl := float64(k + 1)
		nr := n - nl
		rightSum := totalSum - leftSum
		rightSq := totalSq - leftSq
		s := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
		if !ok || s < sse {
			threshold, sse, ok = (cur+next)/2, s, true
		}
	}
	return threshold, sse, ok
}

func meanSSE(y []float64, idx []int) (mean, sse float64) {
	if len(idx) == 0 {
		return 0, 0
	}
	for _, i := range idx {
		mean += y[i]
	}
	mean /= float64(len(idx))
	for _, i := range idx {
		d := y[i] - mean
		sse += d * d
	}
	return mean, sse
}

// Regression estimates magnitude with a forest fitted on TrainingSet.
type Regression struct {
	forest *Forest
}

// NewRegression fits the training table once. The result never changes.
func NewRegression(trees int, seed uint64) (*Regression, error) {
	return NewRegressionFrom(TrainingSet, trees, seed)
}

// NewRegressionFrom fits a regression on an explicit training table.
func NewRegressionFrom(samples []Sample, trees int, seed uint64) (*Regression, error) {
	X := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		X[i] = s.Perception.Vector()
		y[i] = s.Magnitude
	}
	forest, err := FitForest(X, y, trees, seed)
	if err != nil {
		return nil, err
	}
	return &Regression{forest: forest}, nil
}

func (*Regression) Name() Strategy { return StrategyRegression }

func (r *Regression) Estimate(p domain.Perception) (float64, error) {
	return round1(r.forest.Predict(p.Vector())), nil
}
